package interfaces

import (
	"context"

	"github.com/cotalabs/cotiza/internal/models"
)

// RankRequest carries the full context of a refinement call: the original
// search, the caller's preferences and the merged candidate list.
type RankRequest struct {
	Term        string
	Quantity    int
	CostBenefit *models.CostBenefit
	Rigor       int // 0-5 strictness
	WebWeight   float64
	Candidates  []models.Product
}

// RankDecision is the refinement outcome. Index selects one candidate from
// the request, or is -1 when no candidate met the required rigor; Report is
// always populated.
type RankDecision struct {
	Index  int
	Report models.RankReport
}

// Ranker narrows a candidate list to at most one best match.
type Ranker interface {
	Rank(ctx context.Context, req *RankRequest) (*RankDecision, error)
}

// Classifier assigns a candidate to one of the closed business categories.
// An unparseable model response is an error; callers treat it as non-fatal.
type Classifier interface {
	Classify(ctx context.Context, product *models.Product) (string, error)
}

// Weigher scores missing items with a 0.0-1.0 "international search is
// worthwhile" weight, keyed by missing-item ID.
type Weigher interface {
	Weigh(ctx context.Context, items []models.MissingItem) (map[string]float64, error)
}
