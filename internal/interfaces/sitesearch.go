package interfaces

import (
	"context"

	"github.com/cotalabs/cotiza/internal/models"
)

// SearchTarget is one site to query, resolved either from a registered
// supplier or from a caller-supplied ad-hoc URL.
type SearchTarget struct {
	SupplierID   string
	SupplierName string
	URLPattern   string // contains a "*" placeholder for the search term
	MarketScale  models.MarketScale
	RenderJS     bool
	Selectors    models.SupplierSelectors
}

// SiteSearcher queries one site for candidate products matching a term,
// capped at limit results.
type SiteSearcher interface {
	Search(ctx context.Context, target SearchTarget, term string, limit int) ([]models.Product, error)
}
