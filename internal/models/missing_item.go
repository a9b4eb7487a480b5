package models

import "time"

// CostBenefit expresses how the caller weighs price against quality when
// candidates are ranked.
type CostBenefit struct {
	CostWeight    float64 `json:"custo"`
	BenefitWeight float64 `json:"beneficio"`
}

// MissingItem ("faltante") is a quotation line that local inventory could not
// satisfy. It exists until a web search result is successfully attached to the
// quotation, and may persist indefinitely if no search ever succeeds.
type MissingItem struct {
	ID             string       `json:"id"`
	QuotationID    string       `json:"cotacao_id"`
	Name           string       `json:"nome"`
	SuggestedQuery string       `json:"consulta_sugerida,omitempty"`
	Category       string       `json:"categoria,omitempty"`
	Quantity       int          `json:"quantidade"`
	CostBenefit    *CostBenefit `json:"custo_beneficio,omitempty"`
	Rigor          *int         `json:"rigor,omitempty"`
	WebWeight      *float64     `json:"peso_web,omitempty"` // 0.0-1.0, set by the weighting pre-pass
	CreatedAt      time.Time    `json:"created_at"`
}
