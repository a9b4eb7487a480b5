package models

import "time"

// Quotation lifecycle statuses.
const (
	QuotationStatusOpen     = "aberta"
	QuotationStatusComplete = "completa"
)

// Quotation is a customer quote under assembly. Total is maintained by the
// budget recalculation step, not by item writes.
type Quotation struct {
	ID        string    `json:"id"`
	Name      string    `json:"nome"`
	UserID    string    `json:"usuario_id,omitempty"`
	Status    string    `json:"status"`
	Total     float64   `json:"total"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QuotationItem is a persisted line of a quotation. A placeholder line has
// Status=false and no product attached; fulfillment attaches the product and
// flips Status to true.
type QuotationItem struct {
	ID            string    `json:"id"`
	QuotationID   string    `json:"cotacao_id"`
	ProductID     string    `json:"produto_id,omitempty"`
	Name          string    `json:"nome"`
	Price         float64   `json:"preco"`
	Currency      string    `json:"moeda,omitempty"`
	Provider      string    `json:"fornecedor,omitempty"`
	Quantity      int       `json:"quantidade"`
	Status        bool      `json:"status"`
	MissingItemID string    `json:"faltante_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// QuotationReport accumulates the LLM refinement reports attached to a
// quotation, one entry per web search job.
type QuotationReport struct {
	ID          string       `json:"id"`
	QuotationID string       `json:"cotacao_id"`
	WebAnalysis []RankReport `json:"analises_web"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
