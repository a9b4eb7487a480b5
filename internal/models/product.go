package models

import "time"

// MarketScale indicates whether a supplier sells nationally or internationally.
type MarketScale string

const (
	MarketScaleNational      MarketScale = "nacional"
	MarketScaleInternational MarketScale = "internacional"
)

// Product is a search candidate or a persisted catalog product. Candidates are
// produced by site search; persisted products additionally carry an ID assigned
// by the product store.
type Product struct {
	ID            string      `json:"id,omitempty"`
	Name          string      `json:"nome"`
	Description   string      `json:"descricao,omitempty"`
	Price         string      `json:"preco"` // raw price text as found on the site
	PriceValue    float64     `json:"preco_valor,omitempty"`
	Currency      string      `json:"moeda,omitempty"`
	URL           string      `json:"url"`
	SupplierID    string      `json:"fornecedor_id"`
	SupplierName  string      `json:"fornecedor,omitempty"`
	Category      string      `json:"categoria,omitempty"`
	Tags          []string    `json:"tags,omitempty"`
	MarketScale   MarketScale `json:"escala_mercado,omitempty"`
	MissingItemID string      `json:"faltante_id,omitempty"`
	CreatedBy     string      `json:"criado_por,omitempty"`
	CreatedAt     time.Time   `json:"created_at,omitempty"`
}

// ProductCategories is the closed set of business categories the classifier
// may assign. A response outside this list leaves the category unset.
var ProductCategories = []string{
	"informatica",
	"eletronicos",
	"escritorio",
	"industrial",
	"ferramentas",
	"limpeza",
	"seguranca",
	"outros",
}

// IsValidCategory reports whether c is one of the closed category set.
func IsValidCategory(c string) bool {
	for _, v := range ProductCategories {
		if v == c {
			return true
		}
	}
	return false
}
