package models

import "time"

// SupplierSelectors are the CSS selectors used to extract product candidates
// from a supplier's search results page. Empty fields fall back to the
// scraper defaults.
type SupplierSelectors struct {
	Item        string `json:"item,omitempty" toml:"item"`
	Name        string `json:"nome,omitempty" toml:"name"`
	Price       string `json:"preco,omitempty" toml:"price"`
	Description string `json:"descricao,omitempty" toml:"description"`
	Link        string `json:"link,omitempty" toml:"link"`
}

// Supplier is a registered site that can be queried for products. URLPattern
// contains a "*" placeholder that is replaced with the search term.
type Supplier struct {
	ID          string            `json:"id"`
	Name        string            `json:"nome"`
	URLPattern  string            `json:"url_pattern"`
	MarketScale MarketScale       `json:"escala_mercado"`
	RenderJS    bool              `json:"render_js"`
	Selectors   SupplierSelectors `json:"seletores,omitempty"`
	Active      bool              `json:"ativo"`
	CreatedAt   time.Time         `json:"created_at"`
}
