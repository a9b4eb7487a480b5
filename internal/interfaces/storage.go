package interfaces

import (
	"context"

	"github.com/cotalabs/cotiza/internal/models"
)

// BulkSaveResult reports the outcome of a bulk product insert for one
// supplier group.
type BulkSaveResult struct {
	Saved  int
	Errors []string
}

// ProductStorage persists products with insert-if-not-duplicate semantics.
type ProductStorage interface {
	// SaveProducts inserts the given products for a supplier, skipping
	// duplicates (same supplier + normalized name + URL). Products that are
	// inserted get their ID populated in place.
	SaveProducts(ctx context.Context, supplierID, userID string, products []*models.Product) (*BulkSaveResult, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context, supplierID string, limit int) ([]*models.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// SupplierStorage manages the registered supplier sites.
type SupplierStorage interface {
	SaveSupplier(ctx context.Context, s *models.Supplier) error
	GetSupplier(ctx context.Context, id string) (*models.Supplier, error)
	ListSuppliers(ctx context.Context, activeOnly bool) ([]*models.Supplier, error)
	DeleteSupplier(ctx context.Context, id string) error
}

// QuotationStorage manages quotations and their item rows.
type QuotationStorage interface {
	SaveQuotation(ctx context.Context, q *models.Quotation) error
	GetQuotation(ctx context.Context, id string) (*models.Quotation, error)
	ListQuotations(ctx context.Context, limit int) ([]*models.Quotation, error)
	DeleteQuotation(ctx context.Context, id string) error

	SaveItem(ctx context.Context, item *models.QuotationItem) error
	GetItem(ctx context.Context, id string) (*models.QuotationItem, error)
	ListItems(ctx context.Context, quotationID string) ([]*models.QuotationItem, error)
	// ListPlaceholderItems returns items with Status=false (no product attached).
	ListPlaceholderItems(ctx context.Context, quotationID string) ([]*models.QuotationItem, error)
	DeleteItem(ctx context.Context, id string) error
}

// MissingItemStorage manages the faltante entries of quotations.
type MissingItemStorage interface {
	SaveMissingItem(ctx context.Context, item *models.MissingItem) error
	GetMissingItem(ctx context.Context, id string) (*models.MissingItem, error)
	ListMissingItems(ctx context.Context, quotationID string) ([]*models.MissingItem, error)
	DeleteMissingItem(ctx context.Context, id string) error
}

// ReportStorage manages the per-quotation refinement report record.
type ReportStorage interface {
	SaveReport(ctx context.Context, r *models.QuotationReport) error
	// GetReportByQuotation returns nil, nil when no report exists yet.
	GetReportByQuotation(ctx context.Context, quotationID string) (*models.QuotationReport, error)
}

// KeyValueStorage stores small configuration values like API keys.
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// StorageManager aggregates the per-entity storages over a single database.
type StorageManager interface {
	Products() ProductStorage
	Suppliers() SupplierStorage
	Quotations() QuotationStorage
	MissingItems() MissingItemStorage
	Reports() ReportStorage
	KV() KeyValueStorage
	Close() error
}
