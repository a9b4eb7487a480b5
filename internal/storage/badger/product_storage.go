package badger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/cotalabs/cotiza/internal/common"
	"github.com/cotalabs/cotiza/internal/interfaces"
	"github.com/cotalabs/cotiza/internal/models"
)

// ProductStorage implements interfaces.ProductStorage for Badger
type ProductStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewProductStorage creates a new ProductStorage instance
func NewProductStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ProductStorage {
	return &ProductStorage{
		db:     db,
		logger: logger,
	}
}

// dedupeKey normalizes the fields that identify a duplicate product within a
// supplier catalog.
func dedupeKey(supplierID, name, url string) string {
	return supplierID + "|" + strings.ToLower(strings.TrimSpace(name)) + "|" + strings.TrimSpace(url)
}

// SaveProducts bulk-inserts products for a supplier, skipping entries whose
// (supplier, name, URL) combination already exists. One bad product does not
// abort the rest of the batch.
func (s *ProductStorage) SaveProducts(ctx context.Context, supplierID, userID string, products []*models.Product) (*interfaces.BulkSaveResult, error) {
	if supplierID == "" {
		return nil, fmt.Errorf("supplier ID is required")
	}

	result := &interfaces.BulkSaveResult{}

	for _, p := range products {
		if p.Name == "" {
			result.Errors = append(result.Errors, "product without name skipped")
			continue
		}

		exists, err := s.isDuplicate(supplierID, p)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: duplicate check failed: %v", p.Name, err))
			continue
		}
		if exists {
			s.logger.Debug().Str("supplier_id", supplierID).Str("name", p.Name).Msg("Skipping duplicate product")
			continue
		}

		p.ID = common.NewProductID()
		p.SupplierID = supplierID
		p.CreatedBy = userID
		p.CreatedAt = time.Now()

		if err := s.db.Store().Insert(p.ID, p); err != nil {
			p.ID = ""
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", p.Name, err))
			continue
		}
		result.Saved++
	}

	return result, nil
}

func (s *ProductStorage) isDuplicate(supplierID string, p *models.Product) (bool, error) {
	key := dedupeKey(supplierID, p.Name, p.URL)

	var existing []models.Product
	query := badgerhold.Where("SupplierID").Eq(supplierID)
	if err := s.db.Store().Find(&existing, query); err != nil {
		return false, err
	}
	for i := range existing {
		if dedupeKey(existing[i].SupplierID, existing[i].Name, existing[i].URL) == key {
			return true, nil
		}
	}
	return false, nil
}

func (s *ProductStorage) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	if err := s.db.Store().Get(id, &p); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("product not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (s *ProductStorage) ListProducts(ctx context.Context, supplierID string, limit int) ([]*models.Product, error) {
	query := badgerhold.Where("ID").Ne("")
	if supplierID != "" {
		query = badgerhold.Where("SupplierID").Eq(supplierID)
	}
	query = query.SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var products []models.Product
	if err := s.db.Store().Find(&products, query); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	result := make([]*models.Product, len(products))
	for i := range products {
		result[i] = &products[i]
	}
	return result, nil
}

func (s *ProductStorage) DeleteProduct(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Product{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("product not found: %s", id)
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}
