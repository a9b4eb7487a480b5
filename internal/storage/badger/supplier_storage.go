package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/cotalabs/cotiza/internal/interfaces"
	"github.com/cotalabs/cotiza/internal/models"
)

// SupplierStorage implements interfaces.SupplierStorage for Badger
type SupplierStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSupplierStorage creates a new SupplierStorage instance
func NewSupplierStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SupplierStorage {
	return &SupplierStorage{
		db:     db,
		logger: logger,
	}
}

func (s *SupplierStorage) SaveSupplier(ctx context.Context, supplier *models.Supplier) error {
	if supplier.ID == "" {
		return fmt.Errorf("supplier ID is required")
	}
	if err := s.db.Store().Upsert(supplier.ID, supplier); err != nil {
		return fmt.Errorf("failed to save supplier: %w", err)
	}
	return nil
}

func (s *SupplierStorage) GetSupplier(ctx context.Context, id string) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := s.db.Store().Get(id, &supplier); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("supplier not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}
	return &supplier, nil
}

func (s *SupplierStorage) ListSuppliers(ctx context.Context, activeOnly bool) ([]*models.Supplier, error) {
	query := badgerhold.Where("ID").Ne("")
	if activeOnly {
		query = badgerhold.Where("Active").Eq(true)
	}

	var suppliers []models.Supplier
	if err := s.db.Store().Find(&suppliers, query.SortBy("Name")); err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}

	result := make([]*models.Supplier, len(suppliers))
	for i := range suppliers {
		result[i] = &suppliers[i]
	}
	return result, nil
}

func (s *SupplierStorage) DeleteSupplier(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Supplier{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("supplier not found: %s", id)
		}
		return fmt.Errorf("failed to delete supplier: %w", err)
	}
	return nil
}
