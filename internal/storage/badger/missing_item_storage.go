package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/cotalabs/cotiza/internal/interfaces"
	"github.com/cotalabs/cotiza/internal/models"
)

// MissingItemStorage implements interfaces.MissingItemStorage for Badger
type MissingItemStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewMissingItemStorage creates a new MissingItemStorage instance
func NewMissingItemStorage(db *BadgerDB, logger arbor.ILogger) interfaces.MissingItemStorage {
	return &MissingItemStorage{
		db:     db,
		logger: logger,
	}
}

func (s *MissingItemStorage) SaveMissingItem(ctx context.Context, item *models.MissingItem) error {
	if item.ID == "" {
		return fmt.Errorf("missing-item ID is required")
	}
	if err := s.db.Store().Upsert(item.ID, item); err != nil {
		return fmt.Errorf("failed to save missing item: %w", err)
	}
	return nil
}

func (s *MissingItemStorage) GetMissingItem(ctx context.Context, id string) (*models.MissingItem, error) {
	var item models.MissingItem
	if err := s.db.Store().Get(id, &item); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("missing item not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get missing item: %w", err)
	}
	return &item, nil
}

func (s *MissingItemStorage) ListMissingItems(ctx context.Context, quotationID string) ([]*models.MissingItem, error) {
	var items []models.MissingItem
	query := badgerhold.Where("QuotationID").Eq(quotationID).SortBy("CreatedAt")
	if err := s.db.Store().Find(&items, query); err != nil {
		return nil, fmt.Errorf("failed to list missing items: %w", err)
	}

	result := make([]*models.MissingItem, len(items))
	for i := range items {
		result[i] = &items[i]
	}
	return result, nil
}

func (s *MissingItemStorage) DeleteMissingItem(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.MissingItem{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("missing item not found: %s", id)
		}
		return fmt.Errorf("failed to delete missing item: %w", err)
	}
	return nil
}
