package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/cotalabs/cotiza/internal/interfaces"
	"github.com/cotalabs/cotiza/internal/models"
)

// QuotationStorage implements interfaces.QuotationStorage for Badger
type QuotationStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewQuotationStorage creates a new QuotationStorage instance
func NewQuotationStorage(db *BadgerDB, logger arbor.ILogger) interfaces.QuotationStorage {
	return &QuotationStorage{
		db:     db,
		logger: logger,
	}
}

func (s *QuotationStorage) SaveQuotation(ctx context.Context, q *models.Quotation) error {
	if q.ID == "" {
		return fmt.Errorf("quotation ID is required")
	}
	if err := s.db.Store().Upsert(q.ID, q); err != nil {
		return fmt.Errorf("failed to save quotation: %w", err)
	}
	return nil
}

func (s *QuotationStorage) GetQuotation(ctx context.Context, id string) (*models.Quotation, error) {
	var q models.Quotation
	if err := s.db.Store().Get(id, &q); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("quotation not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get quotation: %w", err)
	}
	return &q, nil
}

func (s *QuotationStorage) ListQuotations(ctx context.Context, limit int) ([]*models.Quotation, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var quotations []models.Quotation
	if err := s.db.Store().Find(&quotations, query); err != nil {
		return nil, fmt.Errorf("failed to list quotations: %w", err)
	}

	result := make([]*models.Quotation, len(quotations))
	for i := range quotations {
		result[i] = &quotations[i]
	}
	return result, nil
}

// DeleteQuotation removes the quotation and its item rows.
func (s *QuotationStorage) DeleteQuotation(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Quotation{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("quotation not found: %s", id)
		}
		return fmt.Errorf("failed to delete quotation: %w", err)
	}
	if err := s.db.Store().DeleteMatching(&models.QuotationItem{}, badgerhold.Where("QuotationID").Eq(id)); err != nil {
		s.logger.Warn().Err(err).Str("quotation_id", id).Msg("Failed to delete quotation items")
	}
	return nil
}

func (s *QuotationStorage) SaveItem(ctx context.Context, item *models.QuotationItem) error {
	if item.ID == "" {
		return fmt.Errorf("item ID is required")
	}
	if item.QuotationID == "" {
		return fmt.Errorf("item quotation ID is required")
	}
	if err := s.db.Store().Upsert(item.ID, item); err != nil {
		return fmt.Errorf("failed to save quotation item: %w", err)
	}
	return nil
}

func (s *QuotationStorage) GetItem(ctx context.Context, id string) (*models.QuotationItem, error) {
	var item models.QuotationItem
	if err := s.db.Store().Get(id, &item); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("quotation item not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get quotation item: %w", err)
	}
	return &item, nil
}

func (s *QuotationStorage) ListItems(ctx context.Context, quotationID string) ([]*models.QuotationItem, error) {
	var items []models.QuotationItem
	query := badgerhold.Where("QuotationID").Eq(quotationID).SortBy("CreatedAt")
	if err := s.db.Store().Find(&items, query); err != nil {
		return nil, fmt.Errorf("failed to list quotation items: %w", err)
	}

	result := make([]*models.QuotationItem, len(items))
	for i := range items {
		result[i] = &items[i]
	}
	return result, nil
}

func (s *QuotationStorage) ListPlaceholderItems(ctx context.Context, quotationID string) ([]*models.QuotationItem, error) {
	var items []models.QuotationItem
	query := badgerhold.Where("QuotationID").Eq(quotationID).And("Status").Eq(false)
	if err := s.db.Store().Find(&items, query); err != nil {
		return nil, fmt.Errorf("failed to list placeholder items: %w", err)
	}

	result := make([]*models.QuotationItem, len(items))
	for i := range items {
		result[i] = &items[i]
	}
	return result, nil
}

func (s *QuotationStorage) DeleteItem(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.QuotationItem{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("quotation item not found: %s", id)
		}
		return fmt.Errorf("failed to delete quotation item: %w", err)
	}
	return nil
}
