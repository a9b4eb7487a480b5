package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/cotalabs/cotiza/internal/interfaces"
	"github.com/cotalabs/cotiza/internal/models"
)

// ReportStorage implements interfaces.ReportStorage for Badger
type ReportStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewReportStorage creates a new ReportStorage instance
func NewReportStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ReportStorage {
	return &ReportStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ReportStorage) SaveReport(ctx context.Context, r *models.QuotationReport) error {
	if r.ID == "" {
		return fmt.Errorf("report ID is required")
	}
	if err := s.db.Store().Upsert(r.ID, r); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// GetReportByQuotation returns the report record for a quotation, or nil when
// none exists yet.
func (s *ReportStorage) GetReportByQuotation(ctx context.Context, quotationID string) (*models.QuotationReport, error) {
	var reports []models.QuotationReport
	query := badgerhold.Where("QuotationID").Eq(quotationID)
	if err := s.db.Store().Find(&reports, query); err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	if len(reports) == 0 {
		return nil, nil
	}
	return &reports[0], nil
}
