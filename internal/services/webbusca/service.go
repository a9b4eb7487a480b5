package webbusca

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/cotalabs/cotiza/internal/common"
	"github.com/cotalabs/cotiza/internal/interfaces"
	"github.com/cotalabs/cotiza/internal/jobs"
	"github.com/cotalabs/cotiza/internal/models"
)

// WaitOutcome is the uniform fan-in shape returned by WaitForJobs. Failed and
// timed-out jobs appear in FullResults as entries with an empty product list,
// never as holes, so downstream reconciliation has one contract to code
// against.
type WaitOutcome struct {
	FullResults      []models.JobResult `json:"resultados"`
	AcceptedProducts []models.Product   `json:"produtos"`
}

// Service bridges quotations and the background job manager: it fans one
// search job out per missing item, awaits them concurrently and reconciles
// the results back into the quotation's item list and budget.
type Service struct {
	manager *jobs.Manager
	storage interfaces.StorageManager
	weigher interfaces.Weigher // optional, nil disables the weighting pre-pass
	config  common.JobsConfig
	logger  arbor.ILogger

	// Serializes reconciliation within the process. The missing-item list is
	// read-modify-write with no store-level transaction, so concurrent
	// reconciliations for the same quotation would race without this.
	reconcileMu sync.Mutex
}

func NewService(manager *jobs.Manager, storage interfaces.StorageManager, weigher interfaces.Weigher, config common.JobsConfig, logger arbor.ILogger) *Service {
	return &Service{
		manager: manager,
		storage: storage,
		weigher: weigher,
		config:  config,
		logger:  logger,
	}
}

// CreateJobsForMissingItems creates one background job per missing item and
// returns the job IDs as status handles. The fan-out is best-effort: an item
// whose job cannot be created is logged and produces no handle.
func (s *Service) CreateJobsForMissingItems(ctx context.Context, items []models.MissingItem, fallbackTerm string, applyWeighting bool) []string {
	if applyWeighting {
		s.applyWebWeighting(ctx, items)
	}

	handles := make([]string, 0, len(items))
	for i := range items {
		item := &items[i]

		term := strings.TrimSpace(item.SuggestedQuery)
		if term == "" {
			term = strings.TrimSpace(item.Name)
		}
		if term == "" {
			term = fallbackTerm
		}

		params := models.JobParams{
			Term:          term,
			Quantity:      item.Quantity,
			CostBenefit:   item.CostBenefit,
			Refine:        true,
			Persist:       true,
			MissingItemID: item.ID,
		}
		if item.Rigor != nil {
			params.Rigor = *item.Rigor
		}
		if item.WebWeight != nil {
			params.WebWeight = *item.WebWeight
		}

		job, err := s.manager.Create(params)
		if err != nil {
			s.logger.Warn().
				Str("missing_item_id", item.ID).
				Str("term", term).
				Err(err).
				Msg("Failed to create search job for missing item")
			continue
		}
		handles = append(handles, job.ID)
	}

	s.logger.Info().
		Int("items", len(items)).
		Int("jobs", len(handles)).
		Msg("Web search fan-out created")
	return handles
}

// applyWebWeighting scores each missing item with a 0.0-1.0 "international
// search is worthwhile" weight. When the weigher is unavailable or fails,
// every unscored item falls back to the configured default weight.
func (s *Service) applyWebWeighting(ctx context.Context, items []models.MissingItem) {
	var weights map[string]float64
	if s.weigher != nil {
		var err error
		weights, err = s.weigher.Weigh(ctx, items)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Web weighting failed, using default weight")
			weights = nil
		}
	}

	for i := range items {
		weight := s.config.DefaultWebWeight
		if w, ok := weights[items[i].ID]; ok {
			weight = w
		}
		items[i].WebWeight = &weight
		if err := s.storage.MissingItems().SaveMissingItem(ctx, &items[i]); err != nil {
			s.logger.Warn().Str("missing_item_id", items[i].ID).Err(err).Msg("Failed to persist item weight")
		}
	}
}

// WaitForJobs polls every handle concurrently until terminal or until the
// per-handle maxWait elapses. Timed-out handles are left running; only the
// caller stops waiting.
func (s *Service) WaitForJobs(ctx context.Context, handles []string, maxWait, pollInterval time.Duration) *WaitOutcome {
	if maxWait <= 0 {
		maxWait = s.config.MaxWaitDuration()
	}
	if pollInterval <= 0 {
		pollInterval = s.config.PollIntervalDuration()
	}

	results := make([]models.JobResult, len(handles))
	var wg sync.WaitGroup
	for i, handle := range handles {
		wg.Add(1)
		go func(slot int, jobID string) {
			defer wg.Done()
			results[slot] = s.awaitJob(ctx, jobID, maxWait, pollInterval)
		}(i, handle)
	}
	wg.Wait()

	outcome := &WaitOutcome{FullResults: results}
	for _, result := range results {
		outcome.AcceptedProducts = append(outcome.AcceptedProducts, result.Products...)
	}
	return outcome
}

// awaitJob polls one job until terminal. Failure, timeout and unknown IDs all
// degrade to an empty result rather than an error.
func (s *Service) awaitJob(ctx context.Context, jobID string, maxWait, pollInterval time.Duration) models.JobResult {
	deadline := time.Now().Add(maxWait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		job, err := s.manager.GetStatus(jobID)
		if err != nil {
			s.logger.Warn().Str("job_id", jobID).Err(err).Msg("Status poll for unknown job")
			return models.JobResult{}
		}
		switch {
		case job.Status == models.JobStatusCompleted && job.Result != nil:
			return *job.Result
		case job.Status.Terminal():
			s.logger.Info().Str("job_id", jobID).Str("error", job.Error).Msg("Search job did not complete")
			return models.JobResult{}
		}

		if time.Now().After(deadline) {
			s.logger.Warn().
				Str("job_id", jobID).
				Str("max_wait", maxWait.String()).
				Msg("Gave up waiting for search job")
			return models.JobResult{}
		}
		select {
		case <-ctx.Done():
			return models.JobResult{}
		case <-ticker.C:
		}
	}
}

// InsertResultsIntoQuotation reconciles job results into the quotation:
// products become quotation items, the matching missing items are removed,
// refinement reports are appended, and when the missing-item list empties the
// quotation is marked complete and its budget recalculated. A second call
// with the same results inserts nothing, because the matching missing items
// are already gone.
func (s *Service) InsertResultsIntoQuotation(ctx context.Context, quotationID string, results []models.JobResult) (int, error) {
	s.reconcileMu.Lock()
	defer s.reconcileMu.Unlock()

	quotation, err := s.storage.Quotations().GetQuotation(ctx, quotationID)
	if err != nil {
		return 0, fmt.Errorf("failed to load quotation %s: %w", quotationID, err)
	}

	missing, err := s.storage.MissingItems().ListMissingItems(ctx, quotationID)
	if err != nil {
		return 0, fmt.Errorf("failed to list missing items: %w", err)
	}

	inserted := 0
	for _, result := range results {
		for i := range result.Products {
			product := &result.Products[i]
			idx := matchMissingItem(product, missing)
			if idx < 0 {
				s.logger.Debug().
					Str("quotation_id", quotationID).
					Str("product", product.Name).
					Msg("No missing item matches product, skipping")
				continue
			}
			item := missing[idx]

			if err := s.attachProduct(ctx, quotation, item, product); err != nil {
				s.logger.Warn().
					Str("quotation_id", quotationID).
					Str("missing_item_id", item.ID).
					Err(err).
					Msg("Failed to attach product to quotation")
				continue
			}
			if err := s.storage.MissingItems().DeleteMissingItem(ctx, item.ID); err != nil {
				s.logger.Warn().Str("missing_item_id", item.ID).Err(err).Msg("Failed to delete missing item")
			}
			missing = append(missing[:idx], missing[idx+1:]...)
			inserted++
		}
	}

	// Re-running with already-processed results inserts nothing; skipping the
	// report append keeps the run idempotent for WebAnalysis too.
	if inserted > 0 {
		if err := s.appendReports(ctx, quotationID, results); err != nil {
			s.logger.Warn().Str("quotation_id", quotationID).Err(err).Msg("Failed to append web analysis reports")
		}
	}

	if len(missing) == 0 && quotation.Status != models.QuotationStatusComplete {
		quotation.Status = models.QuotationStatusComplete
		quotation.UpdatedAt = time.Now()
		if err := s.storage.Quotations().SaveQuotation(ctx, quotation); err != nil {
			return inserted, fmt.Errorf("failed to mark quotation complete: %w", err)
		}
		if _, err := s.RecalculateBudget(ctx, quotationID); err != nil {
			return inserted, err
		}
	} else if inserted > 0 {
		if _, err := s.RecalculateBudget(ctx, quotationID); err != nil {
			return inserted, err
		}
	}

	s.logger.Info().
		Str("quotation_id", quotationID).
		Int("inserted", inserted).
		Int("remaining_missing", len(missing)).
		Msg("Reconciled web search results")
	return inserted, nil
}

// attachProduct fulfills an existing placeholder row for the missing item
// when one exists, otherwise inserts a new quotation item.
func (s *Service) attachProduct(ctx context.Context, quotation *models.Quotation, item *models.MissingItem, product *models.Product) error {
	quantity := item.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	placeholders, err := s.storage.Quotations().ListPlaceholderItems(ctx, quotation.ID)
	if err != nil {
		return fmt.Errorf("failed to list placeholder items: %w", err)
	}
	for _, placeholder := range placeholders {
		if placeholder.MissingItemID != item.ID {
			continue
		}
		placeholder.ProductID = product.ID
		placeholder.Name = product.Name
		placeholder.Price = product.PriceValue
		placeholder.Currency = product.Currency
		placeholder.Provider = product.SupplierName
		placeholder.Quantity = quantity
		placeholder.Status = true
		return s.storage.Quotations().SaveItem(ctx, placeholder)
	}

	return s.storage.Quotations().SaveItem(ctx, &models.QuotationItem{
		ID:            common.NewItemID(),
		QuotationID:   quotation.ID,
		ProductID:     product.ID,
		Name:          product.Name,
		Price:         product.PriceValue,
		Currency:      product.Currency,
		Provider:      product.SupplierName,
		Quantity:      quantity,
		Status:        true,
		MissingItemID: item.ID,
		CreatedAt:     time.Now(),
	})
}

// appendReports adds each job's refinement report to the quotation's report
// record, creating the record on first use.
func (s *Service) appendReports(ctx context.Context, quotationID string, results []models.JobResult) error {
	var reports []models.RankReport
	for _, result := range results {
		if result.Report != nil {
			reports = append(reports, *result.Report)
		}
	}
	if len(reports) == 0 {
		return nil
	}

	record, err := s.storage.Reports().GetReportByQuotation(ctx, quotationID)
	if err != nil {
		return err
	}
	now := time.Now()
	if record == nil {
		record = &models.QuotationReport{
			ID:          common.NewReportID(),
			QuotationID: quotationID,
			CreatedAt:   now,
		}
	}
	record.WebAnalysis = append(record.WebAnalysis, reports...)
	record.UpdatedAt = now
	return s.storage.Reports().SaveReport(ctx, record)
}

// RecalculateBudget sums price x quantity over the quotation's items and
// writes the total back onto the quotation record.
func (s *Service) RecalculateBudget(ctx context.Context, quotationID string) (float64, error) {
	quotation, err := s.storage.Quotations().GetQuotation(ctx, quotationID)
	if err != nil {
		return 0, fmt.Errorf("failed to load quotation %s: %w", quotationID, err)
	}
	items, err := s.storage.Quotations().ListItems(ctx, quotationID)
	if err != nil {
		return 0, fmt.Errorf("failed to list quotation items: %w", err)
	}

	total := 0.0
	for _, item := range items {
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		total += item.Price * float64(quantity)
	}

	quotation.Total = total
	quotation.UpdatedAt = time.Now()
	if err := s.storage.Quotations().SaveQuotation(ctx, quotation); err != nil {
		return 0, fmt.Errorf("failed to save quotation total: %w", err)
	}
	return total, nil
}

// matchMissingItem finds the missing item a product belongs to: id match
// first, then a best-effort name substring fallback for products that carry
// no id.
func matchMissingItem(product *models.Product, missing []*models.MissingItem) int {
	if product.MissingItemID != "" {
		for i, item := range missing {
			if item.ID == product.MissingItemID {
				return i
			}
		}
		return -1
	}
	productName := strings.ToLower(strings.TrimSpace(product.Name))
	if productName == "" {
		return -1
	}
	for i, item := range missing {
		itemName := strings.ToLower(strings.TrimSpace(item.Name))
		if itemName == "" {
			continue
		}
		if strings.Contains(productName, itemName) || strings.Contains(itemName, productName) {
			return i
		}
	}
	return -1
}
