package quotation

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"

	"github.com/cotalabs/cotiza/internal/common"
	"github.com/cotalabs/cotiza/internal/interfaces"
	"github.com/cotalabs/cotiza/internal/models"
	"github.com/cotalabs/cotiza/internal/services/crm"
)

// Detail is a quotation with its line items and outstanding missing items.
type Detail struct {
	Quotation    *models.Quotation       `json:"cotacao"`
	Items        []*models.QuotationItem `json:"itens"`
	MissingItems []*models.MissingItem   `json:"faltantes"`
}

// Service owns quotation assembly: CRUD over quotations, their items and
// missing items, plus report rendering and the CRM hand-off when a quotation
// completes.
type Service struct {
	storage interfaces.StorageManager
	crm     *crm.Client // nil when the integration is disabled
	logger  arbor.ILogger
}

func NewService(storage interfaces.StorageManager, crmClient *crm.Client, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		crm:     crmClient,
		logger:  logger,
	}
}

// Create opens a new quotation.
func (s *Service) Create(ctx context.Context, name, userID string) (*models.Quotation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("quotation name is required")
	}
	now := time.Now()
	quotation := &models.Quotation{
		ID:        common.NewQuotationID(),
		Name:      name,
		UserID:    userID,
		Status:    models.QuotationStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.storage.Quotations().SaveQuotation(ctx, quotation); err != nil {
		return nil, fmt.Errorf("failed to save quotation: %w", err)
	}
	return quotation, nil
}

// Get returns the quotation with its items and missing items.
func (s *Service) Get(ctx context.Context, id string) (*Detail, error) {
	quotation, err := s.storage.Quotations().GetQuotation(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.storage.Quotations().ListItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	missing, err := s.storage.MissingItems().ListMissingItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list missing items: %w", err)
	}
	return &Detail{Quotation: quotation, Items: items, MissingItems: missing}, nil
}

// List returns quotations, most recent first.
func (s *Service) List(ctx context.Context, limit int) ([]*models.Quotation, error) {
	return s.storage.Quotations().ListQuotations(ctx, limit)
}

// Delete removes a quotation, its items and its missing items.
func (s *Service) Delete(ctx context.Context, id string) error {
	missing, err := s.storage.MissingItems().ListMissingItems(ctx, id)
	if err == nil {
		for _, item := range missing {
			if err := s.storage.MissingItems().DeleteMissingItem(ctx, item.ID); err != nil {
				s.logger.Warn().Str("missing_item_id", item.ID).Err(err).Msg("Failed to delete missing item")
			}
		}
	}
	return s.storage.Quotations().DeleteQuotation(ctx, id)
}

// AddItem appends a fulfilled line to a quotation.
func (s *Service) AddItem(ctx context.Context, quotationID string, item *models.QuotationItem) (*models.QuotationItem, error) {
	if _, err := s.storage.Quotations().GetQuotation(ctx, quotationID); err != nil {
		return nil, err
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	item.ID = common.NewItemID()
	item.QuotationID = quotationID
	item.Status = true
	item.CreatedAt = time.Now()
	if err := s.storage.Quotations().SaveItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to save item: %w", err)
	}
	return item, nil
}

// AddMissingItem records a line that local inventory cannot satisfy: a
// faltante entry plus a placeholder item row linked to it, awaiting
// fulfillment by a web search.
func (s *Service) AddMissingItem(ctx context.Context, quotationID string, item *models.MissingItem) (*models.MissingItem, error) {
	if _, err := s.storage.Quotations().GetQuotation(ctx, quotationID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(item.Name) == "" {
		return nil, fmt.Errorf("missing item name is required")
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	item.ID = common.NewMissingItemID()
	item.QuotationID = quotationID
	item.CreatedAt = time.Now()
	if err := s.storage.MissingItems().SaveMissingItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to save missing item: %w", err)
	}

	placeholder := &models.QuotationItem{
		ID:            common.NewItemID(),
		QuotationID:   quotationID,
		Name:          item.Name,
		Quantity:      item.Quantity,
		Status:        false,
		MissingItemID: item.ID,
		CreatedAt:     time.Now(),
	}
	if err := s.storage.Quotations().SaveItem(ctx, placeholder); err != nil {
		return nil, fmt.Errorf("failed to save placeholder item: %w", err)
	}
	return item, nil
}

// ListPlaceholders returns the unfulfilled item rows of a quotation.
func (s *Service) ListPlaceholders(ctx context.Context, quotationID string) ([]*models.QuotationItem, error) {
	return s.storage.Quotations().ListPlaceholderItems(ctx, quotationID)
}

// MarkComplete flips the quotation to complete and hands it to the CRM. The
// CRM push is fire-and-forget: a failure is logged, never returned.
func (s *Service) MarkComplete(ctx context.Context, id string) (*models.Quotation, error) {
	quotation, err := s.storage.Quotations().GetQuotation(ctx, id)
	if err != nil {
		return nil, err
	}
	if quotation.Status != models.QuotationStatusComplete {
		quotation.Status = models.QuotationStatusComplete
		quotation.UpdatedAt = time.Now()
		if err := s.storage.Quotations().SaveQuotation(ctx, quotation); err != nil {
			return nil, fmt.Errorf("failed to save quotation: %w", err)
		}
	}
	s.pushToCRM(quotation)
	return quotation, nil
}

func (s *Service) pushToCRM(quotation *models.Quotation) {
	if s.crm == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.crm.PushOpportunity(ctx, quotation); err != nil {
			s.logger.Warn().Str("quotation_id", quotation.ID).Err(err).Msg("CRM push failed")
		}
	}()
}

// ReportHTML renders the quotation's accumulated web-analysis reports as an
// HTML fragment. Returns empty when no report exists yet.
func (s *Service) ReportHTML(ctx context.Context, quotationID string) (string, error) {
	record, err := s.storage.Reports().GetReportByQuotation(ctx, quotationID)
	if err != nil {
		return "", err
	}
	if record == nil || len(record.WebAnalysis) == 0 {
		return "", nil
	}

	markdown := buildReportMarkdown(record)
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return buf.String(), nil
}

// buildReportMarkdown flattens the per-job rank reports into one markdown
// document, one section per analysis.
func buildReportMarkdown(record *models.QuotationReport) string {
	var b strings.Builder
	b.WriteString("# Analise de busca web\n\n")
	for i, analysis := range record.WebAnalysis {
		fmt.Fprintf(&b, "## Busca %d\n\n", i+1)
		if analysis.Error != "" {
			fmt.Fprintf(&b, "Falha: %s\n\n", analysis.Error)
			continue
		}
		if analysis.Choice != nil {
			fmt.Fprintf(&b, "**Escolha:** %s\n\n", analysis.Choice.Name)
			if analysis.Choice.Rationale != "" {
				fmt.Fprintf(&b, "%s\n\n", analysis.Choice.Rationale)
			}
		}
		if len(analysis.Criteria) > 0 {
			b.WriteString("**Criterios:**\n\n")
			for _, criterion := range analysis.Criteria {
				fmt.Fprintf(&b, "- %s\n", criterion)
			}
			b.WriteString("\n")
		}
		for _, alt := range analysis.Alternatives {
			fmt.Fprintf(&b, "- Alternativa: %s (pontuacao %.1f)\n", alt.Name, alt.Score)
		}
		if len(analysis.Alternatives) > 0 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
