package webbusca

import (
	"context"
	"fmt"
	"sync"

	"github.com/cotalabs/cotiza/internal/interfaces"
	"github.com/cotalabs/cotiza/internal/models"
)

// memoryStorage is an in-memory StorageManager for reconciliation tests.
type memoryStorage struct {
	mu         sync.Mutex
	quotations map[string]*models.Quotation
	items      map[string]*models.QuotationItem
	missing    map[string]*models.MissingItem
	reports    map[string]*models.QuotationReport
	products   map[string]*models.Product
	kv         map[string]string
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{
		quotations: make(map[string]*models.Quotation),
		items:      make(map[string]*models.QuotationItem),
		missing:    make(map[string]*models.MissingItem),
		reports:    make(map[string]*models.QuotationReport),
		products:   make(map[string]*models.Product),
		kv:         make(map[string]string),
	}
}

func (m *memoryStorage) Products() interfaces.ProductStorage         { return (*memoryProducts)(m) }
func (m *memoryStorage) Suppliers() interfaces.SupplierStorage       { return nil }
func (m *memoryStorage) Quotations() interfaces.QuotationStorage     { return (*memoryQuotations)(m) }
func (m *memoryStorage) MissingItems() interfaces.MissingItemStorage { return (*memoryMissing)(m) }
func (m *memoryStorage) Reports() interfaces.ReportStorage           { return (*memoryReports)(m) }
func (m *memoryStorage) KV() interfaces.KeyValueStorage              { return nil }
func (m *memoryStorage) Close() error                                { return nil }

func (m *memoryStorage) itemsFor(quotationID string) []*models.QuotationItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.QuotationItem
	for _, item := range m.items {
		if item.QuotationID == quotationID {
			copied := *item
			out = append(out, &copied)
		}
	}
	return out
}

type memoryQuotations memoryStorage

func (m *memoryQuotations) SaveQuotation(_ context.Context, q *models.Quotation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *q
	m.quotations[q.ID] = &copied
	return nil
}

func (m *memoryQuotations) GetQuotation(_ context.Context, id string) (*models.Quotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotations[id]
	if !ok {
		return nil, fmt.Errorf("quotation not found: %s", id)
	}
	copied := *q
	return &copied, nil
}

func (m *memoryQuotations) ListQuotations(_ context.Context, _ int) ([]*models.Quotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Quotation
	for _, q := range m.quotations {
		copied := *q
		out = append(out, &copied)
	}
	return out, nil
}

func (m *memoryQuotations) DeleteQuotation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.quotations, id)
	for itemID, item := range m.items {
		if item.QuotationID == id {
			delete(m.items, itemID)
		}
	}
	return nil
}

func (m *memoryQuotations) SaveItem(_ context.Context, item *models.QuotationItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *item
	m.items[item.ID] = &copied
	return nil
}

func (m *memoryQuotations) GetItem(_ context.Context, id string) (*models.QuotationItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("item not found: %s", id)
	}
	copied := *item
	return &copied, nil
}

func (m *memoryQuotations) ListItems(_ context.Context, quotationID string) ([]*models.QuotationItem, error) {
	return (*memoryStorage)(m).itemsFor(quotationID), nil
}

func (m *memoryQuotations) ListPlaceholderItems(_ context.Context, quotationID string) ([]*models.QuotationItem, error) {
	all := (*memoryStorage)(m).itemsFor(quotationID)
	var out []*models.QuotationItem
	for _, item := range all {
		if !item.Status {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memoryQuotations) DeleteItem(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

type memoryMissing memoryStorage

func (m *memoryMissing) SaveMissingItem(_ context.Context, item *models.MissingItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *item
	m.missing[item.ID] = &copied
	return nil
}

func (m *memoryMissing) GetMissingItem(_ context.Context, id string) (*models.MissingItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.missing[id]
	if !ok {
		return nil, fmt.Errorf("missing item not found: %s", id)
	}
	copied := *item
	return &copied, nil
}

func (m *memoryMissing) ListMissingItems(_ context.Context, quotationID string) ([]*models.MissingItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.MissingItem
	for _, item := range m.missing {
		if item.QuotationID == quotationID {
			copied := *item
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memoryMissing) DeleteMissingItem(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.missing, id)
	return nil
}

type memoryReports memoryStorage

func (m *memoryReports) SaveReport(_ context.Context, r *models.QuotationReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *r
	m.reports[r.QuotationID] = &copied
	return nil
}

func (m *memoryReports) GetReportByQuotation(_ context.Context, quotationID string) (*models.QuotationReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[quotationID]
	if !ok {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

type memoryProducts memoryStorage

func (m *memoryProducts) SaveProducts(_ context.Context, _, _ string, products []*models.Product) (*interfaces.BulkSaveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, product := range products {
		if product.ID == "" {
			product.ID = fmt.Sprintf("prod_%d", len(m.products)+1)
		}
		copied := *product
		m.products[product.ID] = &copied
	}
	return &interfaces.BulkSaveResult{Saved: len(products)}, nil
}

func (m *memoryProducts) GetProduct(_ context.Context, id string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("product not found: %s", id)
	}
	copied := *product
	return &copied, nil
}

func (m *memoryProducts) ListProducts(context.Context, string, int) ([]*models.Product, error) {
	return nil, nil
}

func (m *memoryProducts) DeleteProduct(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
	return nil
}
