package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/cotalabs/cotiza/internal/interfaces"
	"github.com/cotalabs/cotiza/internal/models"
)

// ---- test doubles for the worker's collaborators ----

type stubSuppliers struct {
	suppliers map[string]*models.Supplier
}

func newStubSuppliers(suppliers ...*models.Supplier) *stubSuppliers {
	s := &stubSuppliers{suppliers: make(map[string]*models.Supplier)}
	for _, supplier := range suppliers {
		s.suppliers[supplier.ID] = supplier
	}
	return s
}

func (s *stubSuppliers) SaveSupplier(_ context.Context, supplier *models.Supplier) error {
	s.suppliers[supplier.ID] = supplier
	return nil
}

func (s *stubSuppliers) GetSupplier(_ context.Context, id string) (*models.Supplier, error) {
	supplier, ok := s.suppliers[id]
	if !ok {
		return nil, fmt.Errorf("supplier not found: %s", id)
	}
	return supplier, nil
}

func (s *stubSuppliers) ListSuppliers(_ context.Context, activeOnly bool) ([]*models.Supplier, error) {
	var out []*models.Supplier
	for _, supplier := range s.suppliers {
		if activeOnly && !supplier.Active {
			continue
		}
		out = append(out, supplier)
	}
	return out, nil
}

func (s *stubSuppliers) DeleteSupplier(_ context.Context, id string) error {
	delete(s.suppliers, id)
	return nil
}

type stubSearcher struct {
	fn func(target interfaces.SearchTarget, term string, limit int) ([]models.Product, error)
}

func (s *stubSearcher) Search(_ context.Context, target interfaces.SearchTarget, term string, limit int) ([]models.Product, error) {
	return s.fn(target, term, limit)
}

type stubRanker struct {
	decision *interfaces.RankDecision
	err      error
}

func (s *stubRanker) Rank(context.Context, *interfaces.RankRequest) (*interfaces.RankDecision, error) {
	return s.decision, s.err
}

type stubClassifier struct {
	category string
	err      error
}

func (s *stubClassifier) Classify(context.Context, *models.Product) (string, error) {
	return s.category, s.err
}

// stubProducts records SaveProducts calls and can fail per supplier.
type stubProducts struct {
	mu       sync.Mutex
	calls    map[string][]*models.Product
	failFor  map[string]error
	perGroup map[string]*interfaces.BulkSaveResult
}

func newStubProducts() *stubProducts {
	return &stubProducts{
		calls:    make(map[string][]*models.Product),
		failFor:  make(map[string]error),
		perGroup: make(map[string]*interfaces.BulkSaveResult),
	}
}

func (s *stubProducts) SaveProducts(_ context.Context, supplierID, _ string, products []*models.Product) (*interfaces.BulkSaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[supplierID] = append(s.calls[supplierID], products...)
	if err, ok := s.failFor[supplierID]; ok {
		return nil, err
	}
	if result, ok := s.perGroup[supplierID]; ok {
		return result, nil
	}
	return &interfaces.BulkSaveResult{Saved: len(products)}, nil
}

func (s *stubProducts) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, products := range s.calls {
		total += len(products)
	}
	return total
}

func (s *stubProducts) GetProduct(context.Context, string) (*models.Product, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *stubProducts) ListProducts(context.Context, string, int) ([]*models.Product, error) {
	return nil, nil
}

func (s *stubProducts) DeleteProduct(context.Context, string) error {
	return nil
}

// collect drains a worker channel and returns all messages in order.
func collect(ch <-chan workerMessage) []workerMessage {
	var messages []workerMessage
	for msg := range ch {
		messages = append(messages, msg)
	}
	return messages
}

func activeSupplier(id, name, pattern string) *models.Supplier {
	return &models.Supplier{
		ID:          id,
		Name:        name,
		URLPattern:  pattern,
		MarketScale: models.MarketScaleNational,
		Active:      true,
	}
}
