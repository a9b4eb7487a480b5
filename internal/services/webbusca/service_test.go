package webbusca

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/cotalabs/cotiza/internal/common"
	"github.com/cotalabs/cotiza/internal/interfaces"
	"github.com/cotalabs/cotiza/internal/jobs"
	"github.com/cotalabs/cotiza/internal/models"
)

type singleSupplier struct{}

func (singleSupplier) SaveSupplier(context.Context, *models.Supplier) error { return nil }

func (singleSupplier) GetSupplier(_ context.Context, id string) (*models.Supplier, error) {
	return &models.Supplier{ID: id, Name: "Site A", URLPattern: "https://a.example/*", Active: true}, nil
}

func (singleSupplier) ListSuppliers(context.Context, bool) ([]*models.Supplier, error) {
	return []*models.Supplier{{ID: "forn_a", Name: "Site A", URLPattern: "https://a.example/*", Active: true}}, nil
}

func (singleSupplier) DeleteSupplier(context.Context, string) error { return nil }

type termSearcher struct {
	fn func(term string) ([]models.Product, error)
}

func (s *termSearcher) Search(_ context.Context, _ interfaces.SearchTarget, term string, _ int) ([]models.Product, error) {
	return s.fn(term)
}

func testConfig() common.JobsConfig {
	return common.JobsConfig{
		DefaultResultCount: 5,
		DefaultRigor:       3,
		PollInterval:       "20ms",
		MaxWait:            "1s",
		DefaultWebWeight:   0.5,
	}
}

func newTestService(searcher interfaces.SiteSearcher, storage *memoryStorage) (*Service, *jobs.Manager) {
	logger := arbor.NewLogger()
	manager := jobs.NewManager(jobs.WorkerDeps{
		Suppliers: singleSupplier{},
		Products:  storage.Products(),
		Searcher:  searcher,
	}, testConfig(), nil, logger)
	return NewService(manager, storage, nil, testConfig(), logger), manager
}

func TestWaitForJobsMixedOutcome(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	searcher := &termSearcher{fn: func(term string) ([]models.Product, error) {
		if term == "lento" {
			<-release
			return nil, nil
		}
		return []models.Product{{Name: "rapido produto", PriceValue: 10}}, nil
	}}
	storage := newMemoryStorage()
	svc, manager := newTestService(searcher, storage)

	fast, err := manager.Create(models.JobParams{Term: "rapido", SupplierIDs: []string{"forn_a"}})
	require.NoError(t, err)
	slow, err := manager.Create(models.JobParams{Term: "lento", SupplierIDs: []string{"forn_a"}})
	require.NoError(t, err)

	handles := []string{fast.ID, slow.ID, "job_desconhecido"}
	outcome := svc.WaitForJobs(context.Background(), handles, 300*time.Millisecond, 20*time.Millisecond)

	require.Len(t, outcome.FullResults, 3, "every handle contributes an entry")
	require.Len(t, outcome.AcceptedProducts, 1, "only the completed job contributes products")
	assert.Equal(t, "rapido produto", outcome.AcceptedProducts[0].Name)
	assert.Len(t, outcome.FullResults[0].Products, 1)
	assert.Empty(t, outcome.FullResults[1].Products, "timed-out job degrades to empty entry")
	assert.Empty(t, outcome.FullResults[2].Products, "unknown handle degrades to empty entry")
}

func seedQuotation(t *testing.T, storage *memoryStorage) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, storage.Quotations().SaveQuotation(ctx, &models.Quotation{
		ID:     "cot_1",
		Name:   "Escritorio novo",
		Status: models.QuotationStatusOpen,
	}))
	require.NoError(t, storage.MissingItems().SaveMissingItem(ctx, &models.MissingItem{
		ID:          "falt_1",
		QuotationID: "cot_1",
		Name:        "cabo hdmi",
		Quantity:    2,
	}))
	require.NoError(t, storage.Quotations().SaveItem(ctx, &models.QuotationItem{
		ID:            "item_ph1",
		QuotationID:   "cot_1",
		Name:          "cabo hdmi",
		Quantity:      2,
		Status:        false,
		MissingItemID: "falt_1",
	}))
}

func TestInsertResultsFulfillsPlaceholderAndCompletes(t *testing.T) {
	storage := newMemoryStorage()
	seedQuotation(t, storage)
	svc, _ := newTestService(&termSearcher{}, storage)
	ctx := context.Background()

	results := []models.JobResult{{
		Products: []models.Product{{
			ID:            "prod_9",
			Name:          "Cabo HDMI 2m",
			PriceValue:    100,
			SupplierName:  "Site A",
			MissingItemID: "falt_1",
		}},
		Report:   &models.RankReport{Choice: &models.RankChoice{Index: 0, Name: "Cabo HDMI 2m"}},
		Quantity: 2,
	}}

	inserted, err := svc.InsertResultsIntoQuotation(ctx, "cot_1", results)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	missing, err := storage.MissingItems().ListMissingItems(ctx, "cot_1")
	require.NoError(t, err)
	assert.Empty(t, missing)

	items, err := storage.Quotations().ListItems(ctx, "cot_1")
	require.NoError(t, err)
	require.Len(t, items, 1, "placeholder was fulfilled, not duplicated")
	assert.True(t, items[0].Status)
	assert.Equal(t, "prod_9", items[0].ProductID)
	assert.Equal(t, 100.0, items[0].Price)
	assert.Equal(t, "Site A", items[0].Provider)

	quotation, err := storage.Quotations().GetQuotation(ctx, "cot_1")
	require.NoError(t, err)
	assert.Equal(t, models.QuotationStatusComplete, quotation.Status)
	assert.Equal(t, 200.0, quotation.Total)

	record, err := storage.Reports().GetReportByQuotation(ctx, "cot_1")
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Len(t, record.WebAnalysis, 1)
	assert.Equal(t, "Cabo HDMI 2m", record.WebAnalysis[0].Choice.Name)
}

func TestInsertResultsIsIdempotent(t *testing.T) {
	storage := newMemoryStorage()
	seedQuotation(t, storage)
	svc, _ := newTestService(&termSearcher{}, storage)
	ctx := context.Background()

	results := []models.JobResult{{
		Products: []models.Product{{
			ID:            "prod_9",
			Name:          "Cabo HDMI 2m",
			PriceValue:    100,
			MissingItemID: "falt_1",
		}},
		Report:   &models.RankReport{Choice: &models.RankChoice{Index: 0, Name: "Cabo HDMI 2m"}},
		Quantity: 2,
	}}

	inserted, err := svc.InsertResultsIntoQuotation(ctx, "cot_1", results)
	require.NoError(t, err)
	require.Equal(t, 1, inserted)

	inserted, err = svc.InsertResultsIntoQuotation(ctx, "cot_1", results)
	require.NoError(t, err)
	assert.Zero(t, inserted, "cleared missing items must not be re-inserted")

	items, err := storage.Quotations().ListItems(ctx, "cot_1")
	require.NoError(t, err)
	assert.Len(t, items, 1, "second reconciliation must not duplicate items")

	record, err := storage.Reports().GetReportByQuotation(ctx, "cot_1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Len(t, record.WebAnalysis, 1, "second reconciliation must not duplicate relatorios")
}

func TestInsertResultsFuzzyNameFallback(t *testing.T) {
	storage := newMemoryStorage()
	seedQuotation(t, storage)
	svc, _ := newTestService(&termSearcher{}, storage)
	ctx := context.Background()

	// No missing-item id on the product; the lowercase substring heuristic
	// has to find the faltante.
	results := []models.JobResult{{
		Products: []models.Product{{
			ID:         "prod_7",
			Name:       "Cabo HDMI 2.1 premium banhado a ouro",
			PriceValue: 80,
		}},
	}}

	inserted, err := svc.InsertResultsIntoQuotation(ctx, "cot_1", results)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	missing, err := storage.MissingItems().ListMissingItems(ctx, "cot_1")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestInsertResultsUnmatchedProductSkipped(t *testing.T) {
	storage := newMemoryStorage()
	seedQuotation(t, storage)
	svc, _ := newTestService(&termSearcher{}, storage)
	ctx := context.Background()

	results := []models.JobResult{{
		Products: []models.Product{{
			ID:         "prod_8",
			Name:       "Mousepad gamer",
			PriceValue: 30,
		}},
	}}

	inserted, err := svc.InsertResultsIntoQuotation(ctx, "cot_1", results)
	require.NoError(t, err)
	assert.Zero(t, inserted)

	missing, err := storage.MissingItems().ListMissingItems(ctx, "cot_1")
	require.NoError(t, err)
	assert.Len(t, missing, 1, "unmatched product must not consume missing items")
}

func TestRecalculateBudget(t *testing.T) {
	storage := newMemoryStorage()
	ctx := context.Background()
	require.NoError(t, storage.Quotations().SaveQuotation(ctx, &models.Quotation{
		ID: "cot_2", Name: "Sala de reuniao", Status: models.QuotationStatusOpen,
	}))
	require.NoError(t, storage.Quotations().SaveItem(ctx, &models.QuotationItem{
		ID: "item_1", QuotationID: "cot_2", Name: "monitor", Price: 100, Quantity: 2, Status: true,
	}))
	require.NoError(t, storage.Quotations().SaveItem(ctx, &models.QuotationItem{
		ID: "item_2", QuotationID: "cot_2", Name: "suporte", Price: 50, Quantity: 1, Status: true,
	}))

	svc, _ := newTestService(&termSearcher{}, storage)
	total, err := svc.RecalculateBudget(ctx, "cot_2")
	require.NoError(t, err)
	assert.Equal(t, 250.0, total)

	quotation, err := storage.Quotations().GetQuotation(ctx, "cot_2")
	require.NoError(t, err)
	assert.Equal(t, 250.0, quotation.Total)
}

func TestCreateJobsForMissingItemsAppliesDefaultWeight(t *testing.T) {
	storage := newMemoryStorage()
	searcher := &termSearcher{fn: func(string) ([]models.Product, error) { return nil, nil }}
	svc, _ := newTestService(searcher, storage)
	ctx := context.Background()

	items := []models.MissingItem{
		{ID: "falt_a", QuotationID: "cot_1", Name: "notebook", Quantity: 1},
		{ID: "falt_b", QuotationID: "cot_1", Name: "dock usb-c", Quantity: 1},
	}
	for i := range items {
		require.NoError(t, storage.MissingItems().SaveMissingItem(ctx, &items[i]))
	}

	handles := svc.CreateJobsForMissingItems(ctx, items, "fallback", true)
	assert.Len(t, handles, 2, "one handle per missing item")

	for _, id := range []string{"falt_a", "falt_b"} {
		stored, err := storage.MissingItems().GetMissingItem(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, stored.WebWeight, "weighting pre-pass must score every item")
		assert.Equal(t, 0.5, *stored.WebWeight)
	}
}
