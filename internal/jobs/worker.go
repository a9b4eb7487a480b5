package jobs

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/cotalabs/cotiza/internal/interfaces"
	"github.com/cotalabs/cotiza/internal/models"
)

// WorkerDeps groups the services a search worker needs. All fields are
// required except Ranker and Classifier, which may be nil when refinement is
// never requested.
type WorkerDeps struct {
	Suppliers  interfaces.SupplierStorage
	Products   interfaces.ProductStorage
	Searcher   interfaces.SiteSearcher
	Ranker     interfaces.Ranker
	Classifier interfaces.Classifier
}

// searchWorker runs one job's search pipeline: resolve targets, query each
// site, refine the merged candidates, classify and persist the winners. It
// communicates with the manager only through its message channel, so a crash
// here can never corrupt the job table.
type searchWorker struct {
	jobID  string
	params models.JobParams
	deps   WorkerDeps
	logger arbor.ILogger
}

func newSearchWorker(jobID string, params models.JobParams, deps WorkerDeps, logger arbor.ILogger) *searchWorker {
	return &searchWorker{
		jobID:  jobID,
		params: params,
		deps:   deps,
		logger: logger,
	}
}

// Run executes the pipeline and closes ch when done. The recover below turns
// any panic into a terminal failure message; close is registered first so it
// runs after the failure message is sent.
func (w *searchWorker) Run(ctx context.Context, ch chan<- workerMessage) {
	start := time.Now()
	defer close(ch)
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error().
				Str("job_id", w.jobID).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Worker panicked")
			ch <- workerMessage{kind: msgFailed, err: fmt.Sprintf("falha interna do worker: %v", r)}
		}
	}()

	ch <- workerMessage{kind: msgStarted}

	targets, err := w.resolveTargets(ctx)
	if err != nil {
		ch <- workerMessage{kind: msgFailed, err: err.Error()}
		return
	}
	if len(targets) == 0 {
		ch <- workerMessage{kind: msgFailed, err: "nenhum fornecedor disponivel para a busca"}
		return
	}

	candidates, queried := w.search(ctx, targets, ch)
	if ctx.Err() != nil {
		ch <- workerMessage{kind: msgFailed, err: "busca cancelada"}
		return
	}

	products := candidates
	report := &models.RankReport{}
	if w.params.Refine {
		ch <- workerMessage{kind: msgProgress, progress: &models.JobProgress{
			Stage:            models.JobStageRefining,
			SuppliersQueried: queried,
			ProductsFound:    len(candidates),
		}}
		products, report = w.refine(ctx, candidates)
	}

	w.classify(ctx, products)

	var save *models.SaveOutcome
	if w.params.Persist && len(products) > 0 {
		ch <- workerMessage{kind: msgProgress, progress: &models.JobProgress{
			Stage:            models.JobStageSaving,
			SuppliersQueried: queried,
			ProductsFound:    len(products),
		}}
		save = w.persist(ctx, products)
	}

	ch <- workerMessage{kind: msgCompleted, result: &models.JobResult{
		Report:   report,
		Products: products,
		Quantity: w.params.Quantity,
		Save:     save,
		Elapsed:  time.Since(start).Milliseconds(),
	}}
}

// resolveTargets builds the list of sites to query. Explicit supplier IDs
// that are unknown or inactive are skipped with a warning rather than failing
// the whole job; ad-hoc URLs are appended as unregistered targets.
func (w *searchWorker) resolveTargets(ctx context.Context) ([]interfaces.SearchTarget, error) {
	var targets []interfaces.SearchTarget

	if len(w.params.SupplierIDs) > 0 {
		for _, id := range w.params.SupplierIDs {
			supplier, err := w.deps.Suppliers.GetSupplier(ctx, id)
			if err != nil {
				w.logger.Warn().Str("job_id", w.jobID).Str("supplier_id", id).Err(err).Msg("Supplier not found, skipping")
				continue
			}
			if !supplier.Active {
				w.logger.Warn().Str("job_id", w.jobID).Str("supplier_id", id).Msg("Supplier inactive, skipping")
				continue
			}
			targets = append(targets, supplierTarget(supplier))
		}
	} else if w.params.Term != "" {
		suppliers, err := w.deps.Suppliers.ListSuppliers(ctx, true)
		if err != nil {
			return nil, fmt.Errorf("failed to list suppliers: %w", err)
		}
		for _, supplier := range suppliers {
			targets = append(targets, supplierTarget(supplier))
		}
	}

	for _, raw := range w.params.AdHocURLs {
		target, err := adHocTarget(raw)
		if err != nil {
			w.logger.Warn().Str("job_id", w.jobID).Str("url", raw).Err(err).Msg("Invalid ad-hoc URL, skipping")
			continue
		}
		targets = append(targets, target)
	}

	return targets, nil
}

func supplierTarget(s *models.Supplier) interfaces.SearchTarget {
	return interfaces.SearchTarget{
		SupplierID:   s.ID,
		SupplierName: s.Name,
		URLPattern:   s.URLPattern,
		MarketScale:  s.MarketScale,
		RenderJS:     s.RenderJS,
		Selectors:    s.Selectors,
	}
}

// adHocTarget turns a caller-supplied URL into an unregistered search target.
// A bare URL without the "*" placeholder is kept as-is; the scraper falls
// back to a ?q= query parameter for those.
func adHocTarget(raw string) (interfaces.SearchTarget, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return interfaces.SearchTarget{}, fmt.Errorf("empty URL")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(strings.ReplaceAll(raw, "*", "term"))
	if err != nil || u.Host == "" {
		return interfaces.SearchTarget{}, fmt.Errorf("unparseable URL %q", raw)
	}
	return interfaces.SearchTarget{
		SupplierID:   "avulso_" + u.Host,
		SupplierName: u.Host,
		URLPattern:   raw,
		MarketScale:  models.MarketScaleNational,
	}, nil
}

// search queries every target, merging candidates in target order. Per-site
// failures are logged and skipped so one broken site cannot sink the job.
func (w *searchWorker) search(ctx context.Context, targets []interfaces.SearchTarget, ch chan<- workerMessage) ([]models.Product, int) {
	var candidates []models.Product
	queried := 0

	for _, target := range targets {
		if ctx.Err() != nil {
			return candidates, queried
		}
		found, err := w.deps.Searcher.Search(ctx, target, w.params.Term, w.params.ResultCount)
		queried++
		if err != nil {
			w.logger.Warn().
				Str("job_id", w.jobID).
				Str("supplier", target.SupplierName).
				Err(err).
				Msg("Site search failed")
		}
		for i := range found {
			found[i].SupplierID = target.SupplierID
			found[i].SupplierName = target.SupplierName
			found[i].MarketScale = target.MarketScale
			found[i].MissingItemID = w.params.MissingItemID
		}
		candidates = append(candidates, found...)

		ch <- workerMessage{kind: msgProgress, progress: &models.JobProgress{
			Stage:            models.JobStageSearching,
			SuppliersQueried: queried,
			ProductsFound:    len(candidates),
			Detail:           target.SupplierName,
		}}
	}
	return candidates, queried
}

// refine narrows the candidate list to at most one product. The step fails
// closed: a ranking error, a rejection or an out-of-range index all collapse
// the list to empty, with the reason recorded in the report. Better to save
// nothing than to save an unvetted candidate.
func (w *searchWorker) refine(ctx context.Context, candidates []models.Product) ([]models.Product, *models.RankReport) {
	if len(candidates) == 0 {
		return nil, &models.RankReport{Error: "nenhum candidato encontrado para refinar"}
	}
	if w.deps.Ranker == nil {
		return nil, &models.RankReport{Error: "refinamento indisponivel"}
	}

	decision, err := w.deps.Ranker.Rank(ctx, &interfaces.RankRequest{
		Term:        w.params.Term,
		Quantity:    w.params.Quantity,
		CostBenefit: w.params.CostBenefit,
		Rigor:       w.params.Rigor,
		WebWeight:   w.params.WebWeight,
		Candidates:  candidates,
	})
	if err != nil {
		w.logger.Warn().Str("job_id", w.jobID).Err(err).Msg("Refinement failed")
		return nil, &models.RankReport{Error: fmt.Sprintf("refinamento falhou: %v", err)}
	}

	report := decision.Report
	if decision.Index < 0 || decision.Index >= len(candidates) {
		w.logger.Info().
			Str("job_id", w.jobID).
			Int("candidates", len(candidates)).
			Msg("Refinement rejected all candidates")
		return nil, &report
	}
	return []models.Product{candidates[decision.Index]}, &report
}

// classify fills in missing categories. Classification failures are logged
// and left unset; they never fail the job.
func (w *searchWorker) classify(ctx context.Context, products []models.Product) {
	if w.deps.Classifier == nil {
		return
	}
	for i := range products {
		if products[i].Category != "" {
			continue
		}
		category, err := w.deps.Classifier.Classify(ctx, &products[i])
		if err != nil {
			w.logger.Warn().
				Str("job_id", w.jobID).
				Str("product", products[i].Name).
				Err(err).
				Msg("Classification failed")
			continue
		}
		products[i].Category = category
	}
}

// persist saves products grouped by supplier. Each group's outcome is
// recorded independently so a failing store for one supplier does not hide
// the saves that succeeded for another.
func (w *searchWorker) persist(ctx context.Context, products []models.Product) *models.SaveOutcome {
	groups := make(map[string][]*models.Product)
	var order []string
	for i := range products {
		id := products[i].SupplierID
		if _, seen := groups[id]; !seen {
			order = append(order, id)
		}
		groups[id] = append(groups[id], &products[i])
	}

	outcome := &models.SaveOutcome{}
	for _, supplierID := range order {
		group := groups[supplierID]
		detail := models.SupplierSaveDetail{SupplierID: supplierID}

		result, err := w.deps.Products.SaveProducts(ctx, supplierID, w.params.UserID, group)
		if err != nil {
			detail.Errors = len(group)
			detail.ErrorDetails = []string{err.Error()}
			w.logger.Warn().
				Str("job_id", w.jobID).
				Str("supplier_id", supplierID).
				Err(err).
				Msg("Bulk save failed")
		} else {
			detail.Saved = result.Saved
			detail.Errors = len(result.Errors)
			detail.ErrorDetails = result.Errors
		}

		outcome.Saved += detail.Saved
		outcome.Errors += detail.Errors
		outcome.Details = append(outcome.Details, detail)
	}
	return outcome
}
