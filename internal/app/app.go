package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/cotalabs/cotiza/internal/common"
	"github.com/cotalabs/cotiza/internal/handlers"
	"github.com/cotalabs/cotiza/internal/interfaces"
	"github.com/cotalabs/cotiza/internal/jobs"
	"github.com/cotalabs/cotiza/internal/services/crm"
	"github.com/cotalabs/cotiza/internal/services/events"
	"github.com/cotalabs/cotiza/internal/services/llm"
	"github.com/cotalabs/cotiza/internal/services/pdfrender"
	"github.com/cotalabs/cotiza/internal/services/quotation"
	"github.com/cotalabs/cotiza/internal/services/sitesearch"
	"github.com/cotalabs/cotiza/internal/services/webbusca"
	badgerstorage "github.com/cotalabs/cotiza/internal/storage/badger"
)

// App holds all application components and dependencies.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager
	EventService   interfaces.EventService

	// LLM capabilities
	ProviderFactory *llm.ProviderFactory
	Ranker          interfaces.Ranker
	Classifier      interfaces.Classifier
	Weigher         interfaces.Weigher

	// Domain services
	SiteSearch       *sitesearch.Service
	JobManager       *jobs.Manager
	JobPruner        *jobs.Pruner
	WebBuscaService  *webbusca.Service
	QuotationService *quotation.Service
	CRMClient        *crm.Client
	PDFRenderer      *pdfrender.Renderer

	// HTTP handlers
	BackgroundHandler *handlers.BackgroundHandler
	QuotationHandler  *handlers.QuotationHandler
	SupplierHandler   *handlers.SupplierHandler
	WebBuscaHandler   *handlers.WebBuscaHandler
	WSHandler         *handlers.WebSocketHandler
	StatusHandler     *handlers.StatusHandler
}

// New wires the full application: storage, LLM capabilities, site search, the
// job manager and all HTTP handlers.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: config,
		Logger: logger,
	}

	storageManager, err := badgerstorage.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.StorageManager = storageManager

	a.EventService = events.NewService(logger)

	a.ProviderFactory = llm.NewProviderFactory(&config.Gemini, &config.Claude, &config.LLM, storageManager.KV(), logger)
	a.Ranker = llm.NewRanker(a.ProviderFactory, config.LLM.RankModel, logger)
	a.Classifier = llm.NewClassifier(a.ProviderFactory, config.LLM.ClassifyModel, logger)
	a.Weigher = llm.NewWeigher(a.ProviderFactory, config.LLM.WeighModel, logger)

	a.SiteSearch = sitesearch.NewService(config.SiteSearch, logger)

	a.JobManager = jobs.NewManager(jobs.WorkerDeps{
		Suppliers:  storageManager.Suppliers(),
		Products:   storageManager.Products(),
		Searcher:   a.SiteSearch,
		Ranker:     a.Ranker,
		Classifier: a.Classifier,
	}, config.Jobs, a.EventService, logger)

	a.JobPruner = jobs.NewPruner(a.JobManager, config.Jobs, logger)
	if err := a.JobPruner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start job pruner: %w", err)
	}

	a.WebBuscaService = webbusca.NewService(a.JobManager, storageManager, a.Weigher, config.Jobs, logger)

	a.CRMClient = crm.NewClient(config.CRM, logger)
	a.PDFRenderer = pdfrender.NewRenderer()
	a.QuotationService = quotation.NewService(storageManager, a.CRMClient, logger)

	a.BackgroundHandler = handlers.NewBackgroundHandler(a.JobManager, logger)
	a.QuotationHandler = handlers.NewQuotationHandler(a.QuotationService, a.WebBuscaService, a.PDFRenderer, logger)
	a.SupplierHandler = handlers.NewSupplierHandler(storageManager.Suppliers(), logger)
	a.WebBuscaHandler = handlers.NewWebBuscaHandler(a.WebBuscaService, storageManager, logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, config.WebSocket, logger)
	a.StatusHandler = handlers.NewStatusHandler(logger)

	logger.Info().Msg("Application initialized")
	return a, nil
}

// Close releases all resources in reverse initialization order.
func (a *App) Close() error {
	if a.WSHandler != nil {
		a.WSHandler.Close()
	}
	if a.JobPruner != nil {
		a.JobPruner.Stop()
	}
	if a.JobManager != nil {
		a.JobManager.Shutdown()
	}
	if a.SiteSearch != nil {
		a.SiteSearch.Shutdown()
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}
	a.Logger.Info().Msg("Application shut down")
	return nil
}
