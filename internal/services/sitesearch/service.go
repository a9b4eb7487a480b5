package sitesearch

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/cotalabs/cotiza/internal/common"
	"github.com/cotalabs/cotiza/internal/interfaces"
	"github.com/cotalabs/cotiza/internal/models"
)

// Service is the rate-limited site searcher handed to workers. It wraps the
// scraper with per-domain rate limiting; fan-out across targets is driven by
// the worker so that progress can be reported per site.
type Service struct {
	scraper *Scraper
	limiter *RateLimiter
	logger  arbor.ILogger
}

// NewService wires the scraper, optional renderer and rate limiter from
// configuration.
func NewService(config common.SiteSearchConfig, logger arbor.ILogger) *Service {
	var renderer *Renderer
	if config.EnableRendering {
		renderer = NewRenderer(config, logger)
	}
	return &Service{
		scraper: NewScraper(config, renderer, logger),
		limiter: NewRateLimiter(config.RequestsPerSec, config.Burst),
		logger:  logger,
	}
}

// Search implements interfaces.SiteSearcher with per-domain rate limiting.
func (s *Service) Search(ctx context.Context, target interfaces.SearchTarget, term string, limit int) ([]models.Product, error) {
	searchURL := BuildSearchURL(target.URLPattern, term)
	if err := s.limiter.Wait(ctx, searchURL); err != nil {
		return nil, err
	}
	return s.scraper.Search(ctx, target, term, limit)
}

// Shutdown releases the headless browser if one was started.
func (s *Service) Shutdown() {
	if s.scraper.renderer != nil {
		s.scraper.renderer.Shutdown()
	}
}
