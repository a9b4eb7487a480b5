package sitesearch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/cotalabs/cotiza/internal/common"
)

// Renderer fetches pages through a headless browser for suppliers whose
// result listings are built client-side. The browser is started lazily on
// first use and shared across jobs.
type Renderer struct {
	config        common.SiteSearchConfig
	logger        arbor.ILogger
	mu            sync.Mutex
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	initialized   bool
}

// NewRenderer creates a JS renderer. The browser process is not started
// until FetchHTML is first called.
func NewRenderer(config common.SiteSearchConfig, logger arbor.ILogger) *Renderer {
	return &Renderer{
		config: config,
		logger: logger,
	}
}

func (r *Renderer) ensureBrowser() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserAgent(r.config.UserAgent),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(s string, i ...interface{}) {
			r.logger.Debug().Msgf("chromedp: "+s, i...)
		}),
	)

	// Startup test so callers get a clear error instead of a hang
	testCtx, testCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer testCancel()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("browser failed startup test: %w", err)
	}

	r.browserCtx = browserCtx
	r.browserCancel = browserCancel
	r.allocCancel = allocCancel
	r.initialized = true
	r.logger.Info().Msg("Headless browser initialized")

	return nil
}

// FetchHTML navigates to the URL, waits for scripts to settle and returns
// the rendered document HTML.
func (r *Renderer) FetchHTML(ctx context.Context, url string) (string, error) {
	if err := r.ensureBrowser(); err != nil {
		return "", err
	}

	tabCtx, tabCancel := chromedp.NewContext(r.browserCtx)
	defer tabCancel()

	timeout := r.config.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, timeout)
	defer timeoutCancel()

	// Honor caller cancellation as well as the tab timeout
	go func() {
		select {
		case <-ctx.Done():
			tabCancel()
		case <-tabCtx.Done():
		}
	}()

	waitTime := r.config.RenderWaitTime
	if waitTime <= 0 {
		waitTime = 3 * time.Second
	}

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(waitTime),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}

	return html, nil
}

// Shutdown stops the shared browser process.
func (r *Renderer) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return
	}
	r.browserCancel()
	r.allocCancel()
	r.initialized = false
	r.logger.Info().Msg("Headless browser stopped")
}
