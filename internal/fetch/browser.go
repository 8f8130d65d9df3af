package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// Browser hands out page handles. Each concurrent navigation needs its own Page.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
}

// Page is a single browser tab.
type Page interface {
	Navigate(ctx context.Context, url string) (*Navigation, error)
	Close()
}

// Navigation is the outcome of loading a URL in a page.
type Navigation struct {
	FinalURL string
	Status   int
	HTML     string
}

// BrowserConfig configures the headless browser pool.
type BrowserConfig struct {
	// IdleTimeout tears the browser down after this long without open pages.
	IdleTimeout time.Duration
	// NavigationTimeout bounds a single Navigate call.
	NavigationTimeout time.Duration
	// RenderWait is extra time given to client-side rendering after the body is ready.
	RenderWait time.Duration
	UserAgent  string
}

// DefaultBrowserConfig returns the pool defaults.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		IdleTimeout:       2 * time.Minute,
		NavigationTimeout: 30 * time.Second,
		RenderWait:        2 * time.Second,
		UserAgent:         DefaultUserAgent,
	}
}

// BrowserPool owns at most one headless Chrome process. The process is started
// by the first NewPage call and stopped once no page has been open for IdleTimeout.
type BrowserPool struct {
	cfg    BrowserConfig
	logger *slog.Logger

	mu            sync.Mutex
	browserCtx    context.Context
	browserCancel context.CancelFunc
	openPages     int
	idleTimer     *time.Timer
	launches      int

	// overridable for tests
	launch func(cfg BrowserConfig) (context.Context, context.CancelFunc, error)
	newTab func(browserCtx context.Context) (context.Context, context.CancelFunc)
}

var _ Browser = (*BrowserPool)(nil)

// NewBrowserPool creates an idle pool; no browser is started yet.
func NewBrowserPool(cfg BrowserConfig, logger *slog.Logger) *BrowserPool {
	defaults := DefaultBrowserConfig()
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaults.IdleTimeout
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaults.NavigationTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BrowserPool{
		cfg:    cfg,
		logger: logger,
		launch: launchChrome,
		newTab: func(browserCtx context.Context) (context.Context, context.CancelFunc) {
			return chromedp.NewContext(browserCtx)
		},
	}
}

// NewPage opens a new tab, starting the browser if needed.
func (p *BrowserPool) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.idleTimer != nil {
		p.idleTimer.Stop()
		p.idleTimer = nil
	}

	if p.browserCtx == nil {
		browserCtx, cancel, err := p.launch(p.cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
		p.browserCtx = browserCtx
		p.browserCancel = cancel
		p.launches++
		p.logger.Debug("headless browser started")
	}

	tabCtx, tabCancel := p.newTab(p.browserCtx)
	p.openPages++

	return &chromePage{pool: p, ctx: tabCtx, cancel: tabCancel}, nil
}

// Close stops the browser immediately, regardless of open pages.
func (p *BrowserPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.idleTimer != nil {
		p.idleTimer.Stop()
		p.idleTimer = nil
	}
	p.shutdownLocked()
}

// Running reports whether a browser process is currently held.
func (p *BrowserPool) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.browserCtx != nil
}

func (p *BrowserPool) releasePage() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.openPages--
	if p.openPages > 0 || p.browserCtx == nil {
		return
	}
	p.idleTimer = time.AfterFunc(p.cfg.IdleTimeout, p.shutdownIfIdle)
}

func (p *BrowserPool) shutdownIfIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.openPages == 0 {
		p.shutdownLocked()
	}
}

func (p *BrowserPool) shutdownLocked() {
	if p.browserCancel != nil {
		p.browserCancel()
		p.logger.Debug("headless browser stopped")
	}
	p.browserCtx = nil
	p.browserCancel = nil
}

type chromePage struct {
	pool   *BrowserPool
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// Navigate loads url, waits for rendering and returns the final URL, status and DOM.
func (pg *chromePage) Navigate(ctx context.Context, url string) (*Navigation, error) {
	navCtx, cancel := context.WithTimeout(pg.ctx, pg.pool.cfg.NavigationTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	resp, err := chromedp.RunResponse(navCtx, chromedp.Navigate(url))
	if err != nil {
		return nil, fmt.Errorf("browser navigation failed: %w", err)
	}

	nav := &Navigation{}
	if resp != nil {
		nav.Status = int(resp.Status)
	}

	actions := []chromedp.Action{chromedp.WaitReady("body")}
	if pg.pool.cfg.RenderWait > 0 {
		actions = append(actions, chromedp.Sleep(pg.pool.cfg.RenderWait))
	}
	actions = append(actions,
		chromedp.Location(&nav.FinalURL),
		chromedp.OuterHTML("html", &nav.HTML),
	)
	if err := chromedp.Run(navCtx, actions...); err != nil {
		return nil, fmt.Errorf("browser rendering failed: %w", err)
	}

	return nav, nil
}

// Close closes the tab and returns it to the pool.
func (pg *chromePage) Close() {
	pg.once.Do(func() {
		pg.cancel()
		pg.pool.releasePage()
	})
}

func launchChrome(cfg BrowserConfig) (context.Context, context.CancelFunc, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(),
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(cfg.UserAgent),
		)...,
	)

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	// Running with no actions starts the browser process
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, nil, err
	}

	return browserCtx, func() {
		browserCancel()
		allocCancel()
	}, nil
}
