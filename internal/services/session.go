package services

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"github.com/nexconsult/gstin-api/internal/config"
	"github.com/sirupsen/logrus"
)

// SessionManager owns the browser, its cookie jar and the single live page
type SessionManager interface {
	// Initialize launches the browser and opens the page. No-op when already live.
	Initialize(ctx context.Context) error

	// Page returns the live page, initializing the session first if needed
	Page(ctx context.Context) (Page, error)

	// SaveCookies snapshots the cookie jar to disk
	SaveCookies(ctx context.Context) error

	// KeepAlive checks page liveness and repairs the session
	KeepAlive(ctx context.Context) error

	// Restart closes and reinitializes the session
	Restart(ctx context.Context) error

	// Close saves cookies and releases the browser. Safe to call repeatedly.
	Close() error

	// Health returns session health status
	Health() map[string]interface{}
}

const stealthScript = `(function() {
	Object.defineProperty(navigator, 'webdriver', { get: () => undefined, configurable: true });
	Object.defineProperty(navigator, 'languages', { get: () => Object.freeze(['en-US', 'en']), configurable: true });
	if (!window.chrome) {
		Object.defineProperty(window, 'chrome', { value: {}, writable: true, configurable: false });
	}
	if (!window.chrome.runtime) { window.chrome.runtime = {}; }
})();`

const (
	cookieSaveTimeout = 5 * time.Second
	// heartbeatTimeout bounds the target listing KeepAlive does under the lock
	heartbeatTimeout = 10 * time.Second
)

// UserAgentFor returns a desktop Chrome user agent for the given GOOS
func UserAgentFor(goos string) string {
	switch goos {
	case "windows":
		return "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	case "darwin":
		return "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	default:
		return "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
}

// ChromeSession implements SessionManager on chromedp
type ChromeSession struct {
	config config.BrowserConfig
	logger *logrus.Logger
	jar    *CookieJar

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	page          *ChromePage
	userAgent     string
	startedAt     time.Time
	firstTabUsed  bool
	reinits       int

	heartbeatTimeout time.Duration
	fetchTargets     func(ctx context.Context) ([]*target.Info, error)

	initialized atomic.Bool
}

// NewChromeSession creates a session. The browser is launched lazily.
func NewChromeSession(cfg config.BrowserConfig, jar *CookieJar, logger *logrus.Logger) *ChromeSession {
	ua := cfg.UserAgent
	if ua == "" {
		ua = UserAgentFor(runtime.GOOS)
	}
	return &ChromeSession{
		config:           cfg,
		logger:           logger,
		jar:              jar,
		userAgent:        ua,
		heartbeatTimeout: heartbeatTimeout,
		fetchTargets:     chromedp.Targets,
	}
}

// Initialize launches the browser if needed and opens one page
func (s *ChromeSession) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initLocked(ctx)
}

func (s *ChromeSession) initLocked(ctx context.Context) error {
	if s.initialized.Load() && s.browserAlive() && s.page != nil && !s.page.Closed() {
		return nil
	}

	if !s.browserAlive() {
		s.launchLocked()
	}

	if err := s.openPageLocked(ctx); err != nil {
		s.shutdownLocked()
		return fmt.Errorf("failed to open page: %w", err)
	}

	s.initialized.Store(true)
	s.logger.WithFields(logrus.Fields{
		"page_id":  s.page.ID(),
		"headless": s.config.Headless,
	}).Info("Browser session initialized")
	return nil
}

func (s *ChromeSession) browserAlive() bool {
	return s.browserCtx != nil && s.browserCtx.Err() == nil
}

// launchLocked creates the allocator and the browser context
func (s *ChromeSession) launchLocked() {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("excludeSwitches", "enable-automation"),
		chromedp.Flag("useAutomationExtension", false),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("headless", s.config.Headless),
		chromedp.WindowSize(s.config.ViewportWidth, s.config.ViewportHeight),
		chromedp.UserAgent(s.userAgent),
	}
	if s.config.Headless {
		opts = append(opts, chromedp.DisableGPU, chromedp.NoSandbox)
	}
	if s.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(s.config.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	s.allocCancel = allocCancel
	s.browserCtx = browserCtx
	s.browserCancel = browserCancel
	s.startedAt = time.Now()
	s.firstTabUsed = false
}

// openPageLocked opens a tab, applies viewport, stealth script and saved cookies
func (s *ChromeSession) openPageLocked(ctx context.Context) error {
	tabCtx, tabCancel := s.browserCtx, context.CancelFunc(nil)
	if s.firstTabUsed {
		tabCtx, tabCancel = chromedp.NewContext(s.browserCtx)
	}
	s.firstTabUsed = true

	setup := []chromedp.Action{
		chromedp.EmulateViewport(int64(s.config.ViewportWidth), int64(s.config.ViewportHeight)),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
		network.Enable(),
	}

	// The first Run on a tab context allocates it; it must not carry a
	// shorter-lived deadline or the tab dies with it.
	errCh := make(chan error, 1)
	go func() { errCh <- chromedp.Run(tabCtx, setup...) }()
	select {
	case err := <-errCh:
		if err != nil {
			if tabCancel != nil {
				tabCancel()
			}
			return err
		}
	case <-ctx.Done():
		if tabCancel != nil {
			tabCancel()
		}
		return ctx.Err()
	case <-time.After(s.config.StartupTimeout):
		if tabCancel != nil {
			tabCancel()
		}
		return fmt.Errorf("browser did not start within %s", s.config.StartupTimeout)
	}

	p := newChromePage(uuid.New().String(), tabCtx, tabCancel, s.logger)
	s.watchPage(p)
	s.page = p

	cookies, err := s.jar.Load()
	if err != nil {
		s.logger.WithError(err).Warn("Failed to load saved cookies, starting a fresh session")
		return nil
	}
	if err := p.SetCookies(ctx, cookies); err != nil {
		s.logger.WithError(err).Warn("Failed to apply saved cookies")
	} else if len(cookies) > 0 {
		s.logger.WithField("cookies", len(cookies)).Info("Saved cookies applied")
	}
	return nil
}

// watchPage flips the session to uninitialized when the tab is destroyed
func (s *ChromeSession) watchPage(p *ChromePage) {
	c := chromedp.FromContext(p.ctx)
	if c == nil || c.Target == nil {
		return
	}
	targetID := c.Target.TargetID
	chromedp.ListenBrowser(p.ctx, func(ev interface{}) {
		if e, ok := ev.(*target.EventTargetDestroyed); ok && e.TargetID == targetID {
			p.markClosed()
			s.initialized.Store(false)
			s.logger.WithField("page_id", p.ID()).Warn("Page closed, session marked uninitialized")
		}
	})
}

// Page returns the live page
func (s *ChromeSession) Page(ctx context.Context) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.initLocked(ctx); err != nil {
		return nil, err
	}
	return s.page, nil
}

// SaveCookies writes the current cookies to the jar. The error is returned
// for callers that care; failures never break a lookup.
func (s *ChromeSession) SaveCookies(ctx context.Context) error {
	s.mu.Lock()
	p := s.page
	s.mu.Unlock()

	return s.saveCookies(ctx, p)
}

func (s *ChromeSession) saveCookies(ctx context.Context, p *ChromePage) error {
	if p == nil || p.Closed() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, cookieSaveTimeout)
	defer cancel()

	cookies, err := p.Cookies(ctx)
	if err == nil {
		err = s.jar.Save(cookies)
	}
	if err != nil {
		s.logger.WithError(err).Warn("Failed to save cookies")
		return err
	}
	s.logger.WithField("cookies", len(cookies)).Info("Cookies saved")
	return nil
}

// KeepAlive reopens a closed page, or reinitializes everything when the
// browser itself cannot be reached. It never touches page content.
func (s *ChromeSession) KeepAlive(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browserCtx == nil {
		return nil
	}

	targets, err := s.listTargets(ctx)
	if err != nil || !s.browserAlive() {
		s.logger.WithError(err).Warn("Browser unreachable, reinitializing session")
		s.shutdownLocked()
		s.reinits++
		return s.initLocked(ctx)
	}

	pages := 0
	for _, t := range targets {
		if t.Type == "page" {
			pages++
		}
	}

	if pages == 0 || s.page == nil || s.page.Closed() {
		s.logger.WithField("pages", pages).Info("No live page, opening a fresh one")
		s.initialized.Store(false)
		if err := s.openPageLocked(ctx); err != nil {
			s.logger.WithError(err).Warn("Failed to reopen page, reinitializing session")
			s.shutdownLocked()
			s.reinits++
			return s.initLocked(ctx)
		}
		s.initialized.Store(true)
	}
	return nil
}

// listTargets gives up after the heartbeat timeout so a wedged browser
// connection cannot hold the session lock
func (s *ChromeSession) listTargets(ctx context.Context) ([]*target.Info, error) {
	ctx, cancel := context.WithTimeout(ctx, s.heartbeatTimeout)
	defer cancel()

	type result struct {
		targets []*target.Info
		err     error
	}
	resCh := make(chan result, 1)
	browserCtx := s.browserCtx
	go func() {
		targets, err := s.fetchTargets(browserCtx)
		resCh <- result{targets, err}
	}()
	select {
	case res := <-resCh:
		return res.targets, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("listing browser targets: %w", ctx.Err())
	}
}

// Restart closes and reinitializes the session
func (s *ChromeSession) Restart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeLocked()
	s.reinits++
	return s.initLocked(ctx)
}

// Close saves cookies and releases the browser
func (s *ChromeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeLocked()
	return nil
}

func (s *ChromeSession) closeLocked() {
	if s.browserCtx == nil {
		return
	}
	if err := s.saveCookies(context.Background(), s.page); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.WithError(err).Debug("Cookies not saved on close")
	}
	s.shutdownLocked()
	s.logger.Info("Browser session closed")
}

// shutdownLocked releases chromedp resources and resets state
func (s *ChromeSession) shutdownLocked() {
	if s.page != nil {
		s.page.close()
	}
	if s.browserCancel != nil {
		s.browserCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	s.page = nil
	s.browserCtx = nil
	s.browserCancel = nil
	s.allocCancel = nil
	s.initialized.Store(false)
}

// Health returns session health status
func (s *ChromeSession) Health() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := "idle"
	if s.browserCtx != nil {
		if s.initialized.Load() && s.page != nil && !s.page.Closed() {
			status = "healthy"
		} else {
			status = "degraded"
		}
	}

	health := map[string]interface{}{
		"status":      status,
		"initialized": s.initialized.Load(),
		"headless":    s.config.Headless,
		"user_agent":  s.userAgent,
		"cookie_file": s.jar.Path(),
		"reinits":     s.reinits,
	}
	if !s.startedAt.IsZero() && s.browserCtx != nil {
		health["uptime"] = time.Since(s.startedAt).String()
	}
	return health
}
