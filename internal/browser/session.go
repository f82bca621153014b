// Package browser manages headless Chrome sessions via chromedp.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrNavigationTimeout indicates a page never reached its expected state
// within the configured navigation budget.
var ErrNavigationTimeout = errors.New("navigation timeout")

// Config controls browser process launch and page behavior.
type Config struct {
	Headless       bool
	ExecPath       string
	UserAgent      string
	AcceptLanguage string
	NavTimeout     time.Duration
	PageQPS        float64
}

// Manager launches one browser process per Acquire and guarantees teardown
// on Release. There is no pooling: two concurrent crawls each own an
// independent process.
type Manager struct {
	cfg    Config
	logger *zap.Logger
}

// NewManager creates a Manager.
func NewManager(cfg Config, logger *zap.Logger) *Manager {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 45 * time.Second
	}
	return &Manager{cfg: cfg, logger: logger}
}

// Acquire launches a headless Chrome process and returns a warmed session.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", m.cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.UserAgent(m.cfg.UserAgent),
	)
	if m.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(m.cfg.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	var limiter *rate.Limiter
	if m.cfg.PageQPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(m.cfg.PageQPS), 1)
	}

	return &Session{
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		navTimeout:  m.cfg.NavTimeout,
		headers:     sessionHeaders(m.cfg.AcceptLanguage),
		userAgent:   m.cfg.UserAgent,
		limiter:     limiter,
		logger:      m.logger,
	}, nil
}

// Release unconditionally tears the browser process down. Safe on nil.
func (m *Manager) Release(s *Session) {
	if s == nil {
		return
	}
	s.tabCancel()
	s.allocCancel()
}

func sessionHeaders(acceptLanguage string) network.Headers {
	h := network.Headers{}
	if acceptLanguage != "" {
		h["Accept-Language"] = acceptLanguage
	}
	return h
}

// Session is one live browser tab owned by a single crawl invocation.
type Session struct {
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	navTimeout  time.Duration
	headers     network.Headers
	userAgent   string
	limiter     *rate.Limiter
	logger      *zap.Logger
}

// Navigate loads a URL and waits for the body to be ready, failing with
// ErrNavigationTimeout if the page does not settle within the budget.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("page pacing: %w", err)
		}
	}

	tasks := chromedp.Tasks{
		s.networkSetup(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500 * time.Millisecond),
	}
	if err := s.run(ctx, s.navTimeout, tasks); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", ErrNavigationTimeout, url)
		}
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// HTML returns the fully rendered outer HTML of the current page.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, s.navTimeout, chromedp.Tasks{
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}); err != nil {
		return "", fmt.Errorf("outer html: %w", err)
	}
	return html, nil
}

// Click clicks the first node matching the selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	if err := s.run(ctx, 10*time.Second, chromedp.Tasks{
		chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible),
		chromedp.Sleep(time.Second),
	}); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	return nil
}

// Visible reports whether any node matching the selector exists on the page.
// Lookup failures read as not visible.
func (s *Session) Visible(ctx context.Context, selector string) bool {
	var present bool
	script := fmt.Sprintf("document.querySelector(%q) !== null", selector)
	if err := s.run(ctx, 5*time.Second, chromedp.Tasks{
		chromedp.Evaluate(script, &present),
	}); err != nil {
		return false
	}
	return present
}

// NodeCount returns the number of nodes matching the selector.
func (s *Session) NodeCount(ctx context.Context, selector string) (int, error) {
	var count int
	script := fmt.Sprintf("document.querySelectorAll(%q).length", selector)
	if err := s.run(ctx, 5*time.Second, chromedp.Tasks{
		chromedp.Evaluate(script, &count),
	}); err != nil {
		return 0, fmt.Errorf("count %q: %w", selector, err)
	}
	return count, nil
}

// ScrollToBottom scrolls the viewport to the document end and gives lazy
// loaders a moment to fire.
func (s *Session) ScrollToBottom(ctx context.Context) error {
	if err := s.run(ctx, 15*time.Second, chromedp.Tasks{
		chromedp.Evaluate("window.scrollTo(0, document.body.scrollHeight)", nil),
		chromedp.Sleep(2 * time.Second),
	}); err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	return nil
}

func (s *Session) networkSetup() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if s.userAgent != "" {
			if err := emulation.SetUserAgentOverride(s.userAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		if len(s.headers) > 0 {
			if err := network.SetExtraHTTPHeaders(s.headers).Do(ctx); err != nil {
				return fmt.Errorf("set extra headers: %w", err)
			}
		}
		return nil
	})
}

// run executes tasks in the session tab under a bounded timeout while
// honoring cancelation of the caller's context.
func (s *Session) run(ctx context.Context, timeout time.Duration, tasks chromedp.Tasks) error {
	opCtx, cancel := context.WithTimeout(s.tabCtx, timeout)
	defer cancel()

	stop := forwardCancel(ctx, cancel)
	defer stop()

	if err := chromedp.Run(opCtx, tasks); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(opCtx.Err(), context.DeadlineExceeded) {
			return context.DeadlineExceeded
		}
		return err
	}
	return nil
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
