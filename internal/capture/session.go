// Package capture drives a headless browser to screenshot single tweets.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

// ErrTimeout is returned when none of the awaited elements appeared in time.
var ErrTimeout = errors.New("capture: element wait timed out")

// Session is one browser tab reused for a batch of captures.
type Session interface {
	Open(ctx context.Context, url string) error
	// WaitFor polls until one of locators matches and returns it.
	WaitFor(ctx context.Context, locators []string, timeout, poll time.Duration) (string, error)
	ScrollTo(ctx context.Context, locator string) error
	// Screenshot writes a PNG of the element to path.
	Screenshot(ctx context.Context, locator, path string) error
	Close() error
}

// Launcher starts browser sessions.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// ChromeLauncher launches a local Chrome through chromedp.
type ChromeLauncher struct {
	opts BrowserOptions
}

func NewChromeLauncher(opts BrowserOptions) *ChromeLauncher {
	return &ChromeLauncher{opts: opts.withDefaults()}
}

func (l *ChromeLauncher) Launch(ctx context.Context) (Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, AllocatorOptions(l.opts)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	err := chromedp.Run(browserCtx,
		emulation.SetDeviceMetricsOverride(int64(l.opts.Width), int64(l.opts.Height), 1, false),
	)
	if err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	return &chromeSession{
		ctx:         browserCtx,
		cancel:      browserCancel,
		allocCancel: allocCancel,
		pageTimeout: l.opts.PageTimeout,
	}, nil
}

type chromeSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	pageTimeout time.Duration
	once        sync.Once
	closeErr    error
}

// run executes actions on the tab, bounded by the page timeout and by ctx.
// Hitting the page timeout is reported as ErrTimeout.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, s.pageTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() == nil && s.ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: page did not respond within %s: %v", ErrTimeout, s.pageTimeout, err)
	}
	return err
}

func (s *chromeSession) Open(ctx context.Context, url string) error {
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	return nil
}

func (s *chromeSession) WaitFor(ctx context.Context, locators []string, timeout, poll time.Duration) (string, error) {
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	deadline := time.Now().Add(timeout)
	for {
		for _, loc := range locators {
			var nodes []*cdp.Node
			err := s.run(ctx, chromedp.Nodes(loc, &nodes, chromedp.ByQuery, chromedp.AtLeast(0)))
			if err != nil {
				return "", fmt.Errorf("query %s: %w", loc, err)
			}
			if len(nodes) > 0 {
				return loc, nil
			}
		}
		if time.Now().Add(poll).After(deadline) {
			return "", fmt.Errorf("%w after %s: %v", ErrTimeout, timeout, locators)
		}
		select {
		case <-time.After(poll):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (s *chromeSession) ScrollTo(ctx context.Context, locator string) error {
	return s.run(ctx, chromedp.ScrollIntoView(locator, chromedp.ByQuery))
}

func (s *chromeSession) Screenshot(ctx context.Context, locator, path string) error {
	var buf []byte
	if err := s.run(ctx, chromedp.Screenshot(locator, &buf, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("screenshot %s: %w", locator, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0o644)
}

// Close shuts the browser down. It is safe to call more than once.
func (s *chromeSession) Close() error {
	s.once.Do(func() {
		s.closeErr = chromedp.Cancel(s.ctx)
		s.cancel()
		s.allocCancel()
	})
	return s.closeErr
}
