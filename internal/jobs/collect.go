package jobs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"chronicler/internal/capture"
	"chronicler/internal/metrics"
	"chronicler/internal/model"
	"chronicler/internal/retry"
	"chronicler/internal/store/journal"
)

// CaptureRetryPolicy retries a capture whose page load or element wait
// timed out.
func CaptureRetryPolicy(attempts int, delay time.Duration) retry.Policy {
	return retry.Policy{
		MaxAttempts: attempts,
		Delay:       delay,
		Retryable: func(err error) bool {
			return errors.Is(err, capture.ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
		},
	}
}

// Collector screenshots the quoted tweet of each accepted tweet.
type Collector struct {
	launcher capture.Launcher
	dir      string
	wait     capture.Wait
	policy   retry.Policy
	logger   *log.Logger
	journal  Recorder
}

func NewCollector(launcher capture.Launcher, screenshotDir string, wait capture.Wait, policy retry.Policy, logger *log.Logger, rec Recorder) *Collector {
	return &Collector{
		launcher: launcher,
		dir:      screenshotDir,
		wait:     wait,
		policy:   policy,
		logger:   logger.WithPrefix("collect"),
		journal:  orNop(rec),
	}
}

// Collect opens one browser session for the whole batch and returns the
// tweets whose screenshot was written. A tweet that cannot be captured is
// logged and dropped. The only error is a browser that will not start, or
// ctx ending.
func (c *Collector) Collect(ctx context.Context, tweets []*model.Tweet) ([]*model.Tweet, error) {
	if len(tweets) == 0 {
		return nil, nil
	}
	session, err := c.launcher.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			c.logger.Warn("closing browser", "err", err)
		}
	}()

	var out []*model.Tweet
	for _, tw := range tweets {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if !tw.IsQuoteRetweet() {
			continue
		}
		path := filepath.Join(c.dir, tw.ScreenshotFileName())
		if err := c.captureOne(ctx, session, tw, path); err != nil {
			metrics.IncCapture("failed")
			c.logger.Error("capture failed, dropping tweet", "tweet", tw.IDStr(), "quoted", tw.QuotedTweetURL(), "err", err)
			c.record(ctx, journal.TypeCaptureFailed, tw, map[string]any{"url": tw.QuotedTweetURL(), "error": err.Error()})
			continue
		}
		tw.SetScreenshotPath(path)
		metrics.IncCapture("ok")
		c.record(ctx, journal.TypeCapture, tw, map[string]any{"url": tw.QuotedTweetURL(), "path": path})
		out = append(out, tw)
	}
	return out, nil
}

func (c *Collector) captureOne(ctx context.Context, s capture.Session, tw *model.Tweet, path string) error {
	locators := []string{tw.QuotedLocator(), capture.FirstArticle}
	policy := c.policy
	policy.OnRetry = func(err error, attempt int, wait time.Duration) {
		c.logger.Warn("capture timed out, retrying", "tweet", tw.IDStr(), "attempt", attempt, "wait", wait)
	}
	return policy.Do(ctx, func(ctx context.Context) error {
		loc, err := capture.Shoot(ctx, s, tw.QuotedTweetURL(), locators, path, c.wait)
		if err != nil {
			return err
		}
		c.logger.Info("saved screenshot", "tweet", tw.IDStr(), "quoted", tw.QuotedID(), "locator", loc, "path", path)
		return nil
	})
}

func (c *Collector) record(ctx context.Context, typ string, tw *model.Tweet, fields map[string]any) {
	e := journal.Event{RunID: RunID(ctx), Type: typ, User: tw.Author(), TweetID: tw.IDStr(), Fields: fields}
	if err := c.journal.PutEvent(ctx, e); err != nil {
		c.logger.Warn("journal write failed", "err", err)
	}
}
