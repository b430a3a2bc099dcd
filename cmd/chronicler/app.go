package main

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"chronicler/internal/capture"
	"chronicler/internal/classify"
	"chronicler/internal/config"
	"chronicler/internal/ingest"
	"chronicler/internal/jobs"
	"chronicler/internal/ledger"
	"chronicler/internal/lock"
	"chronicler/internal/logging"
	"chronicler/internal/metrics"
	"chronicler/internal/store/journal"
	"chronicler/internal/xclient"
)

// app holds the wired components of one process.
type app struct {
	cfg      config.Config
	logger   *log.Logger
	runner   *jobs.Runner
	requests *jobs.RequestRunner

	logCloser   io.Closer
	journal     *journal.DB
	stopMetrics func()
}

func newApp(cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgPath, err)
	}
	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, logCloser: logCloser, stopMetrics: metrics.StartServer(cfg.Metrics.Addr)}

	var rec jobs.Recorder
	if cfg.Paths.DBPath != "" {
		db, err := journal.Open(cfg.Paths.DBPath)
		if err != nil {
			logger.Warn("journal unavailable, continuing without it", "path", cfg.Paths.DBPath, "err", err)
		} else {
			a.journal = db
			rec = db
		}
	}

	opts := xclient.Options{Timeout: cfg.API.Timeout}
	reader, err := xclient.NewHTTPClient(credentials(cfg.Credentials.Read), opts)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("read client: %w", err)
	}
	writer, err := xclient.NewHTTPClient(credentials(cfg.Credentials.Write), opts)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("write client: %w", err)
	}

	launcher := capture.NewChromeLauncher(capture.BrowserOptions{
		ExecPath:    cfg.Capture.ChromePath,
		Headless:    cfg.Capture.Headless,
		Width:       cfg.Capture.WindowWidth,
		Height:      cfg.Capture.WindowHeight,
		PageTimeout: cfg.Capture.PageTimeout,
	})
	collector := jobs.NewCollector(launcher, cfg.Paths.ScreenshotDir,
		capture.Wait{Timeout: cfg.Capture.WaitTimeout, Poll: cfg.Capture.PollInterval},
		jobs.CaptureRetryPolicy(cfg.Capture.Attempts, cfg.Capture.RetryDelay), logger, rec)

	replied := ledger.Open(cfg.Paths.RepliedLedger)
	a.runner = &jobs.Runner{
		UsersFile: cfg.Paths.UsersFile,
		Replied:   replied,
		Source: ingest.NewFetcher(reader, cfg.Paths.CursorDir, cfg.API.PageSize,
			ingest.RateLimitPolicy(cfg.API.RateLimitAttempts, cfg.API.RateLimitCooldown), logger),
		Classifier: classify.New(cfg.Account.BotHandle, reader, logger),
		Collector:  collector,
		Poster:     jobs.NewPoster(writer, replied, logger, rec),
		Logger:     logger,
		Journal:    rec,
	}

	completed := ledger.Open(cfg.Paths.RequestsLedger)
	a.requests = &jobs.RequestRunner{
		Mentions:  writer,
		Lookup:    reader,
		Completed: completed,
		PageSize:  cfg.API.MentionsPageSize,
		Collector: collector,
		Poster:    jobs.NewPoster(writer, completed, logger, rec),
		Logger:    logger,
		Journal:   rec,
	}
	return a, nil
}

func credentials(o config.OAuthConfig) xclient.Credentials {
	return xclient.Credentials{
		ConsumerKey:    o.ConsumerKey,
		ConsumerSecret: o.ConsumerSecret,
		AccessToken:    o.AccessToken,
		AccessSecret:   o.AccessSecret,
	}
}

// locked runs f while holding the instance lock. A lock held by another
// instance is logged and treated as success.
func (a *app) locked(ctx context.Context, f func(ctx context.Context) error) error {
	release, err := lock.Acquire(ctx, a.cfg.Lock.Path, a.cfg.Lock.Timeout)
	if isHeld(err) {
		a.logger.Info("another instance is running, skipping", "lock", a.cfg.Lock.Path)
		return nil
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := release(); err != nil {
			a.logger.Warn("lock release failed", "err", err)
		}
	}()
	return f(ctx)
}

func (a *app) Close() {
	if a.journal != nil {
		_ = a.journal.Close()
	}
	a.stopMetrics()
	_ = a.logCloser.Close()
}
