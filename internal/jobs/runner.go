package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"chronicler/internal/classify"
	"chronicler/internal/config"
	"chronicler/internal/ledger"
	"chronicler/internal/metrics"
	"chronicler/internal/model"
	"chronicler/internal/store/journal"
	"chronicler/internal/xclient"
)

// TweetSource yields the tweets a user posted since the last pass.
type TweetSource interface {
	FetchNewTweets(ctx context.Context, user string) ([]model.RawTweet, error)
}

// Summary counts what one pass did.
type Summary struct {
	RunID    string
	Users    int
	Fetched  int
	Accepted int
	Captured int
	Posted   int
	Failed   int
}

// Runner performs one full pass over the followed users.
type Runner struct {
	UsersFile  string
	Replied    *ledger.File
	Source     TweetSource
	Classifier *classify.Classifier
	Collector  *Collector
	Poster     *Poster
	Logger     *log.Logger
	Journal    Recorder
}

// RunOnce fetches, classifies, captures and replies for every followed
// user in file order. A failing user is logged and skipped. Errors are
// returned only for a missing user list or replied ledger, a browser
// that will not start, or ctx ending.
func (r *Runner) RunOnce(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: uuid.NewString()}
	ctx = WithRunID(ctx, sum.RunID)
	logger := r.Logger.With("run", sum.RunID)
	rec := orNop(r.Journal)
	start := time.Now()
	defer metrics.ObserveRunDuration(start)

	users, err := config.LoadUsers(r.UsersFile)
	if err != nil {
		return sum, fmt.Errorf("load followed users: %w", err)
	}
	replied, err := r.Replied.Set()
	if err != nil {
		return sum, fmt.Errorf("load replied ledger: %w", err)
	}
	logger.Info("pass started", "users", len(users), "replied", len(replied))

	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Users++
		if err := r.runUser(ctx, logger, rec, user, replied, &sum); err != nil {
			return sum, err
		}
	}

	logger.Info("pass finished", "users", sum.Users, "fetched", sum.Fetched, "accepted", sum.Accepted,
		"captured", sum.Captured, "posted", sum.Posted, "failed", sum.Failed, "took", time.Since(start).Round(time.Millisecond))
	putEvent(ctx, rec, logger, journal.Event{RunID: sum.RunID, Type: journal.TypeRun, Fields: map[string]any{
		"users": sum.Users, "fetched": sum.Fetched, "posted": sum.Posted, "failed": sum.Failed,
	}})
	return sum, nil
}

func (r *Runner) runUser(ctx context.Context, logger *log.Logger, rec Recorder, user string, replied ledger.Set, sum *Summary) error {
	raws, err := r.Source.FetchNewTweets(ctx, user)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sum.Failed++
		logFetchError(logger, user, err)
		putEvent(ctx, rec, logger, journal.Event{RunID: sum.RunID, Type: journal.TypeFetchFailed, User: user,
			Fields: map[string]any{"error": err.Error(), "kind": xclient.Outcome(err)}})
		return nil
	}
	sum.Fetched += len(raws)
	if len(raws) == 0 {
		return nil
	}
	putEvent(ctx, rec, logger, journal.Event{RunID: sum.RunID, Type: journal.TypeFetch, User: user,
		Fields: map[string]any{"count": len(raws)}})

	accepted := r.Classifier.Filter(ctx, raws, replied)
	sum.Accepted += len(accepted)
	if len(accepted) == 0 {
		logger.Debug("no new quote tweets", "user", user)
		return nil
	}

	logger.Info("collecting quoted tweets", "user", user, "count", len(accepted))
	collected, err := r.Collector.Collect(ctx, accepted)
	sum.Captured += len(collected)
	if err != nil {
		return err
	}
	sum.Posted += r.Poster.PostAndRecord(ctx, collected, replied)
	return ctx.Err()
}

func logFetchError(logger *log.Logger, user string, err error) {
	switch {
	case errors.Is(err, xclient.ErrLocked):
		logger.Error("account locked, log in to unlock", "user", user, "err", err)
	case errors.Is(err, xclient.ErrPermission):
		logger.Warn("timeline not visible (blocked, protected or suspended)", "user", user, "err", err)
	case errors.Is(err, xclient.ErrRateLimited):
		logger.Warn("still rate limited, skipping user", "user", user, "err", err)
	case errors.Is(err, xclient.ErrNotFound):
		logger.Warn("user not found", "user", user, "err", err)
	default:
		logger.Error("unable to fetch recent tweets", "user", user, "err", err)
	}
}

func putEvent(ctx context.Context, rec Recorder, logger *log.Logger, e journal.Event) {
	if err := rec.PutEvent(ctx, e); err != nil {
		logger.Warn("journal write failed", "err", err)
	}
}
