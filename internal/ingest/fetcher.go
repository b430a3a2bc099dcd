// Package ingest reads new tweets from followed accounts, one user at a time,
// remembering the newest tweet seen per user in a cursor ledger.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"chronicler/internal/ledger"
	"chronicler/internal/metrics"
	"chronicler/internal/model"
	"chronicler/internal/retry"
	"chronicler/internal/xclient"
)

const DefaultPageSize = 10

// Fetcher performs the incremental per-user timeline read.
type Fetcher struct {
	timeline  xclient.Timeline
	cursorDir string
	pageSize  int
	policy    retry.Policy
	logger    *log.Logger
}

// RateLimitPolicy retries rate-limited reads with a fixed cooldown.
func RateLimitPolicy(attempts int, cooldown time.Duration) retry.Policy {
	return retry.Policy{
		MaxAttempts: attempts,
		Delay:       cooldown,
		Retryable:   func(err error) bool { return errors.Is(err, xclient.ErrRateLimited) },
	}
}

func NewFetcher(tl xclient.Timeline, cursorDir string, pageSize int, policy retry.Policy, logger *log.Logger) *Fetcher {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Fetcher{
		timeline:  tl,
		cursorDir: cursorDir,
		pageSize:  pageSize,
		policy:    policy,
		logger:    logger.WithPrefix("ingest"),
	}
}

// Cursor is the ledger holding the newest tweet id seen for user.
func (f *Fetcher) Cursor(user string) *ledger.File {
	return ledger.Open(filepath.Join(f.cursorDir, user+".txt"))
}

// FetchNewTweets returns the tweets user posted after the cursor, newest
// first as the API orders them. A missing cursor means no lower bound.
// When anything is returned the newest id is appended to the cursor before
// the caller sees the tweets, so they are never fetched again.
func (f *Fetcher) FetchNewTweets(ctx context.Context, user string) ([]model.RawTweet, error) {
	cursor := f.Cursor(user)
	sinceID, err := cursor.Last()
	if err != nil {
		return nil, fmt.Errorf("read cursor for @%s: %w", user, err)
	}
	if sinceID == "" {
		f.logger.Info("no cursor yet", "user", user, "file", cursor.Path())
	}

	policy := f.policy
	policy.OnRetry = func(err error, attempt int, wait time.Duration) {
		f.logger.Warn("rate limited, cooling down", "user", user, "attempt", attempt, "wait", wait, "err", err)
	}
	var tweets []model.RawTweet
	err = policy.Do(ctx, func(ctx context.Context) error {
		var err error
		tweets, err = f.timeline.GetUserTimeline(ctx, user, sinceID, f.pageSize)
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.AddTweetsFetched(len(tweets))
	if len(tweets) == 0 {
		f.logger.Debug("no new tweets", "user", user, "since", sinceID)
		return nil, nil
	}

	ids := make([]string, 0, len(tweets))
	for _, t := range tweets {
		ids = append(ids, t.IDStr)
	}
	newest := model.NewestID(ids...)
	if err := cursor.Append(newest); err != nil {
		return nil, fmt.Errorf("advance cursor for @%s: %w", user, err)
	}
	f.logger.Debug("fetched", "user", user, "count", len(tweets), "since", sinceID, "newest", newest)
	return tweets, nil
}
