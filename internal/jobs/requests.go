package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"chronicler/internal/ledger"
	"chronicler/internal/metrics"
	"chronicler/internal/model"
	"chronicler/internal/store/journal"
	"chronicler/internal/xclient"
)

// Request hashtags, matched case-insensitively.
const (
	TagScreenshot = "screenshot" // capture the tweet the mention replies to
	TagForBlocked = "ftb"        // capture the tweet quoted by the tweet the mention replies to
)

// RequestRunner answers capture requests sent to the bot as mentions.
type RequestRunner struct {
	Mentions  xclient.Mentions
	Lookup    xclient.StatusGetter
	Completed *ledger.File
	PageSize  int
	Collector *Collector
	Poster    *Poster
	Logger    *log.Logger
	Journal   Recorder
}

// RunOnce reads mentions newer than the newest completed request, resolves
// each request to the tweet to capture and replies with its screenshot.
func (r *RequestRunner) RunOnce(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: uuid.NewString()}
	ctx = WithRunID(ctx, sum.RunID)
	logger := r.Logger.With("run", sum.RunID).WithPrefix("requests")
	rec := orNop(r.Journal)
	start := time.Now()
	defer metrics.ObserveRunDuration(start)

	done, err := r.completed()
	if err != nil {
		return sum, err
	}
	sinceID := model.NewestID(keys(done)...)
	mentions, err := r.Mentions.GetMentions(ctx, sinceID, r.PageSize)
	if err != nil {
		return sum, fmt.Errorf("read mentions: %w", err)
	}
	sum.Fetched = len(mentions)

	var requests []*model.Tweet
	for _, m := range mentions {
		if done.Has(m.IDStr) {
			continue
		}
		raw, ok := r.resolve(ctx, logger, m)
		if !ok {
			continue
		}
		requests = append(requests, model.NewTweet(raw))
	}
	sum.Accepted = len(requests)
	if len(requests) == 0 {
		logger.Debug("no requests", "since", sinceID)
		return sum, nil
	}

	collected, err := r.Collector.Collect(ctx, requests)
	sum.Captured = len(collected)
	if err != nil {
		return sum, err
	}
	sum.Posted = r.Poster.PostAndRecord(ctx, collected, done)
	logger.Info("requests answered", "requests", sum.Accepted, "posted", sum.Posted)
	putEvent(ctx, rec, logger, journal.Event{RunID: sum.RunID, Type: journal.TypeRun, Fields: map[string]any{
		"requests": sum.Accepted, "posted": sum.Posted,
	}})
	return sum, ctx.Err()
}

// resolve turns a mention into a synthetic quote tweet of the tweet to capture.
func (r *RequestRunner) resolve(ctx context.Context, logger *log.Logger, m model.RawTweet) (model.RawTweet, bool) {
	mention := model.NewTweet(m)
	if !mention.IsReply() {
		logger.Debug("mention is not a reply", "tweet", m.IDStr)
		return model.RawTweet{}, false
	}
	var forBlocked bool
	switch {
	case m.HasHashtag(TagScreenshot):
	case m.HasHashtag(TagForBlocked):
		forBlocked = true
	default:
		logger.Debug("mention carries no request tag", "tweet", m.IDStr)
		return model.RawTweet{}, false
	}

	target, err := r.Lookup.GetStatus(ctx, mention.ReplyTargetID())
	if err != nil {
		logger.Warn("request target unavailable", "tweet", m.IDStr, "target", mention.ReplyTargetID(), "err", err)
		return model.RawTweet{}, false
	}
	if forBlocked {
		if target.Quoted == nil {
			logger.Info("ftb request on a tweet that quotes nothing", "tweet", m.IDStr, "target", target.IDStr)
			return model.RawTweet{}, false
		}
		target = *target.Quoted
	}
	logger.Info("request accepted", "tweet", m.IDStr, "user", m.Author, "capture", target.IDStr)
	return model.RequestTweet(m, target), true
}

func (r *RequestRunner) completed() (ledger.Set, error) {
	s, err := r.Completed.Set()
	if errors.Is(err, os.ErrNotExist) {
		return ledger.NewSet(), nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func keys(s ledger.Set) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}
