package jobs

import (
	"context"

	"github.com/charmbracelet/log"

	"chronicler/internal/ledger"
	"chronicler/internal/metrics"
	"chronicler/internal/model"
	"chronicler/internal/store/journal"
	"chronicler/internal/xclient"
)

// Poster replies to collected tweets and records each success in a ledger.
type Poster struct {
	client  xclient.Poster
	ledger  *ledger.File
	logger  *log.Logger
	journal Recorder
}

func NewPoster(client xclient.Poster, record *ledger.File, logger *log.Logger, rec Recorder) *Poster {
	return &Poster{client: client, ledger: record, logger: logger.WithPrefix("post"), journal: orNop(rec)}
}

// PostAndRecord replies to every tweet that has a screenshot. A tweet id is
// appended to the ledger, and added to seen, only after its reply was
// accepted; failures are logged and left for a later pass. It returns the
// number of replies posted.
func (p *Poster) PostAndRecord(ctx context.Context, tweets []*model.Tweet, seen ledger.Set) int {
	posted := 0
	for _, tw := range tweets {
		if ctx.Err() != nil {
			break
		}
		if tw.ScreenshotPath() == "" {
			continue
		}
		p.logger.Info("replying", "user", tw.Author(), "tweet", tw.IDStr())
		reply, err := p.client.PostReply(ctx, tw.ReplyMessage(), tw.ScreenshotPath(), tw.IDStr())
		if err != nil {
			metrics.IncReply("failed")
			p.logger.Error("reply failed", "user", tw.Author(), "tweet", tw.IDStr(), "err", err)
			p.record(ctx, journal.TypeReplyFailed, tw, map[string]any{"error": err.Error()})
			continue
		}
		metrics.IncReply("ok")
		p.logger.Debug("reply posted",
			"tweet", tw.IDStr(),
			"reply", reply.ID,
			"in_reply_to_status_id", reply.InReplyToStatusID,
			"in_reply_to_screen_name", reply.InReplyToScreenName)
		if err := p.ledger.Append(tw.IDStr()); err != nil {
			p.logger.Error("reply posted but ledger write failed", "tweet", tw.IDStr(), "ledger", p.ledger.Path(), "err", err)
		}
		if seen != nil {
			seen.Add(tw.IDStr())
		}
		p.record(ctx, journal.TypeReply, tw, map[string]any{
			"reply_id":                reply.ID,
			"in_reply_to_status_id":   reply.InReplyToStatusID,
			"in_reply_to_screen_name": reply.InReplyToScreenName,
		})
		posted++
	}
	return posted
}

func (p *Poster) record(ctx context.Context, typ string, tw *model.Tweet, fields map[string]any) {
	e := journal.Event{RunID: RunID(ctx), Type: typ, User: tw.Author(), TweetID: tw.IDStr(), Fields: fields}
	if err := p.journal.PutEvent(ctx, e); err != nil {
		p.logger.Warn("journal write failed", "err", err)
	}
}
