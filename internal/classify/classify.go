// Package classify decides which fetched tweets deserve a screenshot reply.
package classify

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"chronicler/internal/ledger"
	"chronicler/internal/metrics"
	"chronicler/internal/model"
	"chronicler/internal/xclient"
)

// Reason names the rule that produced a decision.
type Reason string

const (
	ReasonNotQuote       Reason = "non-retweet"
	ReasonQuotesBot      Reason = "quotes bot"
	ReasonQuotesSelf     Reason = "quotes own tweet"
	ReasonAlreadyReplied Reason = "already replied"
	ReasonSameInThread   Reason = "same quote in thread"
	ReasonLookupFailed   Reason = "thread lookup failed"
	ReasonNewInThread    Reason = "new quote in thread"
	ReasonAccepted       Reason = "accepted"
)

// Decision is the outcome for one tweet.
type Decision struct {
	Tweet    *model.Tweet
	Accepted bool
	Reason   Reason
}

// Classifier applies the rules in order; the first one that matches wins.
type Classifier struct {
	botHandle string
	lookup    xclient.StatusGetter
	logger    *log.Logger
}

func New(botHandle string, lookup xclient.StatusGetter, logger *log.Logger) *Classifier {
	return &Classifier{
		botHandle: strings.TrimPrefix(botHandle, "@"),
		lookup:    lookup,
		logger:    logger.WithPrefix("classify"),
	}
}

// Classify decides whether raw should be captured. replied holds the ids of
// tweets that already received a reply. The only I/O is the reply-target
// lookup of the thread rule, and a failed lookup rejects the tweet.
func (c *Classifier) Classify(ctx context.Context, raw model.RawTweet, replied ledger.Set) Decision {
	d := c.decide(ctx, raw, replied)
	metrics.IncDecision(string(d.Reason), d.Accepted)
	kv := []any{"tweet", d.Tweet.IDStr(), "user", d.Tweet.Author(), "reason", d.Reason}
	if d.Tweet.IsQuoteRetweet() {
		kv = append(kv, "quoted", d.Tweet.QuotedID())
	}
	if d.Accepted {
		c.logger.Info("collecting", kv...)
	} else {
		c.logger.Debug("skipping", kv...)
	}
	return d
}

func (c *Classifier) decide(ctx context.Context, raw model.RawTweet, replied ledger.Set) Decision {
	tw := model.NewTweet(raw)
	reject := func(r Reason) Decision { return Decision{Tweet: tw, Reason: r} }
	accept := func(r Reason) Decision { return Decision{Tweet: tw, Accepted: true, Reason: r} }

	switch {
	case !tw.IsQuoteRetweet():
		return reject(ReasonNotQuote)
	case strings.EqualFold(tw.QuotedAuthor(), c.botHandle):
		return reject(ReasonQuotesBot)
	case strings.EqualFold(tw.QuotedAuthor(), tw.Author()):
		return reject(ReasonQuotesSelf)
	case replied.Has(tw.IDStr()):
		return reject(ReasonAlreadyReplied)
	case tw.IsReply() && replied.Has(tw.ReplyTargetID()):
		target, err := c.lookup.GetStatus(ctx, tw.ReplyTargetID())
		if err != nil {
			c.logger.Warn("reply target lookup failed", "tweet", tw.IDStr(), "target", tw.ReplyTargetID(), "err", err)
			return reject(ReasonLookupFailed)
		}
		if model.NewTweet(target).QuotedID() == tw.QuotedID() {
			return reject(ReasonSameInThread)
		}
		return accept(ReasonNewInThread)
	}
	return accept(ReasonAccepted)
}

// Filter classifies raws in order and returns the accepted tweets.
func (c *Classifier) Filter(ctx context.Context, raws []model.RawTweet, replied ledger.Set) []*model.Tweet {
	var out []*model.Tweet
	for _, raw := range raws {
		if d := c.Classify(ctx, raw, replied); d.Accepted {
			out = append(out, d.Tweet)
		}
	}
	return out
}
