package xclient

import (
	"strconv"

	"github.com/dghubble/go-twitter/twitter"

	"chronicler/internal/model"
)

func toRawTweets(in []twitter.Tweet) []model.RawTweet {
	out := make([]model.RawTweet, 0, len(in))
	for i := range in {
		out = append(out, toRaw(&in[i]))
	}
	return out
}

// toRaw flattens a v1.1 status into the typed record used everywhere else.
// Extended text is preferred over the legacy truncated text.
func toRaw(t *twitter.Tweet) model.RawTweet {
	if t == nil {
		return model.RawTweet{}
	}
	raw := model.RawTweet{
		ID:                   t.ID,
		IDStr:                t.IDStr,
		Text:                 t.FullText,
		InReplyToStatusID:    t.InReplyToStatusID,
		InReplyToStatusIDStr: t.InReplyToStatusIDStr,
		InReplyToScreenName:  t.InReplyToScreenName,
	}
	if raw.Text == "" {
		raw.Text = t.Text
	}
	if raw.IDStr == "" && t.ID != 0 {
		raw.IDStr = strconv.FormatInt(t.ID, 10)
	}
	if t.User != nil {
		raw.Author = t.User.ScreenName
	}
	if ts, err := t.CreatedAtTime(); err == nil {
		raw.CreatedAt = ts
	}
	if e := t.Entities; e != nil {
		for _, u := range e.Urls {
			raw.URLs = append(raw.URLs, model.URLEntity{URL: u.URL, ExpandedURL: u.ExpandedURL, DisplayURL: u.DisplayURL})
		}
		for _, h := range e.Hashtags {
			raw.Hashtags = append(raw.Hashtags, h.Text)
		}
		for _, m := range e.UserMentions {
			raw.Mentions = append(raw.Mentions, m.ScreenName)
		}
	}
	if t.QuotedStatus != nil {
		q := toRaw(t.QuotedStatus)
		raw.Quoted = &q
	}
	return raw
}
