package model

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// TwitterURL is the web origin used to build tweet links.
const TwitterURL = "https://twitter.com"

// MaxMessageRunes is the longest reply the bot will attempt to post.
const MaxMessageRunes = 280

// Tweet is a read-mostly view over a RawTweet. Every derived value is a
// pure function of the wrapped record except the screenshot path, which
// the collector sets once after a successful capture.
type Tweet struct {
	raw            RawTweet
	screenshotPath string
}

// NewTweet wraps raw. It never fails.
func NewTweet(raw RawTweet) *Tweet {
	return &Tweet{raw: raw}
}

// RequestTweet builds a synthetic quote tweet authored by the requester
// whose quoted tweet is target, so a capture request can run through the
// same collect and post steps as a detected quote retweet.
func RequestTweet(request RawTweet, target RawTweet) RawTweet {
	out := request
	t := target
	out.Quoted = &t
	return out
}

func (t *Tweet) ID() int64      { return t.raw.ID }
func (t *Tweet) IDStr() string  { return t.raw.IDStr }
func (t *Tweet) Author() string { return t.raw.Author }
func (t *Tweet) Text() string   { return t.raw.Text }

func (t *Tweet) String() string { return fmt.Sprintf("@%s: %s", t.raw.Author, t.raw.Text) }

// URL is the web link of the tweet itself.
func (t *Tweet) URL() string {
	return statusURL(t.raw.Author, t.raw.IDStr)
}

// Locator is the CSS selector of the tweet on its own status page.
func (t *Tweet) Locator() string {
	return tweetLocator(t.raw.IDStr)
}

// IsQuoteRetweet is true iff a quoted tweet is attached.
func (t *Tweet) IsQuoteRetweet() bool { return t.raw.Quoted != nil }

func (t *Tweet) QuotedAuthor() string {
	if t.raw.Quoted == nil {
		return ""
	}
	return t.raw.Quoted.Author
}

func (t *Tweet) QuotedID() string {
	if t.raw.Quoted == nil {
		return ""
	}
	return t.raw.Quoted.IDStr
}

func (t *Tweet) QuotedTweetURL() string {
	if t.raw.Quoted == nil {
		return ""
	}
	return statusURL(t.raw.Quoted.Author, t.raw.Quoted.IDStr)
}

func (t *Tweet) QuotedLocator() string {
	if t.raw.Quoted == nil {
		return ""
	}
	return tweetLocator(t.raw.Quoted.IDStr)
}

// QuotedURLs returns the t.co links found in the quoted tweet.
func (t *Tweet) QuotedURLs() []string {
	if t.raw.Quoted == nil {
		return nil
	}
	out := make([]string, 0, len(t.raw.Quoted.URLs))
	for _, u := range t.raw.Quoted.URLs {
		out = append(out, u.URL)
	}
	return out
}

// QuotedText is the quoted body with "&amp;" unescaped and the quoted
// tweet's own leading reply mention removed.
func (t *Tweet) QuotedText() string {
	q := t.raw.Quoted
	if q == nil {
		return ""
	}
	text := strings.ReplaceAll(q.Text, "&amp;", "&")
	if q.InReplyToScreenName != "" {
		text = strings.TrimPrefix(text, "@"+q.InReplyToScreenName+" ")
	}
	return text
}

// ReplyMessage is the text posted alongside the screenshot:
//
//	@<author> "<quoted text>" -.@<quoted author>
//
// The quoted text is shortened with an ellipsis when the whole message
// would not fit in MaxMessageRunes.
func (t *Tweet) ReplyMessage() string {
	if t.raw.Quoted == nil {
		return ""
	}
	head := "@" + t.raw.Author + ` "`
	tail := `" -.@` + t.raw.Quoted.Author
	text := t.QuotedText()
	room := MaxMessageRunes - utf8.RuneCountInString(head) - utf8.RuneCountInString(tail)
	if utf8.RuneCountInString(text) > room {
		text = truncateRunes(text, room)
	}
	return head + text + tail
}

// ScreenshotFileName is the capture file name for the quoted tweet.
func (t *Tweet) ScreenshotFileName() string {
	if t.raw.Quoted == nil {
		return ""
	}
	return "tweet_capture_" + t.raw.Quoted.IDStr + ".png"
}

// IsReply is true iff the tweet has a reply target.
func (t *Tweet) IsReply() bool {
	return t.raw.InReplyToStatusID != 0 || t.raw.InReplyToStatusIDStr != ""
}

func (t *Tweet) ReplyTargetID() string {
	if t.raw.InReplyToStatusIDStr != "" {
		return t.raw.InReplyToStatusIDStr
	}
	if t.raw.InReplyToStatusID != 0 {
		return strconv.FormatInt(t.raw.InReplyToStatusID, 10)
	}
	return ""
}

func (t *Tweet) ReplyTargetAuthor() string { return t.raw.InReplyToScreenName }

func (t *Tweet) ReplyTargetURL() string {
	if !t.IsReply() {
		return ""
	}
	return statusURL(t.raw.InReplyToScreenName, t.ReplyTargetID())
}

func (t *Tweet) ScreenshotPath() string { return t.screenshotPath }

// SetScreenshotPath records the capture file. Only the first non-empty
// value is kept.
func (t *Tweet) SetScreenshotPath(p string) {
	if t.screenshotPath != "" {
		return
	}
	t.screenshotPath = p
}

// NewestID returns the numerically largest of the decimal id strings.
func NewestID(ids ...string) string {
	newest := ""
	for _, id := range ids {
		if compareIDs(id, newest) > 0 {
			newest = id
		}
	}
	return newest
}

func compareIDs(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) > len(b) {
			return 1
		}
		return -1
	}
	return strings.Compare(a, b)
}

func statusURL(author, id string) string {
	return fmt.Sprintf("%s/%s/status/%s", TwitterURL, author, id)
}

func tweetLocator(id string) string {
	return fmt.Sprintf("div[data-tweet-id='%s']", id)
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
