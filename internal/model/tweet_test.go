package model

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func quoteOf(author, id string, quoted RawTweet) RawTweet {
	return RawTweet{ID: 1218642707586977797, IDStr: id, Author: author, Text: "look at this", Quoted: &quoted}
}

func TestPlainTweetHasNoQuotedFacts(t *testing.T) {
	tw := NewTweet(RawTweet{ID: 1206058311864528896, IDStr: "1206058311864528896", Author: "FTBandFTR", Text: "hello"})

	assert.False(t, tw.IsQuoteRetweet())
	assert.Empty(t, tw.QuotedAuthor())
	assert.Empty(t, tw.QuotedID())
	assert.Empty(t, tw.QuotedTweetURL())
	assert.Empty(t, tw.QuotedLocator())
	assert.Empty(t, tw.QuotedText())
	assert.Empty(t, tw.ReplyMessage())
	assert.Empty(t, tw.ScreenshotFileName())
	assert.Nil(t, tw.QuotedURLs())
	assert.False(t, tw.IsReply())
	assert.Empty(t, tw.ReplyTargetID())
	assert.Empty(t, tw.ReplyTargetURL())
	assert.Empty(t, tw.ScreenshotPath())
	assert.Equal(t, "@FTBandFTR: hello", tw.String())
}

func TestQuotedTweetDerivedValues(t *testing.T) {
	quoted := RawTweet{
		ID: 1218638650726146050, IDStr: "1218638650726146050", Author: "kenklippenstein",
		Text: "read it", URLs: []URLEntity{{URL: "https://t.co/2kzeCWezvw"}},
	}
	tw := NewTweet(quoteOf("ggreenwald", "1218642707586977797", quoted))

	assert.True(t, tw.IsQuoteRetweet())
	assert.Equal(t, "kenklippenstein", tw.QuotedAuthor())
	assert.Equal(t, "1218638650726146050", tw.QuotedID())
	assert.Equal(t, "https://twitter.com/kenklippenstein/status/1218638650726146050", tw.QuotedTweetURL())
	assert.Equal(t, "div[data-tweet-id='1218638650726146050']", tw.QuotedLocator())
	assert.Equal(t, "div[data-tweet-id='1218642707586977797']", tw.Locator())
	assert.Equal(t, "tweet_capture_1218638650726146050.png", tw.ScreenshotFileName())
	assert.Equal(t, []string{"https://t.co/2kzeCWezvw"}, tw.QuotedURLs())
	assert.Equal(t, "https://twitter.com/ggreenwald/status/1218642707586977797", tw.URL())
}

func TestReplyMessageCleansQuotedText(t *testing.T) {
	quoted := RawTweet{IDStr: "2", Author: "alice", Text: "@bob hello &amp; welcome", InReplyToScreenName: "bob", InReplyToStatusIDStr: "1"}
	tw := NewTweet(quoteOf("carol", "3", quoted))

	assert.Equal(t, `@carol "hello & welcome" -.@alice`, tw.ReplyMessage())
}

func TestReplyMessageStripsOnlyLeadingMention(t *testing.T) {
	quoted := RawTweet{IDStr: "2", Author: "alice", Text: "@bob @bob twice", InReplyToScreenName: "bob"}
	tw := NewTweet(quoteOf("carol", "3", quoted))
	assert.Equal(t, "@bob twice", tw.QuotedText())

	notLeading := RawTweet{IDStr: "2", Author: "alice", Text: "hi @bob there", InReplyToScreenName: "bob"}
	tw = NewTweet(quoteOf("carol", "3", notLeading))
	assert.Equal(t, "hi @bob there", tw.QuotedText())
}

func TestReplyMessageIsShortenedToFit(t *testing.T) {
	quoted := RawTweet{IDStr: "2", Author: "alice", Text: strings.Repeat("é", 400)}
	msg := NewTweet(quoteOf("carol", "3", quoted)).ReplyMessage()

	assert.Equal(t, MaxMessageRunes, utf8.RuneCountInString(msg))
	assert.True(t, strings.HasPrefix(msg, `@carol "`))
	assert.True(t, strings.HasSuffix(msg, `…" -.@alice`))
}

func TestReplyTarget(t *testing.T) {
	tw := NewTweet(RawTweet{IDStr: "200", Author: "_b_axe", InReplyToStatusID: 100, InReplyToScreenName: "_b_axe"})

	assert.True(t, tw.IsReply())
	assert.Equal(t, "100", tw.ReplyTargetID())
	assert.Equal(t, "_b_axe", tw.ReplyTargetAuthor())
	assert.Equal(t, "https://twitter.com/_b_axe/status/100", tw.ReplyTargetURL())
}

func TestScreenshotPathIsSetOnce(t *testing.T) {
	tw := NewTweet(RawTweet{IDStr: "1"})
	tw.SetScreenshotPath("")
	tw.SetScreenshotPath("/tmp/a.png")
	tw.SetScreenshotPath("/tmp/b.png")
	assert.Equal(t, "/tmp/a.png", tw.ScreenshotPath())
}

func TestRequestTweet(t *testing.T) {
	request := RawTweet{ID: 9, IDStr: "9", Author: "requester", Hashtags: []string{"Screenshot"}}
	target := RawTweet{ID: 5, IDStr: "5", Author: "target", Text: "original words"}

	tw := NewTweet(RequestTweet(request, target))
	assert.True(t, request.HasHashtag("screenshot"))
	assert.Equal(t, "9", tw.IDStr())
	assert.Equal(t, "5", tw.QuotedID())
	assert.Equal(t, `@requester "original words" -.@target`, tw.ReplyMessage())
	assert.Nil(t, request.Quoted)
}

func TestNewestID(t *testing.T) {
	assert.Equal(t, "1218642707586977797", NewestID("999", "1218642707586977797", "1218642707586977796"))
	assert.Equal(t, "", NewestID())
	assert.Equal(t, "10", NewestID("9", "10"))
}
