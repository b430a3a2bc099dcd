package model

import (
	"strings"
	"time"
)

// URLEntity is a link extracted from a tweet body.
type URLEntity struct {
	URL         string
	ExpandedURL string
	DisplayURL  string
}

// RawTweet is one tweet record as returned by the X API, in typed form.
// IDStr is the comparison-safe identifier; ID is kept because the API
// returns both and some endpoints only accept the integer form.
type RawTweet struct {
	ID                   int64
	IDStr                string
	Author               string
	Text                 string
	CreatedAt            time.Time
	InReplyToStatusID    int64
	InReplyToStatusIDStr string
	InReplyToScreenName  string
	Quoted               *RawTweet
	URLs                 []URLEntity
	Hashtags             []string
	Mentions             []string
}

// HasHashtag reports whether the tweet carries tag (without '#', case-insensitive).
func (r RawTweet) HasHashtag(tag string) bool {
	for _, h := range r.Hashtags {
		if strings.EqualFold(h, tag) {
			return true
		}
	}
	return false
}

// Reply is the write API's answer to a posted reply.
type Reply struct {
	ID                  string
	InReplyToStatusID   string
	InReplyToScreenName string
}
