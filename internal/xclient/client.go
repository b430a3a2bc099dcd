package xclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/dghubble/go-twitter/twitter"
	"github.com/dghubble/oauth1"

	"chronicler/internal/metrics"
	"chronicler/internal/model"
)

// Timeline reads a user's recent tweets, newest first.
type Timeline interface {
	GetUserTimeline(ctx context.Context, handle, sinceID string, count int) ([]model.RawTweet, error)
}

// StatusGetter fetches a single tweet by id.
type StatusGetter interface {
	GetStatus(ctx context.Context, id string) (model.RawTweet, error)
}

// Mentions reads tweets that mention the authenticated account.
type Mentions interface {
	GetMentions(ctx context.Context, sinceID string, count int) ([]model.RawTweet, error)
}

// Poster publishes a reply with an optional image attachment.
type Poster interface {
	PostReply(ctx context.Context, text, mediaPath, inReplyToID string) (model.Reply, error)
}

// Credentials are the OAuth 1.0a user-context keys of one account.
type Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string
}

func (c Credentials) Complete() bool {
	return c.ConsumerKey != "" && c.ConsumerSecret != "" && c.AccessToken != "" && c.AccessSecret != ""
}

const defaultUploadURL = "https://upload.twitter.com/1.1/media/upload.json"

// HTTPClient talks to the v1.1 REST API as one account. Requests are
// signed with OAuth1 and paced by a shared rate limiter.
type HTTPClient struct {
	httpClient  *http.Client
	uploadURL   string
	maxAttempts int
	baseBackoff time.Duration
}

// Options tune an HTTPClient. Zero values pick the defaults.
type Options struct {
	// Transport is the base round tripper, http.DefaultTransport when nil.
	Transport http.RoundTripper
	Timeout   time.Duration
	UploadURL string
}

func NewHTTPClient(creds Credentials, opts Options) (*HTTPClient, error) {
	if !creds.Complete() {
		return nil, errors.New("x api: incomplete credentials")
	}
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	uploadURL := opts.UploadURL
	if uploadURL == "" {
		uploadURL = defaultUploadURL
	}
	limited := &http.Client{Transport: &limitedTransport{base: base, limiter: newDefaultLimiter()}}
	ctx := context.WithValue(context.Background(), oauth1.HTTPClient, limited)
	signed := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret).
		Client(ctx, oauth1.NewToken(creds.AccessToken, creds.AccessSecret))
	signed.Timeout = timeout
	return &HTTPClient{
		httpClient:  signed,
		uploadURL:   uploadURL,
		maxAttempts: getEnvInt("X_API_MAX_ATTEMPTS", 3),
		baseBackoff: time.Duration(getEnvInt("X_API_BASE_BACKOFF_MS", 500)) * time.Millisecond,
	}, nil
}

// api returns a go-twitter client whose requests carry ctx.
func (c *HTTPClient) api(ctx context.Context) *twitter.Client {
	return twitter.NewClient(&http.Client{
		Transport: &contextTransport{ctx: ctx, base: c.httpClient.Transport},
		Timeout:   c.httpClient.Timeout,
	})
}

func (c *HTTPClient) GetUserTimeline(ctx context.Context, handle, sinceID string, count int) ([]model.RawTweet, error) {
	if handle == "" {
		return nil, errors.New("empty handle")
	}
	params := &twitter.UserTimelineParams{
		ScreenName: handle,
		Count:      clamp(count, 1, 200),
		TweetMode:  "extended",
	}
	if sinceID != "" {
		id, err := parseID(sinceID)
		if err != nil {
			return nil, err
		}
		params.SinceID = id
	}
	tweets, resp, err := c.api(ctx).Timelines.UserTimeline(params)
	err = mapError(resp, err)
	metrics.IncAPICall("user_timeline", Outcome(err))
	if err != nil {
		return nil, fmt.Errorf("user timeline @%s: %w", handle, err)
	}
	return toRawTweets(tweets), nil
}

func (c *HTTPClient) GetStatus(ctx context.Context, id string) (model.RawTweet, error) {
	n, err := parseID(id)
	if err != nil {
		return model.RawTweet{}, err
	}
	tw, resp, err := c.api(ctx).Statuses.Show(n, &twitter.StatusShowParams{TweetMode: "extended"})
	err = mapError(resp, err)
	metrics.IncAPICall("statuses_show", Outcome(err))
	if err != nil {
		return model.RawTweet{}, fmt.Errorf("status %s: %w", id, err)
	}
	return toRaw(tw), nil
}

func (c *HTTPClient) GetMentions(ctx context.Context, sinceID string, count int) ([]model.RawTweet, error) {
	params := &twitter.MentionTimelineParams{
		Count:     clamp(count, 1, 200),
		TweetMode: "extended",
	}
	if sinceID != "" {
		id, err := parseID(sinceID)
		if err != nil {
			return nil, err
		}
		params.SinceID = id
	}
	tweets, resp, err := c.api(ctx).Timelines.MentionTimeline(params)
	err = mapError(resp, err)
	metrics.IncAPICall("mentions_timeline", Outcome(err))
	if err != nil {
		return nil, fmt.Errorf("mentions: %w", err)
	}
	return toRawTweets(tweets), nil
}

// PostReply uploads mediaPath (when set) and posts text in reply to inReplyToID.
func (c *HTTPClient) PostReply(ctx context.Context, text, mediaPath, inReplyToID string) (model.Reply, error) {
	target, err := parseID(inReplyToID)
	if err != nil {
		return model.Reply{}, err
	}
	params := &twitter.StatusUpdateParams{InReplyToStatusID: target}
	if mediaPath != "" {
		mediaID, err := c.uploadMedia(ctx, mediaPath)
		metrics.IncAPICall("media_upload", Outcome(err))
		if err != nil {
			return model.Reply{}, fmt.Errorf("upload %s: %w", mediaPath, err)
		}
		params.MediaIds = []int64{mediaID}
	}
	tw, resp, err := c.api(ctx).Statuses.Update(text, params)
	err = mapError(resp, err)
	metrics.IncAPICall("statuses_update", Outcome(err))
	if err != nil {
		return model.Reply{}, fmt.Errorf("reply to %s: %w", inReplyToID, err)
	}
	if tw == nil {
		return model.Reply{}, errors.New("x api: empty update response")
	}
	out := model.Reply{
		ID:                  tw.IDStr,
		InReplyToStatusID:   tw.InReplyToStatusIDStr,
		InReplyToScreenName: tw.InReplyToScreenName,
	}
	if out.InReplyToStatusID == "" && tw.InReplyToStatusID != 0 {
		out.InReplyToStatusID = strconv.FormatInt(tw.InReplyToStatusID, 10)
	}
	return out, nil
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid tweet id %q", id)
	}
	return n, nil
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil && i > 0 {
		return i
	}
	return def
}
