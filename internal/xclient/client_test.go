package xclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rewriteTransport sends every request to the test server, keeping the path.
type rewriteTransport struct{ target *url.URL }

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.URL.Scheme = t.target.Scheme
	r.URL.Host = t.target.Host
	r.Host = ""
	return http.DefaultTransport.RoundTrip(r)
}

var testCreds = Credentials{ConsumerKey: "ck", ConsumerSecret: "cs", AccessToken: "at", AccessSecret: "as"}

// helper to create client pointed at a test server
func newTestClient(t *testing.T, h http.Handler) *HTTPClient {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	u, _ := url.Parse(ts.URL)
	c, err := NewHTTPClient(testCreds, Options{Transport: rewriteTransport{target: u}, Timeout: 5 * time.Second})
	require.NoError(t, err)
	c.maxAttempts = 3
	c.baseBackoff = 10 * time.Millisecond
	return c
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

const quoteTweetJSON = `{
  "id": 1218642707586977797,
  "id_str": "1218642707586977797",
  "full_text": "look at this",
  "created_at": "Sat Jan 18 20:15:43 +0000 2020",
  "user": {"screen_name": "_b_axe"},
  "quoted_status": {
    "id": 1218638650726146050,
    "id_str": "1218638650726146050",
    "full_text": "@someone read it https://t.co/2kzeCWezvw",
    "in_reply_to_screen_name": "someone",
    "user": {"screen_name": "kenklippenstein"},
    "entities": {
      "urls": [{"url": "https://t.co/2kzeCWezvw", "expanded_url": "https://example.com/a", "display_url": "example.com/a"}],
      "hashtags": [{"text": "news"}],
      "user_mentions": [{"screen_name": "someone"}]
    }
  }
}`

func TestNewHTTPClientRequiresCredentials(t *testing.T) {
	_, err := NewHTTPClient(Credentials{ConsumerKey: "ck"}, Options{})
	assert.Error(t, err)
}

func TestGetUserTimeline(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/1.1/statuses/user_timeline.json", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "OAuth ") {
			t.Errorf("request not signed: %q", r.Header.Get("Authorization"))
		}
		q := r.URL.Query()
		assert.Equal(t, "_b_axe", q.Get("screen_name"))
		assert.Equal(t, "100", q.Get("since_id"))
		assert.Equal(t, "10", q.Get("count"))
		assert.Equal(t, "extended", q.Get("tweet_mode"))
		writeJSON(w, http.StatusOK, "["+quoteTweetJSON+"]")
	})
	c := newTestClient(t, mux)

	tweets, err := c.GetUserTimeline(context.Background(), "_b_axe", "100", 10)
	require.NoError(t, err)
	require.Len(t, tweets, 1)

	tw := tweets[0]
	assert.Equal(t, "1218642707586977797", tw.IDStr)
	assert.Equal(t, int64(1218642707586977797), tw.ID)
	assert.Equal(t, "_b_axe", tw.Author)
	assert.Equal(t, "look at this", tw.Text)
	assert.Equal(t, 2020, tw.CreatedAt.Year())
	require.NotNil(t, tw.Quoted)
	assert.Equal(t, "kenklippenstein", tw.Quoted.Author)
	assert.Equal(t, "1218638650726146050", tw.Quoted.IDStr)
	assert.Equal(t, "someone", tw.Quoted.InReplyToScreenName)
	require.Len(t, tw.Quoted.URLs, 1)
	assert.Equal(t, "https://t.co/2kzeCWezvw", tw.Quoted.URLs[0].URL)
	assert.Equal(t, []string{"news"}, tw.Quoted.Hashtags)
	assert.Equal(t, []string{"someone"}, tw.Quoted.Mentions)
}

func TestGetUserTimelineWithoutCursor(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/1.1/statuses/user_timeline.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("since_id"))
		writeJSON(w, http.StatusOK, "[]")
	})
	c := newTestClient(t, mux)

	tweets, err := c.GetUserTimeline(context.Background(), "_b_axe", "", 10)
	require.NoError(t, err)
	assert.Empty(t, tweets)
}

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"rate limit code", http.StatusTooManyRequests, `{"errors":[{"code":88,"message":"Rate limit exceeded"}]}`, ErrRateLimited},
		{"rate limit status only", http.StatusTooManyRequests, ``, ErrRateLimited},
		{"blocked", http.StatusUnauthorized, `{"errors":[{"code":136,"message":"You have been blocked"}]}`, ErrPermission},
		{"protected", http.StatusForbidden, `{"errors":[{"code":179,"message":"Not authorized"}]}`, ErrPermission},
		{"locked", http.StatusForbidden, `{"errors":[{"code":326,"message":"Account locked"}]}`, ErrLocked},
		{"deleted", http.StatusNotFound, `{"errors":[{"code":144,"message":"No status found"}]}`, ErrNotFound},
		{"missing page", http.StatusNotFound, ``, ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tc.body == "" {
					w.WriteHeader(tc.status)
					return
				}
				writeJSON(w, tc.status, tc.body)
			}))
			_, err := c.GetStatus(context.Background(), "1218638650726146050")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestGetStatusRejectsBadID(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler())
	_, err := c.GetStatus(context.Background(), "abc")
	assert.Error(t, err)
}

func TestGetMentions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/1.1/statuses/mentions_timeline.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "55", r.URL.Query().Get("since_id"))
		writeJSON(w, http.StatusOK, `[{"id":60,"id_str":"60","full_text":"@FTBandFTR #screenshot","in_reply_to_status_id":50,"in_reply_to_status_id_str":"50","in_reply_to_screen_name":"target","user":{"screen_name":"requester"},"entities":{"hashtags":[{"text":"screenshot"}]}}]`)
	})
	c := newTestClient(t, mux)

	tweets, err := c.GetMentions(context.Background(), "55", 20)
	require.NoError(t, err)
	require.Len(t, tweets, 1)
	assert.Equal(t, "50", tweets[0].InReplyToStatusIDStr)
	assert.True(t, tweets[0].HasHashtag("ScreenShot"))
}

func TestPostReplyUploadsMedia(t *testing.T) {
	img := filepath.Join(t.TempDir(), "tweet_capture_1218638650726146050.png")
	require.NoError(t, os.WriteFile(img, []byte("\x89PNG fake"), 0o644))

	mux := http.NewServeMux()
	mux.HandleFunc("/1.1/media/upload.json", func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("media")
		if err != nil {
			t.Errorf("media field: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		assert.Equal(t, "\x89PNG fake", string(b))
		assert.Equal(t, "tweet_capture_1218638650726146050.png", hdr.Filename)
		writeJSON(w, http.StatusOK, `{"media_id":710511363345354753,"media_id_string":"710511363345354753"}`)
	})
	mux.HandleFunc("/1.1/statuses/update.json", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, `@_b_axe "read it" -.@kenklippenstein`, r.PostForm.Get("status"))
		assert.Equal(t, "1218642707586977797", r.PostForm.Get("in_reply_to_status_id"))
		assert.Equal(t, "710511363345354753", r.PostForm.Get("media_ids"))
		writeJSON(w, http.StatusOK, `{"id":1218650000000000000,"id_str":"1218650000000000000","in_reply_to_status_id":1218642707586977797,"in_reply_to_status_id_str":"1218642707586977797","in_reply_to_screen_name":"_b_axe"}`)
	})
	c := newTestClient(t, mux)

	reply, err := c.PostReply(context.Background(), `@_b_axe "read it" -.@kenklippenstein`, img, "1218642707586977797")
	require.NoError(t, err)
	assert.Equal(t, "1218650000000000000", reply.ID)
	assert.Equal(t, "1218642707586977797", reply.InReplyToStatusID)
	assert.Equal(t, "_b_axe", reply.InReplyToScreenName)
}

func TestPostReplyMissingMediaFile(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler())
	_, err := c.PostReply(context.Background(), "hi", filepath.Join(t.TempDir(), "nope.png"), "1")
	assert.Error(t, err)
}

func TestDoWithRetryHandles429(t *testing.T) {
	attempts := 0
	var bodies []int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, len(b))
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))

	req, _ := http.NewRequest(http.MethodPost, "https://upload.twitter.com/test", strings.NewReader("payload"))
	resp, err := c.doWithRetry(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, []int{7, 7}, bodies)
}

func TestDoWithRetryGivesUpOn5xx(t *testing.T) {
	attempts := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadGateway)
	}))

	req, _ := http.NewRequest(http.MethodGet, "https://upload.twitter.com/test", nil)
	resp, err := c.doWithRetry(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, 3, attempts)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "rate_limited", Outcome(fmt.Errorf("timeline: %w", ErrRateLimited)))
	assert.Equal(t, "locked", Outcome(ErrLocked))
	assert.Equal(t, "error", Outcome(errors.New("boom")))
}
