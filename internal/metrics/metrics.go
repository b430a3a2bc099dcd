package metrics

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicler_runs_total",
		Help: "Total passes by command",
	}, []string{"command"})
	RunErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicler_run_errors_total",
		Help: "Total failed passes by command",
	}, []string{"command"})
	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "chronicler_run_duration_seconds",
		Help:    "Pass duration seconds",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
	TweetsFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chronicler_tweets_fetched_total",
		Help: "Tweets returned by timeline reads",
	})
	Decisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicler_classify_decisions_total",
		Help: "Classification decisions by reason",
	}, []string{"reason", "accepted"})
	Captures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicler_captures_total",
		Help: "Screenshot attempts by outcome",
	}, []string{"outcome"})
	Replies = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicler_replies_total",
		Help: "Reply posts by outcome",
	}, []string{"outcome"})
	APICalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicler_api_calls_total",
		Help: "X API calls by endpoint and outcome",
	}, []string{"endpoint", "outcome"})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicler_api_retries_total",
		Help: "Total API retry attempts",
	}, []string{"endpoint"})
)

func init() {
	prometheus.MustRegister(Runs, RunErrors, RunDuration, TweetsFetched, Decisions, Captures, Replies, APICalls, APIRetries)
}

// Handler serves /metrics and /health.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return mux
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090") and
// returns a function that shuts it down. An empty addr falls back to
// METRICS_ADDR; when both are empty nothing is started.
func StartServer(addr string) func() {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return func() {}
	}
	srv := &http.Server{Addr: addr, Handler: Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.ListenAndServe() }()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// ObserveRunDuration records a pass duration.
func ObserveRunDuration(start time.Time) { RunDuration.Observe(time.Since(start).Seconds()) }

func IncCommandRun(cmd string)   { Runs.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { RunErrors.WithLabelValues(cmd).Inc() }

func AddTweetsFetched(n int) { TweetsFetched.Add(float64(n)) }

func IncDecision(reason string, accepted bool) {
	a := "false"
	if accepted {
		a = "true"
	}
	Decisions.WithLabelValues(reason, a).Inc()
}

func IncCapture(outcome string) { Captures.WithLabelValues(outcome).Inc() }
func IncReply(outcome string)   { Replies.WithLabelValues(outcome).Inc() }

func IncAPICall(endpoint, outcome string) { APICalls.WithLabelValues(endpoint, outcome).Inc() }

// IncAPIRetry increments the retry counter for an endpoint.
func IncAPIRetry(endpoint string) { APIRetries.WithLabelValues(endpoint).Inc() }
