package cmdlog

import (
	"bytes"
	"errors"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"chronicler/internal/metrics"
)

func TestRunCountsAndLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf)

	runs := testutil.ToFloat64(metrics.Runs.WithLabelValues("cmdlog_test"))
	fails := testutil.ToFloat64(metrics.RunErrors.WithLabelValues("cmdlog_test"))

	assert.NoError(t, Run(logger, "cmdlog_test", func() error { return nil }))
	boom := errors.New("boom")
	assert.ErrorIs(t, Run(logger, "cmdlog_test", func() error { return boom }), boom)

	assert.Equal(t, runs+2, testutil.ToFloat64(metrics.Runs.WithLabelValues("cmdlog_test")))
	assert.Equal(t, fails+1, testutil.ToFloat64(metrics.RunErrors.WithLabelValues("cmdlog_test")))
	assert.Contains(t, buf.String(), "cmdlog_test ok")
	assert.Contains(t, buf.String(), "cmdlog_test failed")
	assert.Contains(t, buf.String(), "boom")
}
