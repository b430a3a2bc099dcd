package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicler/internal/logging"
)

func TestAddRejectsBadSpec(t *testing.T) {
	s := New(logging.Discard(), 0)
	assert.Error(t, s.Add("run", "every now and then", func(context.Context) error { return nil }))
}

func TestRunFiresJobsUntilCancelled(t *testing.T) {
	s := New(logging.Discard(), time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var runs atomic.Int32
	require.NoError(t, s.Add("run", "@every 1s", func(jobCtx context.Context) error {
		runs.Add(1)
		_, hasDeadline := jobCtx.Deadline()
		assert.True(t, hasDeadline)
		cancel()
		return errors.New("logged, not fatal")
	}))

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.GreaterOrEqual(t, runs.Load(), int32(1))
}
