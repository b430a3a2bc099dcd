package jobs

import (
	"context"

	"chronicler/internal/store/journal"
)

// Recorder journals what a pass did. *journal.DB satisfies it.
type Recorder interface {
	PutEvent(ctx context.Context, e journal.Event) error
}

type nopRecorder struct{}

func (nopRecorder) PutEvent(context.Context, journal.Event) error { return nil }

type runIDKey struct{}

// WithRunID tags ctx with the id of the current pass.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the pass id carried by ctx, or "".
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

func orNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}
