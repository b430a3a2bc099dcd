// Package lock keeps a second instance from running a pass concurrently.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ErrHeld means another process kept the lock for the whole timeout.
var ErrHeld = errors.New("lock: held by another instance")

const retryDelay = 250 * time.Millisecond

// Acquire takes an exclusive file lock at path, waiting up to timeout when
// it is taken. A timeout of 0 tries once.
// The returned release func unlocks it.
func Acquire(ctx context.Context, path string, timeout time.Duration) (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("lock dir: %w", err)
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if ok {
		return fl.Unlock, nil
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrHeld, path)
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ok, err = fl.TryLockContext(waitCtx, retryDelay)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s (waited %s)", ErrHeld, path, timeout)
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHeld, path)
	}
	return fl.Unlock, nil
}
