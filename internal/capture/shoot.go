package capture

import (
	"context"
	"time"
)

// Wait bounds how long a capture waits for the tweet to render.
type Wait struct {
	Timeout time.Duration
	Poll    time.Duration
}

// Shoot opens url in s, waits for the first of locators to appear, scrolls
// to it and writes its screenshot to path. It returns the locator used.
func Shoot(ctx context.Context, s Session, url string, locators []string, path string, w Wait) (string, error) {
	if err := s.Open(ctx, url); err != nil {
		return "", err
	}
	loc, err := s.WaitFor(ctx, locators, w.Timeout, w.Poll)
	if err != nil {
		return "", err
	}
	if err := s.ScrollTo(ctx, loc); err != nil {
		return "", err
	}
	if err := s.Screenshot(ctx, loc, path); err != nil {
		return "", err
	}
	return loc, nil
}
