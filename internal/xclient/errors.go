package xclient

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dghubble/go-twitter/twitter"
)

// Error kinds surfaced by the API client. Callers compare with errors.Is.
var (
	ErrRateLimited = errors.New("x api: rate limited")
	ErrPermission  = errors.New("x api: not permitted")
	ErrLocked      = errors.New("x api: account locked")
	ErrNotFound    = errors.New("x api: not found")
)

// v1.1 error codes.
const (
	codeNotFoundPage = 34
	codeSuspended    = 63
	codeRateLimit    = 88
	codeBlocked      = 136
	codeNoStatus     = 144
	codeProtected    = 179
	codeLocked       = 326
)

// kindForCode maps an API error code to an error kind, or nil if unknown.
func kindForCode(code int) error {
	switch code {
	case codeRateLimit:
		return ErrRateLimited
	case codeBlocked, codeProtected, codeSuspended:
		return ErrPermission
	case codeLocked:
		return ErrLocked
	case codeNoStatus, codeNotFoundPage:
		return ErrNotFound
	}
	return nil
}

// mapError converts a go-twitter result into one of the error kinds.
// The API error body wins over the HTTP status when both are present.
func mapError(resp *http.Response, err error) error {
	var apiErr twitter.APIError
	if errors.As(err, &apiErr) {
		for _, d := range apiErr.Errors {
			if kind := kindForCode(d.Code); kind != nil {
				return fmt.Errorf("%w: code %d: %s", kind, d.Code, d.Message)
			}
		}
	}
	if resp != nil {
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
		case resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%w: status %d", ErrNotFound, resp.StatusCode)
		case err == nil && resp.StatusCode >= 400:
			return fmt.Errorf("x api status %d", resp.StatusCode)
		}
	}
	if err != nil {
		return fmt.Errorf("x api: %w", err)
	}
	return nil
}

// Outcome names the error kind for metrics labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrPermission):
		return "permission"
	case errors.Is(err, ErrLocked):
		return "locked"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	}
	return "error"
}
