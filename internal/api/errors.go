package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// StatusError is returned for any non-200 upstream response.
type StatusError struct {
	Op         string
	StatusCode int
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("riot %s: status %d (retry after %s)", e.Op, e.StatusCode, e.RetryAfter)
	}
	return fmt.Sprintf("riot %s: status %d", e.Op, e.StatusCode)
}

func statusOf(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode, true
	}
	return 0, false
}

// IsNotFound covers 404 and the 400 Riot returns for ids it cannot decrypt.
func IsNotFound(err error) bool {
	code, ok := statusOf(err)
	return ok && (code == http.StatusNotFound || code == http.StatusBadRequest)
}

func IsRateLimited(err error) bool {
	code, ok := statusOf(err)
	return ok && code == http.StatusTooManyRequests
}

// IsUnavailable reports systemic failures: quota, 5xx, auth problems with our
// key, and transport errors that never produced a status.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	code, ok := statusOf(err)
	if !ok {
		return true
	}
	switch {
	case code == http.StatusTooManyRequests:
		return true
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return true
	case code >= 500:
		return true
	}
	return false
}

// RetryAfter returns the upstream hint carried by err, if any.
func RetryAfter(err error) time.Duration {
	var se *StatusError
	if errors.As(err, &se) {
		return se.RetryAfter
	}
	return 0
}
