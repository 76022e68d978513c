package model

import (
	"fmt"
	"time"
)

// HTTPError carries the status of a failed board request so the retry
// decorator can decide whether the failure is transient.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from the Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}
