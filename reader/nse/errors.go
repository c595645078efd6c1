package nse

import (
	"fmt"
)

// SessionInitError reports a failed cookie handshake against the landing
// page. Without cookies the data endpoints reject every request, so the
// session is unusable.
type SessionInitError struct {
	Status int
	Err    error
}

func (e *SessionInitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("session init failed: %v", e.Err)
	}
	return fmt.Sprintf("session init failed: handshake status %d", e.Status)
}

func (e *SessionInitError) Unwrap() error { return e.Err }

// FetchExhaustedError reports that a data request kept failing after all
// retry attempts.
type FetchExhaustedError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchExhaustedError) Error() string {
	return fmt.Sprintf("fetch exhausted after %d attempts for %s: %v", e.Attempts, e.URL, e.Err)
}

func (e *FetchExhaustedError) Unwrap() error { return e.Err }

// InvalidSnapshotError reports a malformed or incomplete option-chain
// payload. Status and a short body snippet are kept for diagnostics; alert
// text is never built from them.
type InvalidSnapshotError struct {
	Symbol  string
	Status  int
	Snippet string
	Err     error
}

func (e *InvalidSnapshotError) Error() string {
	return fmt.Sprintf("invalid option chain for %s (status %d): %v", e.Symbol, e.Status, e.Err)
}

func (e *InvalidSnapshotError) Unwrap() error { return e.Err }

// InvalidHistoryError reports a malformed or empty historical price payload.
type InvalidHistoryError struct {
	Symbol  string
	Status  int
	Snippet string
	Err     error
}

func (e *InvalidHistoryError) Error() string {
	return fmt.Sprintf("invalid price history for %s (status %d): %v", e.Symbol, e.Status, e.Err)
}

func (e *InvalidHistoryError) Unwrap() error { return e.Err }
