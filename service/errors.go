package service

import (
	"errors"
	"fmt"
)

// ErrRunInProgress is returned when a trigger arrives while another run
// holds the store lock.
var ErrRunInProgress = errors.New("a checkin run is already in progress")

// ElementNotFoundError reports that every locator strategy for a logical
// target was exhausted without a match. It escalates to endpoint failover,
// never silently ignored.
type ElementNotFoundError struct {
	Target string
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("element not found: %s", e.Target)
}

// LoginRejectedError reports that the session never left the login screen
type LoginRejectedError struct {
	Endpoint string
}

func (e *LoginRejectedError) Error() string {
	return fmt.Sprintf("login rejected at %s", e.Endpoint)
}

// ChallengeUnresolvedError reports that the anti-bot challenge survived all
// bounded solve attempts
type ChallengeUnresolvedError struct {
	Attempts int
}

func (e *ChallengeUnresolvedError) Error() string {
	return fmt.Sprintf("challenge unresolved after %d attempts", e.Attempts)
}

// NetworkTimeoutError reports a bounded wait that elapsed without a response
type NetworkTimeoutError struct {
	Operation string
	Cause     error
}

func (e *NetworkTimeoutError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("timed out waiting for %s: %v", e.Operation, e.Cause)
	}
	return fmt.Sprintf("timed out waiting for %s", e.Operation)
}

func (e *NetworkTimeoutError) Unwrap() error {
	return e.Cause
}

// RemoteAPIError reports a non-zero envelope code from the remote service.
// Treated as retryable-but-unverified, never fatal to the run.
type RemoteAPIError struct {
	Code int
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("remote API returned code %d", e.Code)
}

// PersistenceError wraps a store failure during ledger ingestion so a single
// bad row can be logged and skipped without corrupting the dedup check
type PersistenceError struct {
	RecordID int64
	Cause    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist record %d: %v", e.RecordID, e.Cause)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// retryableSyncError reports whether a page fetch failure should be retried
// with backoff rather than ending the sync
func retryableSyncError(err error) bool {
	var timeout *NetworkTimeoutError
	var remote *RemoteAPIError
	return errors.As(err, &timeout) || errors.As(err, &remote)
}
