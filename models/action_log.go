package models

import (
	"time"
)

// Outcome is the terminal classification of one account's checkin attempt
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeAlreadyDone Outcome = "already_done"
	OutcomeFailed      Outcome = "failed"
	OutcomeUnknown     Outcome = "unknown"
)

// Terminal reports whether the outcome ends failover for the account.
// A success or already-done result stops further endpoint attempts.
func (o Outcome) Terminal() bool {
	return o == OutcomeSuccess || o == OutcomeAlreadyDone
}

// ActionLogEntry is the single authoritative outcome record for one account
// in one run. Exactly one entry per account per run, reflecting the final
// outcome across all endpoint attempts.
type ActionLogEntry struct {
	ID           int64     `db:"id"`
	RunID        int64     `db:"run_id"`
	AccountEmail string    `db:"account_email"`
	CheckinTime  time.Time `db:"checkin_time"`
	Outcome      Outcome   `db:"outcome"`
	Message      string    `db:"message"`
	Reward       int64     `db:"reward"`
	Endpoint     string    `db:"endpoint"`
	CreatedAt    time.Time `db:"created_at"`
}
