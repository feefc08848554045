package models

import (
	"time"
)

// TriggerKind represents how a checkin run was started
type TriggerKind string

const (
	TriggerManual    TriggerKind = "manual"
	TriggerScheduled TriggerKind = "scheduled"
	TriggerAPI       TriggerKind = "api"
)

// RunStatus represents the lifecycle state of a run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
)

// Run represents one batch checkin execution across all accounts.
// It is created at run start, mutated per account, and finalized exactly once.
type Run struct {
	ID               int64       `db:"id"`
	StartTime        time.Time   `db:"start_time"`
	EndTime          *time.Time  `db:"end_time"`
	TriggerKind      TriggerKind `db:"trigger_kind"`
	TriggerBy        string      `db:"trigger_by"`
	TotalAccounts    int         `db:"total_accounts"`
	SuccessCount     int         `db:"success_count"`
	FailedCount      int         `db:"failed_count"`
	AlreadyDoneCount int         `db:"already_done_count"`
	DurationSeconds  float64     `db:"duration_seconds"`
	Status           RunStatus   `db:"status"`
	NotificationSent bool        `db:"notification_sent"`
	CreatedAt        time.Time   `db:"created_at"`
}

// RunSummary is the structure handed to the API and notification collaborators
type RunSummary struct {
	RunID       int64
	Total       int
	Success     int
	Failed      int
	AlreadyDone int
	Duration    time.Duration
	Entries     []*ActionLogEntry
}
