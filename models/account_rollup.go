package models

import (
	"time"
)

// AccountRollup holds per-account cumulative checkin totals, upserted after
// every action log entry so dashboard readers always see totals consistent
// with the entries written so far.
type AccountRollup struct {
	Email         string     `db:"email"`
	TotalAttempts int        `db:"total_attempts"`
	SuccessCount  int        `db:"success_count"`
	FailedCount   int        `db:"failed_count"`
	TotalReward   int64      `db:"total_reward"`
	LastCheckin   *time.Time `db:"last_checkin"`
	FirstCheckin  *time.Time `db:"first_checkin"`
	UpdatedAt     time.Time  `db:"updated_at"`
}
