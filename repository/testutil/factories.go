package testutil

import (
	"time"

	"autocheckin/models"
)

// CreateTestRun creates a running batch run with default values
func CreateTestRun(totalAccounts int) *models.Run {
	return &models.Run{
		StartTime:     time.Now(),
		TriggerKind:   models.TriggerManual,
		TriggerBy:     "test",
		TotalAccounts: totalAccounts,
		Status:        models.RunStatusRunning,
	}
}

// CreateTestEntry creates an action log entry for a run with the given outcome
func CreateTestEntry(runID int64, email string, outcome models.Outcome) *models.ActionLogEntry {
	entry := &models.ActionLogEntry{
		RunID:        runID,
		AccountEmail: email,
		CheckinTime:  time.Now(),
		Outcome:      outcome,
		Endpoint:     "example.test",
	}
	if outcome == models.OutcomeSuccess {
		entry.Reward = 5
		entry.Message = "Checkin succeeded"
	}
	return entry
}

// CreateTestRecord creates a transaction record with the given remote id
func CreateTestRecord(id int64, email string, tokens int64) *models.TransactionRecord {
	return &models.TransactionRecord{
		ID:           id,
		RemoteUID:    42,
		AccountEmail: email,
		Tokens:       tokens,
		Source:       "checkin",
		RemoteTime:   time.Now().Truncate(time.Second),
	}
}

// CreateTestRecordAt creates a transaction record with a specific remote time
func CreateTestRecordAt(id int64, email string, tokens int64, at time.Time) *models.TransactionRecord {
	record := CreateTestRecord(id, email, tokens)
	record.RemoteTime = at
	return record
}
