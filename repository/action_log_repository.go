package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"autocheckin/database"
	"autocheckin/models"
)

// ActionLogRepository implements the ActionLogRepository interface
type ActionLogRepository struct {
	q queryable
}

// NewActionLogRepository creates a new action log repository
func NewActionLogRepository(db *database.DB) *ActionLogRepository {
	return &ActionLogRepository{q: db.Pool}
}

// newActionLogRepositoryWithTx creates a new action log repository with a transaction
func newActionLogRepositoryWithTx(tx queryable) *ActionLogRepository {
	return &ActionLogRepository{q: tx}
}

const actionLogColumns = `
	id, run_id, account_email, checkin_time, outcome, message, reward,
	endpoint, created_at
`

func scanActionLogEntry(row pgx.Row) (*models.ActionLogEntry, error) {
	var entry models.ActionLogEntry
	err := row.Scan(
		&entry.ID,
		&entry.RunID,
		&entry.AccountEmail,
		&entry.CheckinTime,
		&entry.Outcome,
		&entry.Message,
		&entry.Reward,
		&entry.Endpoint,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Create appends one entry and sets entry.ID
func (r *ActionLogRepository) Create(ctx context.Context, entry *models.ActionLogEntry) error {
	query := `
		INSERT INTO action_log (run_id, account_email, checkin_time, outcome, message, reward, endpoint)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		entry.RunID,
		entry.AccountEmail,
		entry.CheckinTime,
		entry.Outcome,
		entry.Message,
		entry.Reward,
		entry.Endpoint,
	).Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create action log entry for %s: %w", entry.AccountEmail, err)
	}

	return nil
}

// GetByRun returns all entries for a run in insertion order
func (r *ActionLogRepository) GetByRun(ctx context.Context, runID int64) ([]*models.ActionLogEntry, error) {
	query := `SELECT ` + actionLogColumns + ` FROM action_log WHERE run_id = $1 ORDER BY id`

	rows, err := r.q.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get action log for run %d: %w", runID, err)
	}
	defer rows.Close()

	return collectActionLogEntries(rows)
}

// GetByAccountSince returns an account's entries at or after since, newest first
func (r *ActionLogRepository) GetByAccountSince(ctx context.Context, email string, since time.Time) ([]*models.ActionLogEntry, error) {
	query := `
		SELECT ` + actionLogColumns + `
		FROM action_log
		WHERE account_email = $1 AND checkin_time >= $2
		ORDER BY checkin_time DESC
	`

	rows, err := r.q.Query(ctx, query, email, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get action log for %s: %w", email, err)
	}
	defer rows.Close()

	return collectActionLogEntries(rows)
}

func collectActionLogEntries(rows pgx.Rows) ([]*models.ActionLogEntry, error) {
	var entries []*models.ActionLogEntry
	for rows.Next() {
		entry, err := scanActionLogEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action log entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate action log entries: %w", err)
	}

	return entries, nil
}
