package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"autocheckin/database"
	"autocheckin/models"
)

// RunRepository implements the RunRepository interface
type RunRepository struct {
	q queryable
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *database.DB) *RunRepository {
	return &RunRepository{q: db.Pool}
}

// newRunRepositoryWithTx creates a new run repository with a transaction
func newRunRepositoryWithTx(tx queryable) *RunRepository {
	return &RunRepository{q: tx}
}

const runColumns = `
	id, start_time, end_time, trigger_kind, trigger_by, total_accounts,
	success_count, failed_count, already_done_count, duration_seconds,
	status, notification_sent, created_at
`

func scanRun(row pgx.Row) (*models.Run, error) {
	var run models.Run
	err := row.Scan(
		&run.ID,
		&run.StartTime,
		&run.EndTime,
		&run.TriggerKind,
		&run.TriggerBy,
		&run.TotalAccounts,
		&run.SuccessCount,
		&run.FailedCount,
		&run.AlreadyDoneCount,
		&run.DurationSeconds,
		&run.Status,
		&run.NotificationSent,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Create inserts a new run in running state and sets run.ID
func (r *RunRepository) Create(ctx context.Context, run *models.Run) error {
	query := `
		INSERT INTO runs (start_time, trigger_kind, trigger_by, total_accounts, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		run.StartTime,
		run.TriggerKind,
		run.TriggerBy,
		run.TotalAccounts,
		run.Status,
	).Scan(&run.ID, &run.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// GetByID retrieves a run by its ID
func (r *RunRepository) GetByID(ctx context.Context, id int64) (*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = $1`

	run, err := scanRun(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %d: %w", id, err)
	}

	return run, nil
}

// IncrementOutcome bumps the run counter matching the outcome. An unknown
// outcome counts as failed.
func (r *RunRepository) IncrementOutcome(ctx context.Context, runID int64, outcome models.Outcome) error {
	var column string
	switch outcome {
	case models.OutcomeSuccess:
		column = "success_count"
	case models.OutcomeAlreadyDone:
		column = "already_done_count"
	default:
		column = "failed_count"
	}

	query := fmt.Sprintf(`UPDATE runs SET %s = %s + 1 WHERE id = $1`, column, column)

	result, err := r.q.Exec(ctx, query, runID)
	if err != nil {
		return fmt.Errorf("failed to increment %s for run %d: %w", column, runID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("run %d not found", runID)
	}

	return nil
}

// Finalize stamps end time, duration and completed status. The status guard
// makes finalization a one-shot: a second call finds no running row.
func (r *RunRepository) Finalize(ctx context.Context, runID int64, notified bool) (*models.Run, error) {
	query := `
		UPDATE runs
		SET end_time = NOW(),
		    duration_seconds = EXTRACT(EPOCH FROM (NOW() - start_time)),
		    status = $1,
		    notification_sent = $2
		WHERE id = $3 AND status = $4
		RETURNING ` + runColumns

	run, err := scanRun(r.q.QueryRow(ctx, query,
		models.RunStatusCompleted, notified, runID, models.RunStatusRunning))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("run %d is not running", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to finalize run %d: %w", runID, err)
	}

	return run, nil
}

// MarkNotified records that the run digest was delivered
func (r *RunRepository) MarkNotified(ctx context.Context, runID int64) error {
	query := `UPDATE runs SET notification_sent = TRUE WHERE id = $1`

	result, err := r.q.Exec(ctx, query, runID)
	if err != nil {
		return fmt.Errorf("failed to mark run %d notified: %w", runID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("run %d not found", runID)
	}

	return nil
}

// GetRecent returns the most recent runs, newest first
func (r *RunRepository) GetRecent(ctx context.Context, limit int) ([]*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY start_time DESC LIMIT $1`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

// GetWindowStats aggregates completed runs started at or after since.
// A nil since means all time.
func (r *RunRepository) GetWindowStats(ctx context.Context, since *time.Time) (*models.WindowStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(total_accounts), 0),
			COALESCE(SUM(success_count), 0),
			COALESCE(SUM(failed_count), 0),
			COALESCE(SUM(already_done_count), 0)
		FROM runs
		WHERE status = $1
		  AND ($2::timestamptz IS NULL OR start_time >= $2)
	`

	var stats models.WindowStats
	err := r.q.QueryRow(ctx, query, models.RunStatusCompleted, since).Scan(
		&stats.TotalRuns,
		&stats.Total,
		&stats.Success,
		&stats.Failed,
		&stats.AlreadyDone,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get window stats: %w", err)
	}

	return &stats, nil
}
