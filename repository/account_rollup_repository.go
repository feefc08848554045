package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"autocheckin/database"
	"autocheckin/models"
)

// AccountRollupRepository implements the AccountRollupRepository interface
type AccountRollupRepository struct {
	q queryable
}

// NewAccountRollupRepository creates a new account rollup repository
func NewAccountRollupRepository(db *database.DB) *AccountRollupRepository {
	return &AccountRollupRepository{q: db.Pool}
}

// newAccountRollupRepositoryWithTx creates a new account rollup repository with a transaction
func newAccountRollupRepositoryWithTx(tx queryable) *AccountRollupRepository {
	return &AccountRollupRepository{q: tx}
}

// Apply upserts the rollup for one observed outcome. Success and already-done
// both count toward success totals; only a success carries reward.
func (r *AccountRollupRepository) Apply(ctx context.Context, email string, outcome models.Outcome, reward int64, at time.Time) error {
	successInc := 0
	failedInc := 0
	if outcome.Terminal() {
		successInc = 1
	} else {
		failedInc = 1
		reward = 0
	}

	query := `
		INSERT INTO account_rollups
			(email, total_attempts, success_count, failed_count, total_reward, last_checkin, first_checkin, updated_at)
		VALUES ($1, 1, $2, $3, $4, $5, $5, NOW())
		ON CONFLICT (email) DO UPDATE SET
			total_attempts = account_rollups.total_attempts + 1,
			success_count = account_rollups.success_count + EXCLUDED.success_count,
			failed_count = account_rollups.failed_count + EXCLUDED.failed_count,
			total_reward = account_rollups.total_reward + EXCLUDED.total_reward,
			last_checkin = GREATEST(account_rollups.last_checkin, EXCLUDED.last_checkin),
			first_checkin = LEAST(account_rollups.first_checkin, EXCLUDED.first_checkin),
			updated_at = NOW()
	`

	_, err := r.q.Exec(ctx, query, email, successInc, failedInc, reward, at)
	if err != nil {
		return fmt.Errorf("failed to apply rollup for %s: %w", email, err)
	}

	return nil
}

const rollupColumns = `
	email, total_attempts, success_count, failed_count, total_reward,
	last_checkin, first_checkin, updated_at
`

func scanRollup(row pgx.Row) (*models.AccountRollup, error) {
	var rollup models.AccountRollup
	err := row.Scan(
		&rollup.Email,
		&rollup.TotalAttempts,
		&rollup.SuccessCount,
		&rollup.FailedCount,
		&rollup.TotalReward,
		&rollup.LastCheckin,
		&rollup.FirstCheckin,
		&rollup.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rollup, nil
}

// GetByEmail returns one account's rollup, nil when absent
func (r *AccountRollupRepository) GetByEmail(ctx context.Context, email string) (*models.AccountRollup, error) {
	query := `SELECT ` + rollupColumns + ` FROM account_rollups WHERE email = $1`

	rollup, err := scanRollup(r.q.QueryRow(ctx, query, email))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rollup for %s: %w", email, err)
	}

	return rollup, nil
}

// GetAll returns all rollups ordered by total reward descending
func (r *AccountRollupRepository) GetAll(ctx context.Context) ([]*models.AccountRollup, error) {
	query := `SELECT ` + rollupColumns + ` FROM account_rollups ORDER BY total_reward DESC, email`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get rollups: %w", err)
	}
	defer rows.Close()

	var rollups []*models.AccountRollup
	for rows.Next() {
		rollup, err := scanRollup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rollup: %w", err)
		}
		rollups = append(rollups, rollup)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rollups: %w", err)
	}

	return rollups, nil
}

// TotalReward sums cumulative rewards across all accounts
func (r *AccountRollupRepository) TotalReward(ctx context.Context) (int64, error) {
	var total int64
	err := r.q.QueryRow(ctx, `SELECT COALESCE(SUM(total_reward), 0) FROM account_rollups`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum rewards: %w", err)
	}
	return total, nil
}
