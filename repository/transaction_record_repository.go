package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"autocheckin/database"
	"autocheckin/models"
)

// TransactionRecordRepository implements the TransactionRecordRepository interface
type TransactionRecordRepository struct {
	q queryable
}

// NewTransactionRecordRepository creates a new transaction record repository
func NewTransactionRecordRepository(db *database.DB) *TransactionRecordRepository {
	return &TransactionRecordRepository{q: db.Pool}
}

// newTransactionRecordRepositoryWithTx creates a new transaction record repository with a transaction
func newTransactionRecordRepositoryWithTx(tx queryable) *TransactionRecordRepository {
	return &TransactionRecordRepository{q: tx}
}

// Exists reports whether a record with the remote id is already stored
func (r *TransactionRecordRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM transaction_records WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check transaction record %d: %w", id, err)
	}
	return exists, nil
}

// Insert stores a new record. The remote-issued id is the primary key, so a
// concurrent duplicate surfaces as a constraint error rather than a second row.
func (r *TransactionRecordRepository) Insert(ctx context.Context, record *models.TransactionRecord) error {
	query := `
		INSERT INTO transaction_records
			(id, remote_uid, account_email, tokens, source, remark, origin_ip, remote_time, api_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	err := r.q.QueryRow(ctx, query,
		record.ID,
		record.RemoteUID,
		record.AccountEmail,
		record.Tokens,
		record.Source,
		record.Remark,
		record.OriginIP,
		record.RemoteTime,
		record.APIID,
	).Scan(&record.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert transaction record %d: %w", record.ID, err)
	}

	return nil
}

const recordColumns = `
	id, remote_uid, account_email, tokens, source, remark, origin_ip,
	remote_time, api_id, created_at
`

func scanRecord(row pgx.Row) (*models.TransactionRecord, error) {
	var record models.TransactionRecord
	err := row.Scan(
		&record.ID,
		&record.RemoteUID,
		&record.AccountEmail,
		&record.Tokens,
		&record.Source,
		&record.Remark,
		&record.OriginIP,
		&record.RemoteTime,
		&record.APIID,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetByAccountSince returns an account's records at or after since, optionally
// filtered by source, newest first
func (r *TransactionRecordRepository) GetByAccountSince(ctx context.Context, email string, since time.Time, source string) ([]*models.TransactionRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM transaction_records
		WHERE account_email = $1
		  AND remote_time >= $2
		  AND ($3 = '' OR source = $3)
		ORDER BY remote_time DESC
	`

	rows, err := r.q.Query(ctx, query, email, since, source)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction records for %s: %w", email, err)
	}
	defer rows.Close()

	var records []*models.TransactionRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transaction records: %w", err)
	}

	return records, nil
}

// GetDailySummary aggregates earned/spent/net per date over the last days.
// An empty email aggregates all accounts.
func (r *TransactionRecordRepository) GetDailySummary(ctx context.Context, email string, days int) ([]*models.DailySummary, error) {
	query := `
		SELECT
			TO_CHAR(remote_time::date, 'YYYY-MM-DD'),
			COALESCE(SUM(tokens) FILTER (WHERE tokens > 0), 0),
			COALESCE(-SUM(tokens) FILTER (WHERE tokens < 0), 0),
			COALESCE(SUM(tokens), 0),
			COUNT(*)
		FROM transaction_records
		WHERE remote_time >= NOW() - ($1 * INTERVAL '1 day')
		  AND ($2 = '' OR account_email = $2)
		GROUP BY remote_time::date
		ORDER BY remote_time::date DESC
	`

	rows, err := r.q.Query(ctx, query, days, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily summary: %w", err)
	}
	defer rows.Close()

	var summaries []*models.DailySummary
	for rows.Next() {
		var summary models.DailySummary
		err := rows.Scan(
			&summary.Date,
			&summary.Earned,
			&summary.Spent,
			&summary.Net,
			&summary.Records,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily summary: %w", err)
		}
		summaries = append(summaries, &summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily summaries: %w", err)
	}

	return summaries, nil
}

// GetLedgerStats summarizes one account's stored records
func (r *TransactionRecordRepository) GetLedgerStats(ctx context.Context, email string) (*models.LedgerStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(tokens) FILTER (WHERE tokens > 0), 0),
			COALESCE(-SUM(tokens) FILTER (WHERE tokens < 0), 0),
			COALESCE(SUM(tokens), 0)
		FROM transaction_records
		WHERE account_email = $1
	`

	stats := &models.LedgerStats{Email: email}
	err := r.q.QueryRow(ctx, query, email).Scan(
		&stats.TotalRecords,
		&stats.TotalEarned,
		&stats.TotalSpent,
		&stats.NetTokens,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger stats for %s: %w", email, err)
	}

	return stats, nil
}

// DeleteBefore removes records whose remote timestamp predates the cutoff
func (r *TransactionRecordRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.q.Exec(ctx, `DELETE FROM transaction_records WHERE remote_time < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete transaction records before %s: %w", cutoff, err)
	}
	return result.RowsAffected(), nil
}
