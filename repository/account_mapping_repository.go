package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"autocheckin/database"
	"autocheckin/models"
)

// AccountMappingRepository implements the AccountMappingRepository interface
type AccountMappingRepository struct {
	q queryable
}

// NewAccountMappingRepository creates a new account mapping repository
func NewAccountMappingRepository(db *database.DB) *AccountMappingRepository {
	return &AccountMappingRepository{q: db.Pool}
}

// newAccountMappingRepositoryWithTx creates a new account mapping repository with a transaction
func newAccountMappingRepositoryWithTx(tx queryable) *AccountMappingRepository {
	return &AccountMappingRepository{q: tx}
}

// Upsert refreshes the mapping for a remote uid. An email that moved to a new
// remote uid loses its old mapping row first, keeping email unique.
func (r *AccountMappingRepository) Upsert(ctx context.Context, mapping *models.AccountRemoteMapping) error {
	if _, err := r.q.Exec(ctx,
		`DELETE FROM account_mapping WHERE email = $1 AND remote_uid <> $2`,
		mapping.Email, mapping.RemoteUID); err != nil {
		return fmt.Errorf("failed to clear stale mapping for %s: %w", mapping.Email, err)
	}

	query := `
		INSERT INTO account_mapping (remote_uid, email, last_update)
		VALUES ($1, $2, $3)
		ON CONFLICT (remote_uid) DO UPDATE SET
			email = EXCLUDED.email,
			last_update = EXCLUDED.last_update
	`

	if _, err := r.q.Exec(ctx, query, mapping.RemoteUID, mapping.Email, mapping.LastUpdate); err != nil {
		return fmt.Errorf("failed to upsert mapping for uid %d: %w", mapping.RemoteUID, err)
	}

	return nil
}

// GetByEmail returns the mapping for an email, nil when absent
func (r *AccountMappingRepository) GetByEmail(ctx context.Context, email string) (*models.AccountRemoteMapping, error) {
	query := `SELECT remote_uid, email, last_update FROM account_mapping WHERE email = $1`

	var mapping models.AccountRemoteMapping
	err := r.q.QueryRow(ctx, query, email).Scan(
		&mapping.RemoteUID,
		&mapping.Email,
		&mapping.LastUpdate,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping for %s: %w", email, err)
	}

	return &mapping, nil
}
