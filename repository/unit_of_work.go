package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"autocheckin/database"
	"autocheckin/events"
	"autocheckin/service"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	runRepo          service.RunRepository
	actionLogRepo    service.ActionLogRepository
	rollupRepo       service.AccountRollupRepository
	recordRepo       service.TransactionRecordRepository
	mappingRepo      service.AccountMappingRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories with the transaction
	u.runRepo = newRunRepositoryWithTx(tx)
	u.actionLogRepo = newActionLogRepositoryWithTx(tx)
	u.rollupRepo = newAccountRollupRepositoryWithTx(tx)
	u.recordRepo = newTransactionRecordRepositoryWithTx(tx)
	u.mappingRepo = newAccountMappingRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Flush pending events after successful commit
	if u.transactionalBus != nil {
		u.transactionalBus.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	// Discard pending events on rollback
	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	return nil
}

// RunRepository returns the run repository for this unit of work
func (u *unitOfWork) RunRepository() service.RunRepository {
	if u.runRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.runRepo
}

// ActionLogRepository returns the action log repository for this unit of work
func (u *unitOfWork) ActionLogRepository() service.ActionLogRepository {
	if u.actionLogRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.actionLogRepo
}

// AccountRollupRepository returns the account rollup repository for this unit of work
func (u *unitOfWork) AccountRollupRepository() service.AccountRollupRepository {
	if u.rollupRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.rollupRepo
}

// TransactionRecordRepository returns the transaction record repository for this unit of work
func (u *unitOfWork) TransactionRecordRepository() service.TransactionRecordRepository {
	if u.recordRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.recordRepo
}

// AccountMappingRepository returns the account mapping repository for this unit of work
func (u *unitOfWork) AccountMappingRepository() service.AccountMappingRepository {
	if u.mappingRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.mappingRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
