package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"autocheckin/events"
	"autocheckin/models"
)

// RunLocker serializes batch runs across processes sharing one database
type RunLocker interface {
	TryAcquireRunLock(ctx context.Context) (bool, error)
	ReleaseRunLock(ctx context.Context) error
}

// runService implements the RunService interface
type runService struct {
	uowFactory UnitOfWorkFactory
	checkin    CheckinService
	locker     RunLocker
	endpoints  []string
	accounts   []models.Account
	delay      time.Duration
}

// NewRunService creates a new run orchestration service
func NewRunService(uowFactory UnitOfWorkFactory, checkin CheckinService, locker RunLocker, endpoints []string, accounts []models.Account, delay time.Duration) RunService {
	return &runService{
		uowFactory: uowFactory,
		checkin:    checkin,
		locker:     locker,
		endpoints:  endpoints,
		accounts:   accounts,
		delay:      delay,
	}
}

// TriggerRun executes one full batch over all enabled accounts. Accounts are
// processed sequentially; one account's failure never aborts the batch. The
// run row is finalized exactly once, on every exit path past its creation.
func (s *runService) TriggerRun(ctx context.Context, kind models.TriggerKind, actor string) (*models.RunSummary, error) {
	acquired, err := s.locker.TryAcquireRunLock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check run lock: %w", err)
	}
	if !acquired {
		return nil, ErrRunInProgress
	}
	defer func() {
		if err := s.locker.ReleaseRunLock(context.Background()); err != nil {
			log.Errorf("Failed to release run lock: %v", err)
		}
	}()

	run, err := s.createRun(ctx, kind, actor)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"runID":    run.ID,
		"trigger":  kind,
		"actor":    actor,
		"accounts": len(s.accounts),
	}).Info("Batch run started")

	entries := make([]*models.ActionLogEntry, 0, len(s.accounts))
	for i, account := range s.accounts {
		entry := s.checkin.ProcessAccount(ctx, account, s.endpoints)
		entry.RunID = run.ID

		if err := s.recordOutcome(ctx, run.ID, entry); err != nil {
			log.Errorf("Failed to record outcome for %s: %v", account.Email, err)
		}
		entries = append(entries, entry)

		if i < len(s.accounts)-1 {
			sleepCtx(ctx, s.delay)
		}
	}

	summary, err := s.finalizeRun(ctx, run.ID, entries)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"runID":       summary.RunID,
		"total":       summary.Total,
		"success":     summary.Success,
		"failed":      summary.Failed,
		"alreadyDone": summary.AlreadyDone,
		"duration":    summary.Duration,
	}).Info("Batch run completed")

	return summary, nil
}

// GetRecentRuns lists the most recent runs, newest first
func (s *runService) GetRecentRuns(ctx context.Context, limit int) ([]*models.Run, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	runs, err := uow.RunRepository().GetRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return runs, nil
}

func (s *runService) createRun(ctx context.Context, kind models.TriggerKind, actor string) (*models.Run, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	run := &models.Run{
		StartTime:     time.Now(),
		TriggerKind:   kind,
		TriggerBy:     actor,
		TotalAccounts: len(s.accounts),
		Status:        models.RunStatusRunning,
	}
	if err := uow.RunRepository().Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	uow.EventBus().Publish(events.RunStartedEvent{
		RunID:         run.ID,
		TriggerKind:   kind,
		TriggerBy:     actor,
		TotalAccounts: run.TotalAccounts,
	})

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return run, nil
}

// recordOutcome persists one account's result atomically: the log entry, the
// run counter bump and the rollup update commit or roll back together.
func (s *runService) recordOutcome(ctx context.Context, runID int64, entry *models.ActionLogEntry) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ActionLogRepository().Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to create action log entry: %w", err)
	}
	if err := uow.RunRepository().IncrementOutcome(ctx, runID, entry.Outcome); err != nil {
		return fmt.Errorf("failed to increment run counter: %w", err)
	}
	if err := uow.AccountRollupRepository().Apply(ctx, entry.AccountEmail, entry.Outcome, entry.Reward, entry.CheckinTime); err != nil {
		return fmt.Errorf("failed to apply account rollup: %w", err)
	}

	uow.EventBus().Publish(events.AccountOutcomeEvent{
		RunID:   runID,
		Email:   entry.AccountEmail,
		Outcome: entry.Outcome,
		Reward:  entry.Reward,
		Message: entry.Message,
	})

	return uow.Commit()
}

func (s *runService) finalizeRun(ctx context.Context, runID int64, entries []*models.ActionLogEntry) (*models.RunSummary, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	run, err := uow.RunRepository().Finalize(ctx, runID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize run: %w", err)
	}

	summary := &models.RunSummary{
		RunID:       run.ID,
		Total:       run.TotalAccounts,
		Success:     run.SuccessCount,
		Failed:      run.FailedCount,
		AlreadyDone: run.AlreadyDoneCount,
		Duration:    time.Duration(run.DurationSeconds * float64(time.Second)),
		Entries:     entries,
	}

	uow.EventBus().Publish(events.RunCompletedEvent{Summary: *summary})

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return summary, nil
}
