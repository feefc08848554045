package service

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"autocheckin/models"
)

// statsService implements the StatsService interface
type statsService struct {
	uowFactory UnitOfWorkFactory
}

// NewStatsService creates a new statistics service
func NewStatsService(uowFactory UnitOfWorkFactory) StatsService {
	return &statsService{uowFactory: uowFactory}
}

// GetStatistics aggregates the run ledger into the standard reporting windows
func (s *statsService) GetStatistics(ctx context.Context) (*models.CheckinStats, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	sevenDays := now.AddDate(0, 0, -7)
	thirtyDays := now.AddDate(0, 0, -30)

	stats := &models.CheckinStats{}

	windows := []struct {
		since *time.Time
		dest  *models.WindowStats
	}{
		{nil, &stats.AllTime},
		{&sevenDays, &stats.Recent7Days},
		{&thirtyDays, &stats.Recent30Days},
		{&today, &stats.Today},
	}
	for _, w := range windows {
		ws, err := uow.RunRepository().GetWindowStats(ctx, w.since)
		if err != nil {
			return nil, err
		}
		*w.dest = *ws
	}

	reward, err := uow.AccountRollupRepository().TotalReward(ctx)
	if err != nil {
		return nil, err
	}
	stats.TotalReward = reward

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return stats, nil
}

// GetAccountHistory returns an account's checkin entries over the last days
func (s *statsService) GetAccountHistory(ctx context.Context, email string, days int) ([]*models.ActionLogEntry, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	since := time.Now().AddDate(0, 0, -days)
	entries, err := uow.ActionLogRepository().GetByAccountSince(ctx, email, since)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetAccountLedger returns an account's synced transaction records over the
// last days, optionally filtered by source
func (s *statsService) GetAccountLedger(ctx context.Context, email string, days int, source string) ([]*models.TransactionRecord, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	since := time.Now().AddDate(0, 0, -days)
	records, err := uow.TransactionRecordRepository().GetByAccountSince(ctx, email, since, source)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return records, nil
}

// GetDailySummary returns per-date earned/spent/net rollups
func (s *statsService) GetDailySummary(ctx context.Context, email string, days int) ([]*models.DailySummary, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	summaries, err := uow.TransactionRecordRepository().GetDailySummary(ctx, email, days)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// GetAccountRollups lists cumulative per-account totals
func (s *statsService) GetAccountRollups(ctx context.Context) ([]*models.AccountRollup, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	rollups, err := uow.AccountRollupRepository().GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return rollups, nil
}

// TrimLedger deletes transaction records whose remote timestamp predates the
// cutoff and reports how many were removed
func (s *statsService) TrimLedger(ctx context.Context, cutoff time.Time) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, err
	}
	defer uow.Rollback()

	removed, err := uow.TransactionRecordRepository().DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if err := uow.Commit(); err != nil {
		return 0, err
	}

	if removed > 0 {
		log.Infof("Trimmed %d ledger records older than %s", removed, cutoff.Format("2006-01-02"))
	}
	return removed, nil
}
