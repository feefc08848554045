package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"autocheckin/events"
	"autocheckin/models"
)

func testEndpoints() []string {
	return []string{"d1.test", "d2.test"}
}

func entryFor(email string, outcome models.Outcome, reward int64) *models.ActionLogEntry {
	return &models.ActionLogEntry{
		AccountEmail: email,
		CheckinTime:  time.Now(),
		Outcome:      outcome,
		Reward:       reward,
		Endpoint:     "d1.test",
	}
}

func TestTriggerRun_LockContention(t *testing.T) {
	ctx := context.Background()

	locker := new(MockRunLocker)
	factory := new(MockUnitOfWorkFactory)
	checkin := new(MockCheckinService)

	locker.On("TryAcquireRunLock", ctx).Return(false, nil)

	svc := NewRunService(factory, checkin, locker, testEndpoints(), nil, 0)
	summary, err := svc.TriggerRun(ctx, models.TriggerManual, "tester")

	assert.Nil(t, summary)
	require.ErrorIs(t, err, ErrRunInProgress)

	factory.AssertNotCalled(t, "Create")
	locker.AssertNotCalled(t, "ReleaseRunLock", mock.Anything)
}

func TestTriggerRun_CountersMatchOutcomes(t *testing.T) {
	ctx := context.Background()

	accounts := []models.Account{
		{Email: "a@example.test", Password: "x", Enabled: true},
		{Email: "b@example.test", Password: "x", Enabled: true},
		{Email: "c@example.test", Password: "x", Enabled: true},
	}

	locker := new(MockRunLocker)
	factory := new(MockUnitOfWorkFactory)
	checkin := new(MockCheckinService)
	uow := new(MockUnitOfWork)
	runRepo := new(MockRunRepository)
	logRepo := new(MockActionLogRepository)
	rollupRepo := new(MockAccountRollupRepository)
	uow.SetRepositories(runRepo, logRepo, rollupRepo, nil, nil)

	locker.On("TryAcquireRunLock", ctx).Return(true, nil)
	locker.On("ReleaseRunLock", mock.Anything).Return(nil)

	factory.On("Create").Return(uow)
	uow.On("Begin", ctx).Return(nil)
	uow.On("Commit").Return(nil)
	uow.On("Rollback").Return(nil)

	runRepo.On("Create", ctx, mock.AnythingOfType("*models.Run")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Run).ID = 7
		}).Return(nil)

	checkin.On("ProcessAccount", ctx, accounts[0], testEndpoints()).
		Return(entryFor("a@example.test", models.OutcomeSuccess, 5))
	checkin.On("ProcessAccount", ctx, accounts[1], testEndpoints()).
		Return(entryFor("b@example.test", models.OutcomeFailed, 0))
	checkin.On("ProcessAccount", ctx, accounts[2], testEndpoints()).
		Return(entryFor("c@example.test", models.OutcomeAlreadyDone, 0))

	logRepo.On("Create", ctx, mock.MatchedBy(func(e *models.ActionLogEntry) bool {
		return e.RunID == 7
	})).Return(nil).Times(3)

	runRepo.On("IncrementOutcome", ctx, int64(7), models.OutcomeSuccess).Return(nil).Once()
	runRepo.On("IncrementOutcome", ctx, int64(7), models.OutcomeFailed).Return(nil).Once()
	runRepo.On("IncrementOutcome", ctx, int64(7), models.OutcomeAlreadyDone).Return(nil).Once()

	rollupRepo.On("Apply", ctx, "a@example.test", models.OutcomeSuccess, int64(5), mock.AnythingOfType("time.Time")).Return(nil)
	rollupRepo.On("Apply", ctx, "b@example.test", models.OutcomeFailed, int64(0), mock.AnythingOfType("time.Time")).Return(nil)
	rollupRepo.On("Apply", ctx, "c@example.test", models.OutcomeAlreadyDone, int64(0), mock.AnythingOfType("time.Time")).Return(nil)

	finalized := &models.Run{
		ID:               7,
		TriggerKind:      models.TriggerManual,
		TotalAccounts:    3,
		SuccessCount:     1,
		FailedCount:      1,
		AlreadyDoneCount: 1,
		DurationSeconds:  2.5,
		Status:           models.RunStatusCompleted,
	}
	runRepo.On("Finalize", ctx, int64(7), false).Return(finalized, nil)

	svc := NewRunService(factory, checkin, locker, testEndpoints(), accounts, 0)
	summary, err := svc.TriggerRun(ctx, models.TriggerManual, "tester")

	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, int64(7), summary.RunID)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, summary.Total, summary.Success+summary.Failed+summary.AlreadyDone,
		"counters partition the account set")
	assert.Equal(t, 2500*time.Millisecond, summary.Duration)
	require.Len(t, summary.Entries, 3)

	// One event per lifecycle stage plus one per account
	published := uow.PublishedEvents()
	typeCounts := map[events.EventType]int{}
	for _, e := range published {
		typeCounts[e.Type()]++
	}
	assert.Equal(t, 1, typeCounts[events.EventTypeRunStarted])
	assert.Equal(t, 3, typeCounts[events.EventTypeAccountOutcome])
	assert.Equal(t, 1, typeCounts[events.EventTypeRunCompleted])

	locker.AssertExpectations(t)
	runRepo.AssertExpectations(t)
	logRepo.AssertExpectations(t)
	rollupRepo.AssertExpectations(t)
	checkin.AssertExpectations(t)
}

func TestTriggerRun_RecordFailureDoesNotAbortBatch(t *testing.T) {
	ctx := context.Background()

	accounts := []models.Account{
		{Email: "a@example.test", Password: "x", Enabled: true},
		{Email: "b@example.test", Password: "x", Enabled: true},
	}

	locker := new(MockRunLocker)
	factory := new(MockUnitOfWorkFactory)
	checkin := new(MockCheckinService)
	uow := new(MockUnitOfWork)
	runRepo := new(MockRunRepository)
	logRepo := new(MockActionLogRepository)
	rollupRepo := new(MockAccountRollupRepository)
	uow.SetRepositories(runRepo, logRepo, rollupRepo, nil, nil)

	locker.On("TryAcquireRunLock", ctx).Return(true, nil)
	locker.On("ReleaseRunLock", mock.Anything).Return(nil)

	factory.On("Create").Return(uow)
	uow.On("Begin", ctx).Return(nil)
	uow.On("Commit").Return(nil)
	uow.On("Rollback").Return(nil)

	runRepo.On("Create", ctx, mock.AnythingOfType("*models.Run")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Run).ID = 9
		}).Return(nil)

	checkin.On("ProcessAccount", ctx, mock.AnythingOfType("models.Account"), testEndpoints()).
		Return(entryFor("whoever", models.OutcomeSuccess, 5))

	// The first account's persistence fails outright
	logRepo.On("Create", ctx, mock.Anything).Return(assert.AnError).Once()
	logRepo.On("Create", ctx, mock.Anything).Return(nil).Once()
	runRepo.On("IncrementOutcome", ctx, int64(9), models.OutcomeSuccess).Return(nil).Once()
	rollupRepo.On("Apply", ctx, mock.Anything, models.OutcomeSuccess, int64(5), mock.AnythingOfType("time.Time")).Return(nil).Once()

	runRepo.On("Finalize", ctx, int64(9), false).Return(&models.Run{
		ID:            9,
		TotalAccounts: 2,
		SuccessCount:  1,
		Status:        models.RunStatusCompleted,
	}, nil)

	svc := NewRunService(factory, checkin, locker, testEndpoints(), accounts, 0)
	summary, err := svc.TriggerRun(ctx, models.TriggerManual, "tester")

	require.NoError(t, err)
	require.Len(t, summary.Entries, 2, "both accounts were processed despite the store failure")

	checkin.AssertNumberOfCalls(t, "ProcessAccount", 2)
	locker.AssertExpectations(t)
}

func TestGetRecentRuns(t *testing.T) {
	ctx := context.Background()

	factory := new(MockUnitOfWorkFactory)
	uow := new(MockUnitOfWork)
	runRepo := new(MockRunRepository)
	uow.SetRepositories(runRepo, nil, nil, nil, nil)

	factory.On("Create").Return(uow)
	uow.On("Begin", ctx).Return(nil)
	uow.On("Commit").Return(nil)
	uow.On("Rollback").Return(nil)

	expected := []*models.Run{{ID: 3}, {ID: 2}}
	runRepo.On("GetRecent", ctx, 10).Return(expected, nil)

	svc := NewRunService(factory, nil, nil, nil, nil, 0)
	runs, err := svc.GetRecentRuns(ctx, 10)

	require.NoError(t, err)
	assert.Equal(t, expected, runs)
}
