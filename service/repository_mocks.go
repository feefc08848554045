package service

import (
	"context"
	"sync"
	"time"

	"autocheckin/events"
	"autocheckin/models"

	"github.com/stretchr/testify/mock"
)

// MockRunRepository is a mock implementation of RunRepository
type MockRunRepository struct {
	mock.Mock
}

func (m *MockRunRepository) Create(ctx context.Context, run *models.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunRepository) GetByID(ctx context.Context, id int64) (*models.Run, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Run), args.Error(1)
}

func (m *MockRunRepository) IncrementOutcome(ctx context.Context, runID int64, outcome models.Outcome) error {
	args := m.Called(ctx, runID, outcome)
	return args.Error(0)
}

func (m *MockRunRepository) Finalize(ctx context.Context, runID int64, notified bool) (*models.Run, error) {
	args := m.Called(ctx, runID, notified)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Run), args.Error(1)
}

func (m *MockRunRepository) MarkNotified(ctx context.Context, runID int64) error {
	args := m.Called(ctx, runID)
	return args.Error(0)
}

func (m *MockRunRepository) GetRecent(ctx context.Context, limit int) ([]*models.Run, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Run), args.Error(1)
}

func (m *MockRunRepository) GetWindowStats(ctx context.Context, since *time.Time) (*models.WindowStats, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WindowStats), args.Error(1)
}

// MockActionLogRepository is a mock implementation of ActionLogRepository
type MockActionLogRepository struct {
	mock.Mock
}

func (m *MockActionLogRepository) Create(ctx context.Context, entry *models.ActionLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockActionLogRepository) GetByRun(ctx context.Context, runID int64) ([]*models.ActionLogEntry, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ActionLogEntry), args.Error(1)
}

func (m *MockActionLogRepository) GetByAccountSince(ctx context.Context, email string, since time.Time) ([]*models.ActionLogEntry, error) {
	args := m.Called(ctx, email, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ActionLogEntry), args.Error(1)
}

// MockAccountRollupRepository is a mock implementation of AccountRollupRepository
type MockAccountRollupRepository struct {
	mock.Mock
}

func (m *MockAccountRollupRepository) Apply(ctx context.Context, email string, outcome models.Outcome, reward int64, at time.Time) error {
	args := m.Called(ctx, email, outcome, reward, at)
	return args.Error(0)
}

func (m *MockAccountRollupRepository) GetByEmail(ctx context.Context, email string) (*models.AccountRollup, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccountRollup), args.Error(1)
}

func (m *MockAccountRollupRepository) GetAll(ctx context.Context) ([]*models.AccountRollup, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AccountRollup), args.Error(1)
}

func (m *MockAccountRollupRepository) TotalReward(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockTransactionRecordRepository is a mock implementation of TransactionRecordRepository
type MockTransactionRecordRepository struct {
	mock.Mock
}

func (m *MockTransactionRecordRepository) Exists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRecordRepository) Insert(ctx context.Context, record *models.TransactionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockTransactionRecordRepository) GetByAccountSince(ctx context.Context, email string, since time.Time, source string) ([]*models.TransactionRecord, error) {
	args := m.Called(ctx, email, since, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TransactionRecord), args.Error(1)
}

func (m *MockTransactionRecordRepository) GetDailySummary(ctx context.Context, email string, days int) ([]*models.DailySummary, error) {
	args := m.Called(ctx, email, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DailySummary), args.Error(1)
}

func (m *MockTransactionRecordRepository) GetLedgerStats(ctx context.Context, email string) (*models.LedgerStats, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LedgerStats), args.Error(1)
}

func (m *MockTransactionRecordRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockAccountMappingRepository is a mock implementation of AccountMappingRepository
type MockAccountMappingRepository struct {
	mock.Mock
}

func (m *MockAccountMappingRepository) Upsert(ctx context.Context, mapping *models.AccountRemoteMapping) error {
	args := m.Called(ctx, mapping)
	return args.Error(0)
}

func (m *MockAccountMappingRepository) GetByEmail(ctx context.Context, email string) (*models.AccountRemoteMapping, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccountRemoteMapping), args.Error(1)
}

// RecordingPublisher collects published events for assertions
type RecordingPublisher struct {
	mu     sync.Mutex
	Events []events.Event
}

func (p *RecordingPublisher) Publish(e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, e)
}

// EventsOfType returns the recorded events matching the given type
func (p *RecordingPublisher) EventsOfType(t events.EventType) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var matched []events.Event
	for _, e := range p.Events {
		if e.Type() == t {
			matched = append(matched, e)
		}
	}
	return matched
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repositories are
// injected with SetRepositories; Begin/Commit/Rollback run through the mock.
type MockUnitOfWork struct {
	mock.Mock

	runRepo     RunRepository
	logRepo     ActionLogRepository
	rollupRepo  AccountRollupRepository
	recordRepo  TransactionRecordRepository
	mappingRepo AccountMappingRepository
	publisher   *RecordingPublisher
}

// SetRepositories wires the repositories returned by the accessor methods.
// Nil arguments are fine for repositories a test never touches.
func (m *MockUnitOfWork) SetRepositories(
	runRepo RunRepository,
	logRepo ActionLogRepository,
	rollupRepo AccountRollupRepository,
	recordRepo TransactionRecordRepository,
	mappingRepo AccountMappingRepository,
) {
	m.runRepo = runRepo
	m.logRepo = logRepo
	m.rollupRepo = rollupRepo
	m.recordRepo = recordRepo
	m.mappingRepo = mappingRepo
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) RunRepository() RunRepository {
	return m.runRepo
}

func (m *MockUnitOfWork) ActionLogRepository() ActionLogRepository {
	return m.logRepo
}

func (m *MockUnitOfWork) AccountRollupRepository() AccountRollupRepository {
	return m.rollupRepo
}

func (m *MockUnitOfWork) TransactionRecordRepository() TransactionRecordRepository {
	return m.recordRepo
}

func (m *MockUnitOfWork) AccountMappingRepository() AccountMappingRepository {
	return m.mappingRepo
}

// EventBus returns a recording publisher so tests can assert on events
func (m *MockUnitOfWork) EventBus() EventPublisher {
	if m.publisher == nil {
		m.publisher = &RecordingPublisher{}
	}
	return m.publisher
}

// PublishedEvents returns everything published through this unit of work
func (m *MockUnitOfWork) PublishedEvents() []events.Event {
	return m.EventBus().(*RecordingPublisher).Events
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
