package service

import (
	"context"
	"time"

	"autocheckin/models"

	"github.com/stretchr/testify/mock"
)

// MockElement is a mock implementation of Element
type MockElement struct {
	mock.Mock
}

func (m *MockElement) Click() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockElement) Fill(text string) error {
	args := m.Called(text)
	return args.Error(0)
}

func (m *MockElement) Text() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockElement) Enabled() (bool, error) {
	args := m.Called()
	return args.Bool(0), args.Error(1)
}

// MockSubscription is a mock implementation of Subscription
type MockSubscription struct {
	mock.Mock
}

func (m *MockSubscription) Await(timeout time.Duration) ([]byte, error) {
	args := m.Called(timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockSubscription) Drain() {
	m.Called()
}

func (m *MockSubscription) Stop() {
	m.Called()
}

// MockSession is a mock implementation of Session
type MockSession struct {
	mock.Mock
}

func (m *MockSession) Navigate(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

func (m *MockSession) Locate(sel Selector, timeout time.Duration) (Element, error) {
	args := m.Called(sel, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Element), args.Error(1)
}

func (m *MockSession) ListenFor(pattern string) Subscription {
	args := m.Called(pattern)
	return args.Get(0).(Subscription)
}

func (m *MockSession) Refresh(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSession) CurrentURL() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockSession) PageText() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockSession) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockSessionFactory is a mock implementation of SessionFactory
type MockSessionFactory struct {
	mock.Mock
}

func (m *MockSessionFactory) NewSession(ctx context.Context) (Session, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Session), args.Error(1)
}

// MockChallengeSolver is a mock implementation of ChallengeSolver
type MockChallengeSolver struct {
	mock.Mock
}

func (m *MockChallengeSolver) Present(session Session) bool {
	args := m.Called(session)
	return args.Bool(0)
}

func (m *MockChallengeSolver) Solve(ctx context.Context, session Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

// MockLedgerSyncEngine is a mock implementation of LedgerSyncEngine
type MockLedgerSyncEngine struct {
	mock.Mock
}

func (m *MockLedgerSyncEngine) SyncAccount(ctx context.Context, session Session, account models.Account, endpoint string) (*SyncResult, error) {
	args := m.Called(ctx, session, account, endpoint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SyncResult), args.Error(1)
}

// MockCheckinService is a mock implementation of CheckinService
type MockCheckinService struct {
	mock.Mock
}

func (m *MockCheckinService) ProcessAccount(ctx context.Context, account models.Account, endpoints []string) *models.ActionLogEntry {
	args := m.Called(ctx, account, endpoints)
	return args.Get(0).(*models.ActionLogEntry)
}

// MockRunLocker is a mock implementation of RunLocker
type MockRunLocker struct {
	mock.Mock
}

func (m *MockRunLocker) TryAcquireRunLock(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockRunLocker) ReleaseRunLock(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
