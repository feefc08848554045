package service

import (
	"context"
	"time"

	"autocheckin/events"
	"autocheckin/models"
)

// RunRepository defines the interface for run ledger data access
type RunRepository interface {
	// Create inserts a new run in running state and sets run.ID
	Create(ctx context.Context, run *models.Run) error

	// GetByID retrieves a run by its ID
	GetByID(ctx context.Context, id int64) (*models.Run, error)

	// IncrementOutcome bumps the run counter matching the outcome
	IncrementOutcome(ctx context.Context, runID int64, outcome models.Outcome) error

	// Finalize stamps end time, duration and completed status exactly once.
	// Returns the finalized run.
	Finalize(ctx context.Context, runID int64, notified bool) (*models.Run, error)

	// MarkNotified records that the run digest was delivered
	MarkNotified(ctx context.Context, runID int64) error

	// GetRecent returns the most recent runs, newest first
	GetRecent(ctx context.Context, limit int) ([]*models.Run, error)

	// GetWindowStats aggregates completed runs started at or after since.
	// A nil since means all time.
	GetWindowStats(ctx context.Context, since *time.Time) (*models.WindowStats, error)
}

// ActionLogRepository defines the interface for per-account outcome records
type ActionLogRepository interface {
	// Create appends one entry; exactly one entry exists per account per run
	Create(ctx context.Context, entry *models.ActionLogEntry) error

	// GetByRun returns all entries for a run in insertion order
	GetByRun(ctx context.Context, runID int64) ([]*models.ActionLogEntry, error)

	// GetByAccountSince returns an account's entries at or after since,
	// newest first
	GetByAccountSince(ctx context.Context, email string, since time.Time) ([]*models.ActionLogEntry, error)
}

// AccountRollupRepository defines the interface for cumulative per-account totals
type AccountRollupRepository interface {
	// Apply upserts the rollup for one observed outcome
	Apply(ctx context.Context, email string, outcome models.Outcome, reward int64, at time.Time) error

	// GetByEmail returns one account's rollup, nil when absent
	GetByEmail(ctx context.Context, email string) (*models.AccountRollup, error)

	// GetAll returns all rollups ordered by total reward descending
	GetAll(ctx context.Context) ([]*models.AccountRollup, error)

	// TotalReward sums cumulative rewards across all accounts
	TotalReward(ctx context.Context) (int64, error)
}

// TransactionRecordRepository defines the interface for the synced token ledger
type TransactionRecordRepository interface {
	// Exists reports whether a record with the remote id is already stored
	Exists(ctx context.Context, id int64) (bool, error)

	// Insert stores a new record; the insert is all-or-nothing per row
	Insert(ctx context.Context, record *models.TransactionRecord) error

	// GetByAccountSince returns an account's records at or after since,
	// optionally filtered by source, newest first
	GetByAccountSince(ctx context.Context, email string, since time.Time, source string) ([]*models.TransactionRecord, error)

	// GetDailySummary aggregates earned/spent/net per date over the last days.
	// An empty email aggregates all accounts.
	GetDailySummary(ctx context.Context, email string, days int) ([]*models.DailySummary, error)

	// GetLedgerStats summarizes one account's stored records
	GetLedgerStats(ctx context.Context, email string) (*models.LedgerStats, error)

	// DeleteBefore removes records whose remote timestamp predates the cutoff
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AccountMappingRepository links remote numeric account ids to local emails
type AccountMappingRepository interface {
	// Upsert refreshes the mapping for a remote uid
	Upsert(ctx context.Context, mapping *models.AccountRemoteMapping) error

	// GetByEmail returns the mapping for an email, nil when absent
	GetByEmail(ctx context.Context, email string) (*models.AccountRemoteMapping, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork provides transactional access to all repositories
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	RunRepository() RunRepository
	ActionLogRepository() ActionLogRepository
	AccountRollupRepository() AccountRollupRepository
	TransactionRecordRepository() TransactionRecordRepository
	AccountMappingRepository() AccountMappingRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates units of work
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// SelectorKind distinguishes element matching rules
type SelectorKind string

const (
	SelectorCSS   SelectorKind = "css"
	SelectorXPath SelectorKind = "xpath"
	SelectorText  SelectorKind = "text"
)

// Selector is one element matching rule
type Selector struct {
	By   SelectorKind
	Expr string
}

// Element is a located page element
type Element interface {
	Click() error
	Fill(text string) error
	Text() (string, error)
	Enabled() (bool, error)
}

// Subscription is a live network interception for one URL pattern
type Subscription interface {
	// Await blocks until a matching response body arrives or the timeout
	// elapses; a timeout returns a NetworkTimeoutError
	Await(timeout time.Duration) ([]byte, error)

	// Drain discards any responses already buffered, so the next Await
	// only sees responses captured after this call
	Drain()

	// Stop ends the interception
	Stop()
}

// Session abstracts one controllable browser session. Every operation is a
// bounded wait; implementations must treat timeouts as classified errors,
// not crashes.
type Session interface {
	// Navigate loads a URL and waits for the page to settle
	Navigate(ctx context.Context, url string) error

	// Locate finds the first element matching the selector within the
	// timeout. Returns (nil, nil) when nothing matches.
	Locate(sel Selector, timeout time.Duration) (Element, error)

	// ListenFor begins intercepting responses whose URL contains pattern.
	// Must be called before triggering the load that produces them.
	ListenFor(pattern string) Subscription

	// Refresh reloads the current page
	Refresh(ctx context.Context) error

	// CurrentURL returns the page's current URL
	CurrentURL() (string, error)

	// PageText returns the visible text of the page body
	PageText() (string, error)

	// Close disposes the session and its ephemeral profile. Safe to call
	// more than once.
	Close() error
}

// SessionFactory produces fresh browser sessions. Each account attempt uses
// its own session to isolate anti-bot fingerprints.
type SessionFactory interface {
	NewSession(ctx context.Context) (Session, error)
}

// ChallengeSolver resolves an anti-bot verification screen within a session
type ChallengeSolver interface {
	// Present reports whether a challenge is currently shown
	Present(session Session) bool

	// Solve attempts to pass the challenge once; callers bound the retries
	Solve(ctx context.Context, session Session) error
}

// CheckinService drives the login/action/verification flow for one account
// across its endpoint list
type CheckinService interface {
	// ProcessAccount runs the full failover loop and returns the account's
	// final outcome entry. It never returns an error: every failure mode is
	// classified into the entry.
	ProcessAccount(ctx context.Context, account models.Account, endpoints []string) *models.ActionLogEntry
}

// LedgerSyncEngine harvests an account's remote transaction history through
// an already-authenticated session
type LedgerSyncEngine interface {
	// SyncAccount pulls pages until the UI reports no further page, inserting
	// previously-unseen rows. Returns counts of pages read and new rows.
	SyncAccount(ctx context.Context, session Session, account models.Account, endpoint string) (*SyncResult, error)
}

// SyncResult reports one account's ledger harvest
type SyncResult struct {
	PagesRead  int
	NewRecords int
	RemoteUID  int64
}

// RunService orchestrates batch runs and exposes the run ledger
type RunService interface {
	// TriggerRun executes a full batch synchronously and returns its summary
	TriggerRun(ctx context.Context, kind models.TriggerKind, actor string) (*models.RunSummary, error)

	// GetRecentRuns lists recent runs for the dashboard collaborator
	GetRecentRuns(ctx context.Context, limit int) ([]*models.Run, error)
}

// StatsService aggregates the run ledger and token ledger
type StatsService interface {
	// GetStatistics returns the standard all-time/7d/30d/today windows
	GetStatistics(ctx context.Context) (*models.CheckinStats, error)

	// GetAccountHistory returns an account's checkin entries over the last days
	GetAccountHistory(ctx context.Context, email string, days int) ([]*models.ActionLogEntry, error)

	// GetAccountLedger returns an account's transaction records over the last
	// days, optionally filtered by source
	GetAccountLedger(ctx context.Context, email string, days int, source string) ([]*models.TransactionRecord, error)

	// GetDailySummary returns per-date earned/spent/net rollups
	GetDailySummary(ctx context.Context, email string, days int) ([]*models.DailySummary, error)

	// GetAccountRollups lists cumulative per-account totals
	GetAccountRollups(ctx context.Context) ([]*models.AccountRollup, error)

	// TrimLedger deletes transaction records older than the cutoff
	TrimLedger(ctx context.Context, cutoff time.Time) (int64, error)
}
