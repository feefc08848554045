package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"

	"autocheckin/events"
	"autocheckin/models"
)

const (
	ledgerAPIPattern = "/api/user/token/list"
	pageTimeout      = 10 * time.Second
	pageRetryLimit   = 3
	pageDelay        = 2 * time.Second
)

// ledgerRow is one row of the remote ledger-listing envelope
type ledgerRow struct {
	ID         int64  `json:"id"`
	UID        int64  `json:"uid"`
	Tokens     int64  `json:"tokens"`
	Source     string `json:"source"`
	Remark     string `json:"remark"`
	CreateTime string `json:"create_time"`
	APIID      int64  `json:"api_id"`
}

// ledgerEnvelope is the remote service's JSON response wrapper; code 0
// denotes success
type ledgerEnvelope struct {
	Code int `json:"code"`
	Data struct {
		Rows []ledgerRow `json:"rows"`
	} `json:"data"`
}

// parseLedgerEnvelope decodes a captured response body. A non-zero code is
// a typed RemoteAPIError so callers can treat it as retryable.
func parseLedgerEnvelope(body []byte) ([]ledgerRow, error) {
	var envelope ledgerEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode ledger envelope: %w", err)
	}
	if envelope.Code != 0 {
		return nil, &RemoteAPIError{Code: envelope.Code}
	}
	return envelope.Data.Rows, nil
}

// remoteTimeFormats are the timestamp layouts the remote service has used
var remoteTimeFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseRemoteTime(value string) time.Time {
	for _, layout := range remoteTimeFormats {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	log.Warnf("Unparseable remote timestamp %q, substituting ingestion time", value)
	return time.Now()
}

// syncService implements the LedgerSyncEngine interface: paginated harvest
// of an account's transaction history from intercepted API traffic, with
// existence-checked idempotent insertion.
type syncService struct {
	uowFactory UnitOfWorkFactory
}

// NewSyncService creates a new ledger sync engine
func NewSyncService(uowFactory UnitOfWorkFactory) LedgerSyncEngine {
	return &syncService{uowFactory: uowFactory}
}

// SyncAccount pulls ledger pages through the given authenticated session
// until the pagination UI reports no further page. Only previously-unseen
// rows are inserted; termination is driven by the absence of a next-page
// control, never by duplicate rows.
func (s *syncService) SyncAccount(ctx context.Context, session Session, account models.Account, endpoint string) (*SyncResult, error) {
	result := &SyncResult{}

	// Listening must begin before anything triggers the first page load,
	// or the first response is lost.
	sub := session.ListenFor(ledgerAPIPattern)
	defer sub.Stop()

	historyURL := fmt.Sprintf("https://%s/#/token?tab=history", endpoint)
	if err := session.Navigate(ctx, historyURL); err != nil {
		return result, fmt.Errorf("failed to open history view: %w", err)
	}

	// Widening the page size is best-effort; when it works, the reload it
	// triggers doubles as the first page fetch.
	firstPage, widened := s.widenPageSize(ctx, session, sub)

	page := 1
	for {
		var rows []ledgerRow
		var err error

		if page == 1 && widened {
			rows = firstPage
		} else if page == 1 {
			rows, err = s.awaitPage(ctx, session, sub, page, nil)
		} else {
			nextButton, nerr := locateAny(session, nextPageLocators, quickCheckTimeout)
			if nerr != nil {
				return result, fmt.Errorf("failed to check pagination state: %w", nerr)
			}
			if nextButton == nil {
				// No further page: the normal termination condition
				break
			}
			rows, err = s.awaitPage(ctx, session, sub, page, nextButton)
		}
		if err != nil {
			return result, err
		}
		if len(rows) == 0 {
			break
		}

		inserted := s.ingestRows(ctx, rows, account.Email)
		result.PagesRead++
		result.NewRecords += inserted
		result.RemoteUID = rows[0].UID

		log.Infof("Ledger page %d for %s: %d rows, %d new", page, account.Email, len(rows), inserted)

		// Stop when the pagination UI has no enabled next-page control
		nextButton, err := locateAny(session, nextPageLocators, quickCheckTimeout)
		if err != nil || nextButton == nil {
			break
		}

		page++
		sleepCtx(ctx, pageDelay)
	}

	if result.RemoteUID != 0 {
		if err := s.refreshMapping(ctx, account.Email, result); err != nil {
			log.Warnf("Failed to refresh account mapping for %s: %v", account.Email, err)
		}
	}

	return result, nil
}

// awaitPage fetches one page's rows: clicks the next control when given one,
// then waits for the matching intercepted response. Transient failures are
// retried a bounded number of times with exponential backoff.
func (s *syncService) awaitPage(ctx context.Context, session Session, sub Subscription, page int, nextButton Element) ([]ledgerRow, error) {
	operation := func() ([]ledgerRow, error) {
		if nextButton != nil {
			// Re-resolve the control on retries: the prior click may or may
			// not have registered
			button, err := locateAny(session, nextPageLocators, quickCheckTimeout)
			if err != nil {
				return nil, backoff.Permanent(err)
			}
			if button == nil {
				return nil, nil
			}
			if err := button.Click(); err != nil {
				return nil, backoff.Permanent(fmt.Errorf("failed to click next page: %w", err))
			}
		}

		body, err := sub.Await(pageTimeout)
		if err != nil {
			if retryableSyncError(err) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}

		rows, err := parseLedgerEnvelope(body)
		if err != nil {
			if retryableSyncError(err) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return rows, nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), pageRetryLimit), ctx)

	rows, err := backoff.RetryNotifyWithData(operation, policy, func(err error, wait time.Duration) {
		log.Warnf("Ledger page %d fetch failed (%v), retrying in %s", page, err, wait)
	})
	if err != nil {
		return nil, fmt.Errorf("ledger page %d unavailable after %d attempts: %w", page, pageRetryLimit+1, err)
	}
	return rows, nil
}

// widenPageSize tries to switch the history table to its widest page size.
// Failure is non-fatal: the sync falls back to the default page size. When
// the switch succeeds, the captured reload response is returned as page 1.
func (s *syncService) widenPageSize(ctx context.Context, session Session, sub Subscription) ([]ledgerRow, bool) {
	dropdown, err := locateAny(session, pageSizeDropdownLocators, quickCheckTimeout)
	if err != nil || dropdown == nil {
		log.Debug("Page size selector not found, using default page size")
		return nil, false
	}
	if err := dropdown.Click(); err != nil {
		log.Debugf("Failed to open page size selector: %v", err)
		return nil, false
	}

	option, err := locateAny(session, pageSizeWideOptionLocators, quickCheckTimeout)
	if err != nil || option == nil {
		log.Debug("Wide page size option not found, using default page size")
		return nil, false
	}
	// The natural first load may already be buffered; drop it so the next
	// captured response is the reload this click triggers
	sub.Drain()
	if err := option.Click(); err != nil {
		log.Debugf("Failed to select wide page size: %v", err)
		return nil, false
	}
	sleepCtx(ctx, pageDelay)

	body, err := sub.Await(pageTimeout)
	if err != nil {
		log.Debugf("No response after page size change: %v", err)
		return nil, false
	}
	rows, err := parseLedgerEnvelope(body)
	if err != nil {
		log.Debugf("Page size change response unusable: %v", err)
		return nil, false
	}

	log.Infof("Widened ledger page size, first page carries %d rows", len(rows))
	return rows, true
}

// ingestRows inserts previously-unseen rows one at a time. Each insert is
// all-or-nothing in its own transaction; a failed row is logged and skipped
// so it cannot corrupt the dedup check for the rows after it.
func (s *syncService) ingestRows(ctx context.Context, rows []ledgerRow, email string) int {
	inserted := 0
	for _, row := range rows {
		ok, err := s.ingestRow(ctx, row, email)
		if err != nil {
			log.Errorf("Skipping ledger row %d for %s: %v", row.ID, email, err)
			continue
		}
		if ok {
			inserted++
		}
	}
	return inserted
}

// ingestRow inserts a single row when its remote id is unseen. The
// existence-check-then-insert is safe because the engine is the single,
// sequential writer of this table.
func (s *syncService) ingestRow(ctx context.Context, row ledgerRow, email string) (bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, &PersistenceError{RecordID: row.ID, Cause: err}
	}
	defer uow.Rollback()

	exists, err := uow.TransactionRecordRepository().Exists(ctx, row.ID)
	if err != nil {
		return false, &PersistenceError{RecordID: row.ID, Cause: err}
	}
	if exists {
		return false, nil
	}

	record := &models.TransactionRecord{
		ID:           row.ID,
		RemoteUID:    row.UID,
		AccountEmail: email,
		Tokens:       row.Tokens,
		Source:       row.Source,
		Remark:       row.Remark,
		RemoteTime:   parseRemoteTime(row.CreateTime),
		APIID:        row.APIID,
	}
	record.ParseOriginIP()

	if err := uow.TransactionRecordRepository().Insert(ctx, record); err != nil {
		return false, &PersistenceError{RecordID: row.ID, Cause: err}
	}
	if err := uow.Commit(); err != nil {
		return false, &PersistenceError{RecordID: row.ID, Cause: err}
	}
	return true, nil
}

// refreshMapping updates the remote-uid/email link and announces the sync
func (s *syncService) refreshMapping(ctx context.Context, email string, result *SyncResult) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	mapping := &models.AccountRemoteMapping{
		RemoteUID:  result.RemoteUID,
		Email:      email,
		LastUpdate: time.Now(),
	}
	if err := uow.AccountMappingRepository().Upsert(ctx, mapping); err != nil {
		return err
	}

	uow.EventBus().Publish(events.RecordsIngestedEvent{
		Email:      email,
		NewRecords: result.NewRecords,
		PagesRead:  result.PagesRead,
	})

	return uow.Commit()
}
