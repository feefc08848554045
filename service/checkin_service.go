package service

import (
	"context"
	"fmt"
	"time"

	"autocheckin/models"
	log "github.com/sirupsen/logrus"
)

const (
	locateTimeout     = 10 * time.Second
	quickCheckTimeout = 5 * time.Second
	loginWait         = 20 * time.Second
	settleDelay       = 3 * time.Second
	solveAttempts     = 3
)

// checkinService implements the CheckinService interface: the per-account
// endpoint failover loop around the login/action/verification state machine.
type checkinService struct {
	sessions      SessionFactory
	solver        ChallengeSolver
	sync          LedgerSyncEngine
	defaultReward int64
}

// NewCheckinService creates a new checkin service
func NewCheckinService(sessions SessionFactory, solver ChallengeSolver, sync LedgerSyncEngine, defaultReward int64) CheckinService {
	return &checkinService{
		sessions:      sessions,
		solver:        solver,
		sync:          sync,
		defaultReward: defaultReward,
	}
}

// ProcessAccount attempts the full checkin flow against each endpoint in
// order, stopping on the first terminal success or already-done outcome.
// Each endpoint is attempted at most once; the returned entry reflects the
// last attempted endpoint.
func (s *checkinService) ProcessAccount(ctx context.Context, account models.Account, endpoints []string) *models.ActionLogEntry {
	var entry *models.ActionLogEntry

	for i, endpoint := range endpoints {
		log.Infof("Attempting checkin for %s at %s (%d/%d)", account.Email, endpoint, i+1, len(endpoints))

		entry = s.attemptEndpoint(ctx, account, endpoint)
		if entry.Outcome.Terminal() {
			return entry
		}

		if i < len(endpoints)-1 {
			log.Warnf("Endpoint %s yielded %s for %s: %s; trying next endpoint",
				endpoint, entry.Outcome, account.Email, entry.Message)
		}
	}

	return entry
}

// attemptEndpoint runs one full attempt in a fresh session. The session is
// released on every exit path, and any panic inside the attempt is mapped to
// a failed outcome at this boundary rather than propagating.
func (s *checkinService) attemptEndpoint(ctx context.Context, account models.Account, endpoint string) (entry *models.ActionLogEntry) {
	entry = &models.ActionLogEntry{
		AccountEmail: account.Email,
		CheckinTime:  time.Now(),
		Endpoint:     endpoint,
	}

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Checkin attempt for %s at %s panicked: %v", account.Email, endpoint, r)
			entry.Outcome = models.OutcomeFailed
			entry.Message = fmt.Sprintf("attempt panicked: %v", r)
		}
	}()

	session, err := s.sessions.NewSession(ctx)
	if err != nil {
		entry.Outcome = models.OutcomeFailed
		entry.Message = fmt.Sprintf("failed to create session: %v", err)
		return entry
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warnf("Failed to dispose session for %s: %v", account.Email, err)
		}
	}()

	outcome, reward, message := s.attemptCheckin(ctx, session, account, endpoint)
	entry.Outcome = outcome
	entry.Reward = reward
	entry.Message = message

	// Harvest the ledger through the still-authenticated session. Sync
	// failures never change the checkin outcome.
	if outcome == models.OutcomeSuccess || outcome == models.OutcomeAlreadyDone {
		if s.sync != nil {
			result, err := s.sync.SyncAccount(ctx, session, account, endpoint)
			if err != nil {
				log.Warnf("Ledger sync for %s ended early: %v", account.Email, err)
			} else {
				log.Infof("Ledger sync for %s: %d pages, %d new records",
					account.Email, result.PagesRead, result.NewRecords)
			}
		}
	}

	return entry
}

// attemptCheckin drives the state machine:
// login -> already-done check -> action -> challenge -> verification.
func (s *checkinService) attemptCheckin(ctx context.Context, session Session, account models.Account, endpoint string) (models.Outcome, int64, string) {
	if err := s.login(ctx, session, account, endpoint); err != nil {
		return models.OutcomeFailed, 0, err.Error()
	}

	actionURL := fmt.Sprintf("https://%s/#/token", endpoint)
	if err := session.Navigate(ctx, actionURL); err != nil {
		return models.OutcomeFailed, 0, fmt.Sprintf("failed to open action page: %v", err)
	}

	balanceBefore, beforeOK := s.readBalance(session)

	// The already-done check runs before any attempt to click the action
	// control. The current balance is still read for record-keeping.
	doneIndicator, err := locateAny(session, alreadyDoneLocators, quickCheckTimeout)
	if err != nil {
		return models.OutcomeFailed, 0, fmt.Sprintf("already-done check failed: %v", err)
	}
	if doneIndicator != nil {
		log.Infof("Account %s already checked in today at %s", account.Email, endpoint)
		message := "already checked in today"
		if beforeOK {
			message = fmt.Sprintf("already checked in today (balance %d)", balanceBefore)
		}
		return models.OutcomeAlreadyDone, 0, message
	}

	actionButton, err := locateFirst(session, "action-button", actionButtonLocators, locateTimeout)
	if err != nil {
		return models.OutcomeFailed, 0, err.Error()
	}

	if err := actionButton.Click(); err != nil {
		return models.OutcomeFailed, 0, fmt.Sprintf("failed to click action button: %v", err)
	}
	sleepCtx(ctx, settleDelay)

	// Clicking the action control can interpose an anti-bot challenge
	if err := s.resolveChallenge(ctx, session); err != nil {
		return models.OutcomeFailed, 0, err.Error()
	}

	outcome, snapshot := s.verify(ctx, session)
	switch outcome {
	case models.OutcomeSuccess:
		balanceAfter, afterOK := s.readBalance(session)
		reward := RewardAmount(balanceBefore, balanceAfter, beforeOK && afterOK, s.defaultReward)
		return models.OutcomeSuccess, reward, "checkin verified"
	case models.OutcomeFailed:
		return models.OutcomeFailed, 0, "action control still clickable after attempt"
	default:
		return models.OutcomeUnknown, 0, fmt.Sprintf(
			"verification indeterminate (done=%v clickable=%v)",
			snapshot.AlreadyDoneVisible, snapshot.ActionClickable)
	}
}

// login fills and submits the login form, then waits for the URL to leave
// the login screen. Success is a state change, not the absence of an error.
func (s *checkinService) login(ctx context.Context, session Session, account models.Account, endpoint string) error {
	loginURL := fmt.Sprintf("https://%s/#/login", endpoint)
	if err := session.Navigate(ctx, loginURL); err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}

	// A challenge can already gate the login page itself
	if err := s.resolveChallenge(ctx, session); err != nil {
		return err
	}

	emailField, err := locateFirst(session, "login-email-field", loginEmailLocators, locateTimeout)
	if err != nil {
		return err
	}
	passwordField, err := locateFirst(session, "login-password-field", loginPasswordLocators, locateTimeout)
	if err != nil {
		return err
	}

	if err := emailField.Fill(account.Email); err != nil {
		return fmt.Errorf("failed to enter email: %w", err)
	}
	if err := passwordField.Fill(account.Password); err != nil {
		return fmt.Errorf("failed to enter password: %w", err)
	}

	submit, err := locateFirst(session, "login-submit", loginSubmitLocators, locateTimeout)
	if err != nil {
		return err
	}
	if err := submit.Click(); err != nil {
		return fmt.Errorf("failed to click login button: %w", err)
	}

	if !s.waitForLogin(ctx, session, loginWait) {
		return &LoginRejectedError{Endpoint: endpoint}
	}

	log.Infof("Account %s logged in at %s", account.Email, endpoint)
	return nil
}

// waitForLogin polls the current URL until it leaves the login screen or
// the deadline passes
func (s *checkinService) waitForLogin(ctx context.Context, session Session, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		url, err := session.CurrentURL()
		if err == nil && LoginSucceeded(url) {
			return true
		}
		if !sleepCtx(ctx, time.Second) {
			return false
		}
	}
	return false
}

// resolveChallenge attempts to pass an interposed anti-bot screen with a
// bounded number of solver invocations
func (s *checkinService) resolveChallenge(ctx context.Context, session Session) error {
	if s.solver == nil || !s.solver.Present(session) {
		return nil
	}

	for attempt := 1; attempt <= solveAttempts; attempt++ {
		log.Infof("Challenge detected, solve attempt %d/%d", attempt, solveAttempts)
		if err := s.solver.Solve(ctx, session); err != nil {
			log.Warnf("Challenge solve attempt %d failed: %v", attempt, err)
		}
		if !s.solver.Present(session) {
			return nil
		}
		sleepCtx(ctx, settleDelay)
	}

	return &ChallengeUnresolvedError{Attempts: solveAttempts}
}

// verify refreshes the page and re-checks the indicators to confirm the
// action took effect
func (s *checkinService) verify(ctx context.Context, session Session) (models.Outcome, VerificationSnapshot) {
	var snapshot VerificationSnapshot

	if err := session.Refresh(ctx); err != nil {
		log.Warnf("Verification refresh failed: %v", err)
		return models.OutcomeUnknown, snapshot
	}
	sleepCtx(ctx, settleDelay)

	if done, err := locateAny(session, alreadyDoneLocators, quickCheckTimeout); err == nil && done != nil {
		snapshot.AlreadyDoneVisible = true
	}
	if !snapshot.AlreadyDoneVisible {
		if action, err := locateAny(session, actionButtonLocators, quickCheckTimeout); err == nil && action != nil {
			if enabled, err := action.Enabled(); err == nil && enabled {
				snapshot.ActionClickable = true
			}
		}
	}

	return ClassifyVerification(snapshot), snapshot
}

// readBalance extracts the account balance from the page, best-effort
func (s *checkinService) readBalance(session Session) (int64, bool) {
	el, err := locateAny(session, balanceLocators, quickCheckTimeout)
	if err != nil || el == nil {
		return 0, false
	}
	text, err := el.Text()
	if err != nil {
		return 0, false
	}
	return ExtractBalance(text)
}

// sleepCtx sleeps for d unless the context is cancelled first. Returns
// false on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
