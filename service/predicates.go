package service

import (
	"regexp"
	"strconv"
	"strings"

	"autocheckin/models"
)

var balancePattern = regexp.MustCompile(`\d+`)

// LoginSucceeded reports whether the browser left the login screen. Login
// success is determined by URL state, not by absence of an error.
func LoginSucceeded(currentURL string) bool {
	if currentURL == "" {
		return false
	}
	return !strings.Contains(currentURL, "/login")
}

// ExtractBalance pulls the first integer out of a balance element's text
func ExtractBalance(text string) (int64, bool) {
	match := balancePattern.FindString(text)
	if match == "" {
		return 0, false
	}
	value, err := strconv.ParseInt(match, 10, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// VerificationSnapshot captures the page state observed after the
// post-action refresh, so outcome classification is a pure function.
type VerificationSnapshot struct {
	AlreadyDoneVisible bool
	ActionClickable    bool
}

// ClassifyVerification maps the refreshed page state to a terminal outcome:
// the done indicator proves success, a still-clickable action control proves
// the click did not take, anything else is indeterminate.
func ClassifyVerification(snap VerificationSnapshot) models.Outcome {
	switch {
	case snap.AlreadyDoneVisible:
		return models.OutcomeSuccess
	case snap.ActionClickable:
		return models.OutcomeFailed
	default:
		return models.OutcomeUnknown
	}
}

// RewardAmount decides the reward recorded for a verified checkin: the
// observed balance delta when both reads succeeded, otherwise the configured
// default. The remote UI does not report the grant directly.
func RewardAmount(balanceBefore, balanceAfter int64, readsOK bool, fallback int64) int64 {
	if readsOK && balanceAfter > balanceBefore {
		return balanceAfter - balanceBefore
	}
	return fallback
}
