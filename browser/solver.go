package browser

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"autocheckin/service"
)

// challengeMarkers are page text fragments shown by the interstitial
// verification screen in its known languages
var challengeMarkers = []string{
	"Verify you are human",
	"Just a moment",
	"确认您是真人",
	"请稍候",
}

// challengeCheckboxLocators target the verification widget's clickable input
var challengeCheckboxLocators = []service.Selector{
	{By: service.SelectorCSS, Expr: `iframe[src*="challenge"]`},
	{By: service.SelectorCSS, Expr: `input[type="checkbox"]`},
	{By: service.SelectorCSS, Expr: `#challenge-stage`},
}

const (
	challengeCheckTimeout = 3 * time.Second
	challengeSettleDelay  = 5 * time.Second
)

// Solver resolves the anti-bot verification interstitial by clicking its
// confirmation widget and waiting for the page to move on
type Solver struct{}

// NewSolver creates a challenge solver
func NewSolver() *Solver {
	return &Solver{}
}

// Present reports whether the verification screen is currently shown
func (s *Solver) Present(session service.Session) bool {
	text, err := session.PageText()
	if err != nil {
		return false
	}
	for _, marker := range challengeMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// Solve clicks the verification widget once and waits for the interstitial
// to clear. Callers bound the retries.
func (s *Solver) Solve(ctx context.Context, session service.Session) error {
	for _, sel := range challengeCheckboxLocators {
		el, err := session.Locate(sel, challengeCheckTimeout)
		if err != nil || el == nil {
			continue
		}
		if err := el.Click(); err != nil {
			log.Debugf("Challenge widget click failed for %q: %v", sel.Expr, err)
			continue
		}
		break
	}

	// The interstitial may also clear on its own after a delay
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(challengeSettleDelay):
	}

	if s.Present(session) {
		return &service.ChallengeUnresolvedError{Attempts: 1}
	}
	return nil
}
