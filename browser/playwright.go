// Package browser implements the session abstraction on Playwright-driven
// Chromium. Each session runs in its own browser context with a throwaway
// profile directory so account attempts never share cookies or fingerprints.
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	pw "github.com/playwright-community/playwright-go"
	log "github.com/sirupsen/logrus"

	"autocheckin/service"
)

const navigationTimeoutMs = 30000

// Manager owns the Playwright driver process shared by all sessions
type Manager struct {
	pw       *pw.Playwright
	headless bool
}

// NewManager installs the Chromium driver if needed and starts Playwright
func NewManager(headless bool) (*Manager, error) {
	err := pw.Install(&pw.RunOptions{
		Browsers: []string{"chromium"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to install browser driver: %w", err)
	}

	instance, err := pw.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	return &Manager{pw: instance, headless: headless}, nil
}

// Close stops the Playwright driver
func (m *Manager) Close() error {
	return m.pw.Stop()
}

// NewSession launches a fresh browser context with its own profile directory
func (m *Manager) NewSession(ctx context.Context) (service.Session, error) {
	profileDir := filepath.Join(os.TempDir(), "autocheckin-profile-"+uuid.NewString())

	browserCtx, err := m.pw.Chromium.LaunchPersistentContext(profileDir,
		pw.BrowserTypeLaunchPersistentContextOptions{
			Headless: pw.Bool(m.headless),
			Args: []string{
				"--disable-blink-features=AutomationControlled",
				"--no-first-run",
			},
		})
	if err != nil {
		os.RemoveAll(profileDir)
		return nil, fmt.Errorf("failed to launch browser context: %w", err)
	}

	var page pw.Page
	if pages := browserCtx.Pages(); len(pages) > 0 {
		page = pages[0]
	} else {
		page, err = browserCtx.NewPage()
		if err != nil {
			browserCtx.Close()
			os.RemoveAll(profileDir)
			return nil, fmt.Errorf("failed to open page: %w", err)
		}
	}

	return &session{
		ctx:        browserCtx,
		page:       page,
		profileDir: profileDir,
	}, nil
}

// session implements service.Session on a Playwright page
type session struct {
	ctx        pw.BrowserContext
	page       pw.Page
	profileDir string
	closeOnce  sync.Once
	closeErr   error
}

func (s *session) Navigate(ctx context.Context, url string) error {
	_, err := s.page.Goto(url, pw.PageGotoOptions{
		WaitUntil: pw.WaitUntilStateNetworkidle,
		Timeout:   pw.Float(navigationTimeoutMs),
	})
	if err != nil {
		return classifyError("navigate "+url, err)
	}
	return nil
}

// Locate finds the first visible element matching the selector. A timeout
// means the element is not on the page and returns (nil, nil).
func (s *session) Locate(sel service.Selector, timeout time.Duration) (service.Element, error) {
	locator := s.page.Locator(playwrightSelector(sel)).First()

	err := locator.WaitFor(pw.LocatorWaitForOptions{
		State:   pw.WaitForSelectorStateVisible,
		Timeout: pw.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		if isTimeout(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to locate %q: %w", sel.Expr, err)
	}

	return &element{locator: locator, timeout: timeout}, nil
}

func (s *session) ListenFor(pattern string) service.Subscription {
	sub := &subscription{
		pattern: pattern,
		bodies:  make(chan []byte, 8),
	}

	s.page.OnResponse(func(response pw.Response) {
		if sub.stopped.Load() {
			return
		}
		if !strings.Contains(response.URL(), pattern) {
			return
		}
		body, err := response.Body()
		if err != nil {
			log.Debugf("Failed to read intercepted response body for %s: %v", response.URL(), err)
			return
		}
		select {
		case sub.bodies <- body:
		default:
			// Drop when the consumer is behind; the next page fetch supersedes
		}
	})

	return sub
}

func (s *session) Refresh(ctx context.Context) error {
	_, err := s.page.Reload(pw.PageReloadOptions{
		WaitUntil: pw.WaitUntilStateNetworkidle,
		Timeout:   pw.Float(navigationTimeoutMs),
	})
	if err != nil {
		return classifyError("refresh", err)
	}
	return nil
}

func (s *session) CurrentURL() (string, error) {
	return s.page.URL(), nil
}

func (s *session) PageText() (string, error) {
	text, err := s.page.Locator("body").InnerText(pw.LocatorInnerTextOptions{
		Timeout: pw.Float(5000),
	})
	if err != nil {
		return "", classifyError("read page text", err)
	}
	return text, nil
}

func (s *session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.ctx.Close()
		if err := os.RemoveAll(s.profileDir); err != nil {
			log.Warnf("Failed to remove profile directory %s: %v", s.profileDir, err)
		}
	})
	return s.closeErr
}

// element implements service.Element on a Playwright locator
type element struct {
	locator pw.Locator
	timeout time.Duration
}

func (e *element) timeoutMs() float64 {
	return float64(e.timeout.Milliseconds())
}

func (e *element) Click() error {
	err := e.locator.Click(pw.LocatorClickOptions{Timeout: pw.Float(e.timeoutMs())})
	if err != nil {
		return classifyError("click", err)
	}
	return nil
}

func (e *element) Fill(text string) error {
	err := e.locator.Fill(text, pw.LocatorFillOptions{Timeout: pw.Float(e.timeoutMs())})
	if err != nil {
		return classifyError("fill", err)
	}
	return nil
}

func (e *element) Text() (string, error) {
	text, err := e.locator.InnerText(pw.LocatorInnerTextOptions{Timeout: pw.Float(e.timeoutMs())})
	if err != nil {
		return "", classifyError("read text", err)
	}
	return text, nil
}

func (e *element) Enabled() (bool, error) {
	enabled, err := e.locator.IsEnabled(pw.LocatorIsEnabledOptions{Timeout: pw.Float(e.timeoutMs())})
	if err != nil {
		return false, classifyError("check enabled", err)
	}
	return enabled, nil
}

// subscription implements service.Subscription over the page response hook
type subscription struct {
	pattern string
	bodies  chan []byte
	stopped atomic.Bool
}

func (s *subscription) Await(timeout time.Duration) ([]byte, error) {
	select {
	case body := <-s.bodies:
		return body, nil
	case <-time.After(timeout):
		return nil, &service.NetworkTimeoutError{Operation: "await response " + s.pattern}
	}
}

func (s *subscription) Drain() {
	for {
		select {
		case <-s.bodies:
		default:
			return
		}
	}
}

func (s *subscription) Stop() {
	s.stopped.Store(true)
}

// playwrightSelector translates the selector kinds into Playwright syntax
func playwrightSelector(sel service.Selector) string {
	switch sel.By {
	case service.SelectorXPath:
		return "xpath=" + sel.Expr
	case service.SelectorText:
		return "text=" + sel.Expr
	default:
		return sel.Expr
	}
}

// classifyError maps driver timeouts onto the typed timeout error so the
// state machine can tell a slow page from a broken one
func classifyError(operation string, err error) error {
	if isTimeout(err) {
		return &service.NetworkTimeoutError{Operation: operation, Cause: err}
	}
	return fmt.Errorf("%s: %w", operation, err)
}

func isTimeout(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Timeout")
}
