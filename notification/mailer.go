// Package notification sends run digests over SMTP when a batch completes.
package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"autocheckin/config"
	"autocheckin/events"
	"autocheckin/models"
	"autocheckin/service"
)

// digestSender is the SMTP delivery seam, satisfied by *gomail.Dialer
type digestSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer sends batch run digests to the configured receivers
type Mailer struct {
	cfg        config.SMTPConfig
	sender     digestSender
	uowFactory service.UnitOfWorkFactory
}

// NewMailer creates a mailer from the SMTP settings
func NewMailer(cfg config.SMTPConfig, uowFactory service.UnitOfWorkFactory) *Mailer {
	return &Mailer{
		cfg:        cfg,
		sender:     gomail.NewDialer(cfg.Server, cfg.Port, cfg.Sender, cfg.Password),
		uowFactory: uowFactory,
	}
}

// Register subscribes the mailer to run completion events
func (m *Mailer) Register(bus *events.Bus) {
	bus.Subscribe(events.EventTypeRunCompleted, m.handleRunCompleted)
}

func (m *Mailer) handleRunCompleted(ctx context.Context, event events.Event) {
	completed, ok := event.(events.RunCompletedEvent)
	if !ok {
		return
	}
	if err := m.SendRunDigest(&completed.Summary); err != nil {
		log.Errorf("Failed to send run digest: %v", err)
		return
	}
	if !m.deliverable() {
		return
	}
	if err := m.markNotified(ctx, completed.Summary.RunID); err != nil {
		log.Errorf("Failed to mark run %d notified: %v", completed.Summary.RunID, err)
	}
}

func (m *Mailer) deliverable() bool {
	return m.cfg.Enabled && len(m.cfg.Receivers) > 0
}

// SendRunDigest mails the per-account outcome table for one finished run
func (m *Mailer) SendRunDigest(summary *models.RunSummary) error {
	if !m.deliverable() {
		return nil
	}

	subject := fmt.Sprintf("Checkin run #%d: %d ok, %d failed, %d already done",
		summary.RunID, summary.Success, summary.Failed, summary.AlreadyDone)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.Sender)
	msg.SetHeader("To", m.cfg.Receivers...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", renderDigest(summary))

	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send digest mail: %w", err)
	}

	log.Infof("Sent run digest for run %d to %d receiver(s)", summary.RunID, len(m.cfg.Receivers))
	return nil
}

// markNotified flips the run's notification flag after a successful delivery
func (m *Mailer) markNotified(ctx context.Context, runID int64) error {
	uow := m.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.RunRepository().MarkNotified(ctx, runID); err != nil {
		return err
	}
	return uow.Commit()
}

func renderDigest(summary *models.RunSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<h2>Daily checkin run #%d</h2>", summary.RunID)
	fmt.Fprintf(&b, "<p>%d accounts, %d succeeded, %d already done, %d failed, took %s.</p>",
		summary.Total, summary.Success, summary.AlreadyDone, summary.Failed,
		summary.Duration.Round(time.Second))

	b.WriteString("<table border=\"1\" cellpadding=\"4\" cellspacing=\"0\">")
	b.WriteString("<tr><th>Account</th><th>Outcome</th><th>Reward</th><th>Endpoint</th><th>Detail</th></tr>")
	for _, entry := range summary.Entries {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%d</td><td>%s</td><td>%s</td></tr>",
			entry.AccountEmail, entry.Outcome, entry.Reward, entry.Endpoint, entry.Message)
	}
	b.WriteString("</table>")

	return b.String()
}
