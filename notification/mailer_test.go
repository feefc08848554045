package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"autocheckin/config"
	"autocheckin/events"
	"autocheckin/models"
	"autocheckin/service"
)

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func enabledConfig() config.SMTPConfig {
	return config.SMTPConfig{
		Enabled:   true,
		Server:    "smtp.example.test",
		Port:      587,
		Sender:    "bot@example.test",
		Receivers: []string{"ops@example.test"},
	}
}

func sampleSummary() models.RunSummary {
	return models.RunSummary{
		RunID:    7,
		Total:    2,
		Success:  1,
		Failed:   1,
		Duration: 90 * time.Second,
		Entries: []*models.ActionLogEntry{
			{AccountEmail: "a@example.test", Outcome: models.OutcomeSuccess, Reward: 5, Endpoint: "d1.test"},
			{AccountEmail: "b@example.test", Outcome: models.OutcomeFailed, Message: "login failed"},
		},
	}
}

func notifiedMailerMocks() (*service.MockUnitOfWorkFactory, *service.MockRunRepository) {
	uow := new(service.MockUnitOfWork)
	factory := new(service.MockUnitOfWorkFactory)
	runRepo := new(service.MockRunRepository)
	uow.SetRepositories(runRepo, nil, nil, nil, nil)

	factory.On("Create").Return(uow)
	uow.On("Begin", mock.Anything).Return(nil)
	uow.On("Commit").Return(nil)
	uow.On("Rollback").Return(nil)

	return factory, runRepo
}

func TestMailer_RunCompletedMarksNotified(t *testing.T) {
	factory, runRepo := notifiedMailerMocks()
	runRepo.On("MarkNotified", mock.Anything, int64(7)).Return(nil)

	sender := &fakeSender{}
	mailer := &Mailer{cfg: enabledConfig(), sender: sender, uowFactory: factory}

	mailer.handleRunCompleted(context.Background(), events.RunCompletedEvent{Summary: sampleSummary()})

	require.Len(t, sender.sent, 1)
	runRepo.AssertCalled(t, "MarkNotified", mock.Anything, int64(7))
}

func TestMailer_SendFailureLeavesRunUnmarked(t *testing.T) {
	factory, runRepo := notifiedMailerMocks()

	sender := &fakeSender{err: assert.AnError}
	mailer := &Mailer{cfg: enabledConfig(), sender: sender, uowFactory: factory}

	mailer.handleRunCompleted(context.Background(), events.RunCompletedEvent{Summary: sampleSummary()})

	assert.Empty(t, sender.sent)
	runRepo.AssertNotCalled(t, "MarkNotified", mock.Anything, mock.Anything)
	factory.AssertNotCalled(t, "Create")
}

func TestMailer_DisabledSendsAndMarksNothing(t *testing.T) {
	factory, runRepo := notifiedMailerMocks()

	cfg := enabledConfig()
	cfg.Enabled = false

	sender := &fakeSender{}
	mailer := &Mailer{cfg: cfg, sender: sender, uowFactory: factory}

	mailer.handleRunCompleted(context.Background(), events.RunCompletedEvent{Summary: sampleSummary()})

	assert.Empty(t, sender.sent)
	runRepo.AssertNotCalled(t, "MarkNotified", mock.Anything, mock.Anything)
}

func TestRenderDigest(t *testing.T) {
	summary := sampleSummary()
	html := renderDigest(&summary)

	assert.Contains(t, html, "Daily checkin run #7")
	assert.Contains(t, html, "a@example.test")
	assert.Contains(t, html, "login failed")
	assert.Contains(t, html, "1m30s")
}
