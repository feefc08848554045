package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autocheckin/models"
)

func writeAccountsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "account.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAccountsFile(t *testing.T) {
	t.Run("missing file is not an error", func(t *testing.T) {
		config := &Config{}
		err := config.loadAccountsFile(filepath.Join(t.TempDir(), "nope.yml"))
		require.NoError(t, err)
		assert.Empty(t, config.Accounts)
	})

	t.Run("absent flags default to enabled and notify", func(t *testing.T) {
		path := writeAccountsFile(t, `
account:
  - mail: a@example.test
    password: secret
  - mail: b@example.test
    password: secret
    enabled: false
  - mail: c@example.test
    password: secret
    notify: false
`)
		config := &Config{}
		require.NoError(t, config.loadAccountsFile(path))
		require.Len(t, config.Accounts, 3)

		assert.True(t, config.Accounts[0].Enabled)
		assert.True(t, config.Accounts[0].Notify)
		assert.False(t, config.Accounts[1].Enabled)
		assert.True(t, config.Accounts[1].Notify)
		assert.True(t, config.Accounts[2].Enabled)
		assert.False(t, config.Accounts[2].Notify)
	})

	t.Run("incomplete entries are skipped", func(t *testing.T) {
		path := writeAccountsFile(t, `
account:
  - mail: a@example.test
  - password: secret
  - mail: b@example.test
    password: secret
`)
		config := &Config{}
		require.NoError(t, config.loadAccountsFile(path))
		require.Len(t, config.Accounts, 1)
		assert.Equal(t, "b@example.test", config.Accounts[0].Email)
	})

	t.Run("domains schedule and smtp sections", func(t *testing.T) {
		path := writeAccountsFile(t, `
domains:
  primary: d1.test
  backup: d2.test
  auto_switch: true
schedule:
  enabled: true
  times: ["08:30", "20:15"]
smtp:
  enabled: true
  server: smtp.example.test
  port: 465
  sender_email: bot@example.test
  sender_password: secret
  receiver_emails: ["ops@example.test"]
`)
		config := &Config{}
		require.NoError(t, config.loadAccountsFile(path))

		assert.Equal(t, []string{"d1.test", "d2.test"}, config.Domains.Endpoints())
		assert.True(t, config.ScheduleEnabled)
		assert.Equal(t, []string{"08:30", "20:15"}, config.ScheduleTimes)
		assert.True(t, config.SMTP.Enabled)
		assert.Equal(t, 465, config.SMTP.Port)
		assert.Equal(t, []string{"ops@example.test"}, config.SMTP.Receivers)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeAccountsFile(t, "account: [\n")
		config := &Config{}
		err := config.loadAccountsFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse accounts file")
	})
}

func TestEnabledAccounts(t *testing.T) {
	config := &Config{
		Accounts: []models.Account{
			{Email: "a@example.test", Enabled: true},
			{Email: "b@example.test", Enabled: false},
			{Email: "c@example.test", Enabled: true},
		},
	}

	enabled := config.EnabledAccounts()
	require.Len(t, enabled, 2)
	assert.Equal(t, "a@example.test", enabled[0].Email)
	assert.Equal(t, "c@example.test", enabled[1].Email)
}
