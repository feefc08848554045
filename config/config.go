package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"autocheckin/models"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL string

	// Remote service endpoints
	Domains models.DomainConfig

	// Accounts to check in, in processing order
	Accounts []models.Account

	// Checkin behavior
	DefaultReward     int64 // assumed reward when the verified amount cannot be read
	InterAccountDelay int   // politeness delay between accounts, seconds
	Headless          bool

	// Scheduler configuration
	ScheduleEnabled bool
	ScheduleTimes   []string // "HH:MM", local time

	// HTTP API
	ListenAddr string
	APIToken   string

	// SMTP notification
	SMTP SMTPConfig

	// Environment: "development", "production" or "test"
	Environment string
}

// SMTPConfig holds the notification mail settings
type SMTPConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Server    string   `yaml:"server"`
	Port      int      `yaml:"port"`
	Sender    string   `yaml:"sender_email"`
	Password  string   `yaml:"sender_password"`
	Receivers []string `yaml:"receiver_emails"`
}

// yamlAccount uses pointers for the flags so an absent key defaults to true
// rather than YAML's zero value
type yamlAccount struct {
	Email    string `yaml:"mail"`
	Password string `yaml:"password"`
	Enabled  *bool  `yaml:"enabled"`
	Notify   *bool  `yaml:"notify"`
}

// accountsFile mirrors the on-disk accounts YAML layout
type accountsFile struct {
	Accounts []yamlAccount       `yaml:"account"`
	Domains  models.DomainConfig `yaml:"domains"`
	Schedule struct {
		Enabled bool     `yaml:"enabled"`
		Times   []string `yaml:"times"`
	} `yaml:"schedule"`
	SMTP SMTPConfig `yaml:"smtp"`
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables and the optional
// accounts file. Environment variables win over file values.
func load() (*Config, error) {
	config := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),

		Domains: models.DomainConfig{
			Primary:    "gptgod.online",
			Backup:     "gptgod.work",
			AutoSwitch: true,
		},

		DefaultReward:     5,
		InterAccountDelay: 3,
		Headless:          os.Getenv("CHECKIN_HEADLESS") != "false",

		ScheduleEnabled: true,
		ScheduleTimes:   []string{"09:00"},

		ListenAddr: ":8739",
		APIToken:   os.Getenv("API_TOKEN"),

		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Load the accounts file first so environment variables can override it
	accountsPath := os.Getenv("ACCOUNTS_FILE")
	if accountsPath == "" {
		accountsPath = "account.yml"
	}
	if err := config.loadAccountsFile(accountsPath); err != nil {
		return nil, err
	}

	if primary := os.Getenv("CHECKIN_PRIMARY_DOMAIN"); primary != "" {
		config.Domains.Primary = primary
	}
	if backup := os.Getenv("CHECKIN_BACKUP_DOMAIN"); backup != "" {
		config.Domains.Backup = backup
	}
	if autoSwitch := os.Getenv("CHECKIN_AUTO_SWITCH"); autoSwitch != "" {
		config.Domains.AutoSwitch = autoSwitch == "true"
	}

	if reward := os.Getenv("CHECKIN_DEFAULT_REWARD"); reward != "" {
		if parsed, err := strconv.ParseInt(reward, 10, 64); err == nil {
			config.DefaultReward = parsed
		}
	}
	if delay := os.Getenv("CHECKIN_ACCOUNT_DELAY"); delay != "" {
		if parsed, err := strconv.Atoi(delay); err == nil {
			config.InterAccountDelay = parsed
		}
	}

	if listen := os.Getenv("LISTEN_ADDR"); listen != "" {
		config.ListenAddr = listen
	}

	// Schedule times as a comma-separated "HH:MM" list
	if times := os.Getenv("SCHEDULE_TIMES"); times != "" {
		var parsed []string
		for _, t := range strings.Split(times, ",") {
			t = strings.TrimSpace(t)
			if t != "" {
				parsed = append(parsed, t)
			}
		}
		if len(parsed) > 0 {
			config.ScheduleTimes = parsed
		}
	}
	if enabled := os.Getenv("SCHEDULE_ENABLED"); enabled != "" {
		config.ScheduleEnabled = enabled == "true"
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.Domains.Primary == "" {
			return nil, fmt.Errorf("a primary domain is required")
		}
	}

	return config, nil
}

// loadAccountsFile reads accounts, domains, schedule and SMTP settings from
// the YAML file when present. A missing file is not an error: accounts can
// be managed elsewhere and the engine only reads them.
func (c *Config) loadAccountsFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read accounts file %s: %w", path, err)
	}

	var file accountsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse accounts file %s: %w", path, err)
	}

	for _, entry := range file.Accounts {
		if entry.Email == "" || entry.Password == "" {
			continue
		}
		acct := models.Account{
			Email:    entry.Email,
			Password: entry.Password,
			Enabled:  entry.Enabled == nil || *entry.Enabled,
			Notify:   entry.Notify == nil || *entry.Notify,
		}
		c.Accounts = append(c.Accounts, acct)
	}

	if file.Domains.Primary != "" {
		c.Domains = file.Domains
	}
	if len(file.Schedule.Times) > 0 {
		c.ScheduleEnabled = file.Schedule.Enabled
		c.ScheduleTimes = file.Schedule.Times
	}
	if file.SMTP.Server != "" {
		c.SMTP = file.SMTP
	}

	return nil
}

// EnabledAccounts returns the accounts eligible for processing, in order
func (c *Config) EnabledAccounts() []models.Account {
	var enabled []models.Account
	for _, acct := range c.Accounts {
		if acct.Enabled {
			enabled = append(enabled, acct)
		}
	}
	return enabled
}
