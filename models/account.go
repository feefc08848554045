package models

// Account represents one remote-service account the engine checks in.
// Accounts are owned by the configuration collaborator and read-only here.
type Account struct {
	Email    string
	Password string
	Enabled  bool
	Notify   bool
}

// DomainConfig holds the ordered endpoint list an account is tried against
type DomainConfig struct {
	Primary    string `yaml:"primary"`
	Backup     string `yaml:"backup"`
	AutoSwitch bool   `yaml:"auto_switch"`
}

// Endpoints returns the ordered, non-empty endpoint list for failover.
// The backup domain is only included when auto-switching is enabled.
func (d DomainConfig) Endpoints() []string {
	endpoints := []string{d.Primary}
	if d.AutoSwitch && d.Backup != "" && d.Backup != d.Primary {
		endpoints = append(endpoints, d.Backup)
	}
	return endpoints
}
