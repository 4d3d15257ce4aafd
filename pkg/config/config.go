package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/alecthomas/kingpin.v2"
	"sigs.k8s.io/yaml"
)

// Config carries every runtime parameter of the bridge. It is resolved once
// at startup and passed by reference; nothing reads the environment after
// that.
type Config struct {
	// ListenAddress is the host:port the SCIM server binds to.
	ListenAddress string `json:"listenAddress,omitempty"`

	// SCIMToken is the static bearer token identity providers must present.
	SCIMToken string `json:"scimToken,omitempty"`

	// MailcowAPIURL is the base URL of the Mailcow admin API, e.g.
	// "https://mail.example.com/api/v1/".
	MailcowAPIURL string `json:"mailcowApiUrl,omitempty"`
	MailcowAPIKey string `json:"mailcowApiKey,omitempty"`

	// MailcowTimeout bounds every outbound Mailcow call.
	MailcowTimeout time.Duration `json:"mailcowTimeout,omitempty"`

	// DefaultDomain is appended to userName when a SCIM payload carries no
	// usable email address.
	DefaultDomain string `json:"defaultDomain,omitempty"`

	// DefaultPassword is set on newly provisioned mailboxes and domain-admin
	// accounts; Mailcow is told to force a change on first login.
	DefaultPassword string `json:"defaultPassword,omitempty"`

	// DomainAdminGroup is the SCIM group displayName whose membership drives
	// Mailcow domain-admin grants.
	DomainAdminGroup string `json:"domainAdminGroup,omitempty"`

	Debug bool `json:"debug,omitempty"`
}

func defaults() *Config {
	return &Config{
		ListenAddress:  ":8000",
		MailcowTimeout: 15 * time.Second,
	}
}

// DefineFlags registers every parameter on cmd, each overridable from the
// environment. Values land in c as-is; defaulting happens in Resolve.
func DefineFlags(cmd *kingpin.CmdClause, c *Config) {
	cmd.Flag("listen", "Address to serve SCIM endpoints on.").
		Envar("LISTEN_ADDRESS").
		StringVar(&c.ListenAddress)
	cmd.Flag("scim-token", "Bearer token required on all SCIM endpoints.").
		Envar("SCIM_TOKEN").
		StringVar(&c.SCIMToken)
	cmd.Flag("mailcow-api-url", "Base URL of the Mailcow admin API.").
		Envar("MAILCOW_API_URL").
		StringVar(&c.MailcowAPIURL)
	cmd.Flag("mailcow-api-key", "Mailcow admin API key.").
		Envar("MAILCOW_API_KEY").
		StringVar(&c.MailcowAPIKey)
	cmd.Flag("mailcow-timeout", "Timeout for each Mailcow API call.").
		Envar("MAILCOW_TIMEOUT").
		DurationVar(&c.MailcowTimeout)
	cmd.Flag("default-domain", "Domain used to derive mailbox addresses from bare user names.").
		Envar("DEFAULT_DOMAIN").
		StringVar(&c.DefaultDomain)
	cmd.Flag("default-password", "Initial password for provisioned mailboxes and domain admins.").
		Envar("DEFAULT_DOMAIN_ADMIN_PASSWORD").
		StringVar(&c.DefaultPassword)
	cmd.Flag("domain-admin-group", "SCIM group whose members become Mailcow domain admins.").
		Envar("DOMAIN_ADMIN_GROUP_NAME").
		StringVar(&c.DomainAdminGroup)
	cmd.Flag("debug", "Enable debug logging.").
		Envar("SCIM_BRIDGE_DEBUG").
		BoolVar(&c.Debug)
}

// Resolve layers configuration sources: built-in defaults, then the optional
// YAML file, then flag/environment values. The result is validated eagerly so
// a misconfigured bridge fails at startup, not on its first request.
func Resolve(flags *Config, filePath string) (*Config, error) {
	c := defaults()
	if filePath != "" {
		fileCfg := &Config{}
		if err := loadFile(filePath, fileCfg); err != nil {
			return nil, err
		}
		overlay(c, fileCfg)
	}
	overlay(c, flags)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// overlay copies the fields of src that were actually set onto dst.
func overlay(dst, src *Config) {
	if src.ListenAddress != "" {
		dst.ListenAddress = src.ListenAddress
	}
	if src.SCIMToken != "" {
		dst.SCIMToken = src.SCIMToken
	}
	if src.MailcowAPIURL != "" {
		dst.MailcowAPIURL = src.MailcowAPIURL
	}
	if src.MailcowAPIKey != "" {
		dst.MailcowAPIKey = src.MailcowAPIKey
	}
	if src.MailcowTimeout != 0 {
		dst.MailcowTimeout = src.MailcowTimeout
	}
	if src.DefaultDomain != "" {
		dst.DefaultDomain = src.DefaultDomain
	}
	if src.DefaultPassword != "" {
		dst.DefaultPassword = src.DefaultPassword
	}
	if src.DomainAdminGroup != "" {
		dst.DomainAdminGroup = src.DomainAdminGroup
	}
	if src.Debug {
		dst.Debug = true
	}
}

func loadFile(path string, c *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}
	if err = yaml.UnmarshalStrict(data, c); err != nil {
		return fmt.Errorf("parse config file %q: %w", path, err)
	}
	return nil
}

// Validate reports every missing required parameter at once, named by its
// environment variable.
func (c *Config) Validate() error {
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"SCIM_TOKEN", c.SCIMToken},
		{"MAILCOW_API_URL", c.MailcowAPIURL},
		{"MAILCOW_API_KEY", c.MailcowAPIKey},
		{"DEFAULT_DOMAIN", c.DefaultDomain},
		{"DOMAIN_ADMIN_GROUP_NAME", c.DomainAdminGroup},
		{"DEFAULT_DOMAIN_ADMIN_PASSWORD", c.DefaultPassword},
	}
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.MailcowTimeout <= 0 {
		return fmt.Errorf("mailcow timeout must be positive, got %s", c.MailcowTimeout)
	}
	return nil
}
