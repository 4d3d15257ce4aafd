package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fullConfig() *Config {
	return &Config{
		SCIMToken:        "token",
		MailcowAPIURL:    "https://mail.example.com/api/v1/",
		MailcowAPIKey:    "key",
		DefaultDomain:    "example.com",
		DefaultPassword:  "pw",
		DomainAdminGroup: "Mailcow Domain Admins",
	}
}

func Test_Resolve_Defaults(t *testing.T) {
	cfg, err := Resolve(fullConfig(), "")
	require.NoError(t, err)
	require.Equal(t, ":8000", cfg.ListenAddress)
	require.Equal(t, 15*time.Second, cfg.MailcowTimeout)
}

func Test_Resolve_MissingFieldsListedTogether(t *testing.T) {
	_, err := Resolve(&Config{SCIMToken: "token"}, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "MAILCOW_API_URL")
	require.Contains(t, err.Error(), "MAILCOW_API_KEY")
	require.Contains(t, err.Error(), "DEFAULT_DOMAIN")
	require.Contains(t, err.Error(), "DOMAIN_ADMIN_GROUP_NAME")
	require.Contains(t, err.Error(), "DEFAULT_DOMAIN_ADMIN_PASSWORD")
	require.NotContains(t, err.Error(), "SCIM_TOKEN")
}

func Test_Resolve_FileThenFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
scimToken: file-token
mailcowApiUrl: https://file.example.com/api/v1/
mailcowApiKey: file-key
defaultDomain: file.example.com
defaultPassword: file-pw
domainAdminGroup: Admins
listenAddress: ":9000"
`), 0o600))

	flags := &Config{SCIMToken: "flag-token"}
	cfg, err := Resolve(flags, path)
	require.NoError(t, err)

	// Flag wins over file; file wins over built-in default.
	require.Equal(t, "flag-token", cfg.SCIMToken)
	require.Equal(t, "file-key", cfg.MailcowAPIKey)
	require.Equal(t, ":9000", cfg.ListenAddress)
}

func Test_Resolve_UnknownFileKeyRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scimTokn: oops\n"), 0o600))

	_, err := Resolve(fullConfig(), path)
	require.Error(t, err)
}

func Test_Validate_NonPositiveTimeout(t *testing.T) {
	cfg := fullConfig()
	cfg.MailcowTimeout = -time.Second
	require.Error(t, cfg.Validate())
}
