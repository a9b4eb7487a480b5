package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8085, cfg.Server.Port)
	assert.Equal(t, "gemini", cfg.LLM.DefaultProvider)
	assert.Equal(t, 7, cfg.Jobs.RetentionDays)
	assert.Equal(t, 2*time.Second, cfg.Jobs.PollIntervalDuration())
	assert.Equal(t, 5*time.Minute, cfg.Jobs.MaxWaitDuration())
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cotiza.toml")
	content := `
[server]
port = 9090
host = "0.0.0.0"

[jobs]
retention_days = 3
default_rigor = 5

[sitesearch]
requests_per_sec = 2.5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 3, cfg.Jobs.RetentionDays)
	assert.Equal(t, 5, cfg.Jobs.DefaultRigor)
	assert.Equal(t, 2.5, cfg.SiteSearch.RequestsPerSec)

	// Sections absent from the file keep their defaults.
	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("COTIZA_SERVER_PORT", "7070")
	t.Setenv("COTIZA_GEMINI_API_KEY", "env-key")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "env-key", cfg.Gemini.APIKey)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"empty storage path", func(c *Config) { c.Storage.Badger.Path = "" }},
		{"unknown provider", func(c *Config) { c.LLM.DefaultProvider = "grok" }},
		{"bad poll interval", func(c *Config) { c.Jobs.PollInterval = "sempre" }},
		{"rigor out of range", func(c *Config) { c.Jobs.DefaultRigor = 9 }},
		{"crm enabled without tenant", func(c *Config) { c.CRM.Enabled = true }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
