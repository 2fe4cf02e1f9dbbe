package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalConfig = `
telegram:
  bot_token: "123:abc"
  destinations:
    ops: "-1001234567890"
`

func TestLoad_Minimal(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, minimalConfig))
	require.NoError(t, err)

	// Defaults applied
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.MetricsPort)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 2*time.Hour, cfg.Queue.DedupWindow)
	assert.Equal(t, 5*time.Second, cfg.Queue.WorkerInterval)
	assert.Equal(t, 5, cfg.Queue.BatchSize)
	assert.Equal(t, 3, cfg.Queue.MaxAttempts)
	assert.Equal(t, "Markdown", cfg.Telegram.ParseMode)

	// File values
	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, "-1001234567890", cfg.Telegram.Destinations["ops"])
}

func TestLoad_FileOverrides(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, `
server:
  port: "8888"
log:
  level: debug
  format: text
queue:
  dedup_window: 30m
  batch_size: 10
telegram:
  bot_token: "123:abc"
  destinations:
    ops: "-100"
    oncall: "-200"
`))
	require.NoError(t, err)

	assert.Equal(t, "8888", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 30*time.Minute, cfg.Queue.DedupWindow)
	assert.Equal(t, 10, cfg.Queue.BatchSize)
	assert.Len(t, cfg.Telegram.Destinations, 2)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ALERTFLOW_SERVER__PORT", "7070")
	t.Setenv("ALERTFLOW_TELEGRAM__BOT_TOKEN", "env-token")

	cfg, err := Load(writeConfigFile(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "env-token", cfg.Telegram.BotToken)
}

func TestLoad_MissingBotToken(t *testing.T) {
	_, err := Load(writeConfigFile(t, `
telegram:
  destinations:
    ops: "-100"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate config")
}

func TestLoad_MissingDestinations(t *testing.T) {
	_, err := Load(writeConfigFile(t, `
telegram:
  bot_token: "123:abc"
`))
	require.Error(t, err)
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	_, err := Load(writeConfigFile(t, minimalConfig+`
log:
  level: loud
`))
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
