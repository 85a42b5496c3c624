package app

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
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfigFile(t, "server:\n  http-port: \":8080\"\n")

	cfg, realpath, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, path, realpath)

	assert.Equal(t, ":8080", cfg.Server.HttpPort)
	assert.Equal(t, "release", cfg.Server.RunMode)
	assert.Equal(t, ":9001", cfg.Server.PrivateHttpListen)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "localfs", string(cfg.Store.Type))
	assert.Equal(t, "30d", cfg.App.SoftDeleteRetentionTime)
	assert.True(t, cfg.App.AcceptEncryptedNotes)
	assert.True(t, cfg.Tracer.Enabled)
	assert.Equal(t, "X-Trace-ID", cfg.Tracer.Header)
}

func TestLoadConfig_FileMissing(t *testing.T) {
	_, _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_StoreAndBackupSections(t *testing.T) {
	path := writeConfigFile(t, `
store:
  type: memory
backup:
  enabled: true
  cron: "30 2 * * *"
  targets:
    - type: localfs
      is-enable: true
      save-path: /tmp/backups
security:
  auth-token: secret-token
`)

	cfg, _, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", string(cfg.Store.Type))
	assert.True(t, cfg.Backup.Enabled)
	assert.Equal(t, "30 2 * * *", cfg.Backup.Cron)
	require.Len(t, cfg.Backup.Targets, 1)
	assert.Equal(t, "/tmp/backups", cfg.Backup.Targets[0].SavePath)
	assert.Equal(t, "secret-token", cfg.Security.AuthToken)
}

func TestGetWriteQueueConfig(t *testing.T) {
	path := writeConfigFile(t, "app:\n  write-queue-capacity: 7\n  write-queue-timeout: 5s\n")

	cfg, _, err := LoadConfig(path)
	require.NoError(t, err)

	wq := cfg.GetWriteQueueConfig()
	assert.Equal(t, 7, wq.QueueCapacity)
	assert.Equal(t, 5*time.Second, wq.WriteTimeout)
	assert.Equal(t, 10*time.Minute, wq.IdleTimeout)
}

func TestGetSoftDeleteRetention(t *testing.T) {
	path := writeConfigFile(t, "app:\n  soft-delete-retention-time: 2d\n")

	cfg, _, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 48*time.Hour, cfg.GetSoftDeleteRetention())
}

func TestSaveRoundTrip(t *testing.T) {
	path := writeConfigFile(t, "server:\n  http-port: \":8080\"\n")

	cfg, _, err := LoadConfig(path)
	require.NoError(t, err)

	cfg.Security.AuthToken = "rotated"
	require.NoError(t, cfg.Save())

	reloaded, _, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "rotated", reloaded.Security.AuthToken)
	assert.Equal(t, ":8080", reloaded.Server.HttpPort)
}
