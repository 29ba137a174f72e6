package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"IKUUU_EMAIL", "IKUUU_PASSWORD", "PUSHDEER_KEY", "IKUUU_HOST",
		"IKUUU_BACKUP_HOSTS", "IKUUU_SQLITE_PATH", "IKUUU_PROXY", "IKUUU_CRON", "IKUUU_ADDR", "IKUUU_DEBUG",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultPrimaryHost, cfg.Site.PrimaryHost)
	require.Equal(t, []string{"ikuuu.de", "ikuuu.one", "ikuuu.pw", "ikuuu.me", "ikuuu.club", "ikuuu.vip", "ikuuu.fyi"}, cfg.Site.BackupHosts)
	require.Equal(t, 3, cfg.Site.LoginRetries)
	require.Equal(t, "https", cfg.Site.Scheme)
	require.Equal(t, DefaultPushDeerEndpoint, cfg.Notify.PushDeer.Endpoint)
	require.Equal(t, time.Second, cfg.Jitter.Login().Min)
	require.Equal(t, 3*time.Second, cfg.Jitter.Login().Max)
	require.Equal(t, 2*time.Second, cfg.Jitter.Retry().Min)
	require.Equal(t, 4*time.Second, cfg.Jitter.Retry().Max)
	require.Equal(t, 15*time.Second, cfg.Site.RequestTimeout())
	require.ErrorIs(t, cfg.Account.Validate(), ErrMissingCredentials)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
site:
  primaryHost: " IKUUU.ONE "
  loginRetries: 5
jitter:
  disabled: true
notify:
  pushdeer:
    key: from-file
`), 0o600))

	t.Setenv("IKUUU_EMAIL", " me@example.com ")
	t.Setenv("IKUUU_PASSWORD", "secret")
	t.Setenv("PUSHDEER_KEY", "from-env")
	t.Setenv("IKUUU_BACKUP_HOSTS", "a.example, ,B.example")
	t.Setenv("IKUUU_DEBUG", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "ikuuu.one", cfg.Site.PrimaryHost)
	require.Equal(t, 5, cfg.Site.LoginRetries)
	require.Equal(t, []string{"a.example", "b.example"}, cfg.Site.BackupHosts)
	require.Equal(t, "from-env", cfg.Notify.PushDeer.Key)
	require.Equal(t, "me@example.com", cfg.Account.Email)
	require.True(t, cfg.Debug)
	require.NoError(t, cfg.Account.Validate())
	require.Equal(t, time.Duration(0), cfg.Jitter.Action().Duration())
}

func TestLoadRejectsBadScheme(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("site:\n  scheme: ftp\n"), 0o600))
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsBadDebugFlag(t *testing.T) {
	clearEnv(t)
	t.Setenv("IKUUU_DEBUG", "maybe")
	_, err := Load("")
	require.Error(t, err)
}

func TestLoadKeepsExplicitZeroValues(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
limits:
  qps: 0
jitter:
  actionMinMs: 0
  actionMaxMs: 0
site:
  backupHosts: []
debug: true
`), 0o600))
	t.Setenv("IKUUU_HOST", "ikuuu.one")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Zero(t, cfg.Limits.QPS)
	require.Equal(t, 2, cfg.Limits.Burst)
	require.Equal(t, time.Duration(0), cfg.Jitter.Action().Duration())
	require.Equal(t, time.Second, cfg.Jitter.Login().Min)
	require.Empty(t, cfg.Site.BackupHosts)
	require.Equal(t, "ikuuu.one", cfg.Site.PrimaryHost)
	require.True(t, cfg.Debug, "an unset IKUUU_DEBUG leaves the file value alone")
}
