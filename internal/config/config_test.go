package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable ApplyEnv reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"AGENT_DATA_DIR", "AGENT_SEND_REPLIES", "AGENT_INTERVAL", "AGENT_CREATED_BY",
		"DB_DRIVER", "DB_HOST", "MYSQL_SERVER", "MYSQL_HOST", "DB_PORT", "MYSQL_PORT",
		"DB_USER", "MYSQL_USERNAME", "MYSQL_USER", "DB_PASSWORD", "MYSQL_PASSWORD",
		"DB_NAME", "MYSQL_DATABASE", "DB_PATH", "DB_SSLMODE", "DB_CONNECTION_LIMIT",
		"MYSQL_CONNECTION_LIMIT", "DB_AUTO_CREATE", "DB_QUERY_TIMEOUT",
		"EMAIL_ADDRESS", "EMAIL_USERNAME", "EMAIL_PASSWORD", "EMAIL_FROM_NAME", "EMAIL_IMAP",
		"EMAIL_IMAP_PORT", "EMAIL_MAILBOX", "EMAIL_SMTP", "EMAIL_SMTP_PORT",
		"BLUESKY_SERVICE", "BLUESKY_USERNAME", "BLUESKY_HANDLE", "BLUESKY_EMAIL",
		"BLUESKY_PASSWORD", "BLUESKY_APP_PASSWORD",
		"PUSHGATEWAY_URL", "AGENT_HTTP_ADDR", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

func TestApplyEnvUsesLegacyNames(t *testing.T) {
	clearEnv(t)
	t.Setenv("MYSQL_SERVER", "db.internal")
	t.Setenv("MYSQL_USERNAME", "agent")
	t.Setenv("MYSQL_PASSWORD", "pw")
	t.Setenv("EMAIL_ADDRESS", "a1@example.com")
	t.Setenv("EMAIL_IMAP", "imap.example.com")
	t.Setenv("EMAIL_PASSWORD", "mailpw")
	t.Setenv("BLUESKY_EMAIL", "me@example.com")
	t.Setenv("BLUESKY_APP_PASSWORD", "app-pw")
	t.Setenv("DB_QUERY_TIMEOUT", "30")

	cfg := Default()
	ApplyEnv(&cfg)
	out, res := NormalizeAndValidate(cfg)
	require.True(t, res.OK(), res.Errors)

	assert.Equal(t, "db.internal", out.Store.Host)
	assert.Equal(t, "agent", out.Store.User)
	assert.Equal(t, "a1j7no", out.Store.Catalog)
	assert.Equal(t, 10, out.Store.PoolSize)
	assert.Equal(t, 30*time.Second, out.Store.QueryTimeout)
	assert.Equal(t, "a1@example.com", out.Email.Username, "username defaults to the address")
	assert.True(t, out.InboundEnabled())
	assert.False(t, out.OutboundEnabled())
	assert.Equal(t, "me@example.com", out.Bluesky.Identifier)
	assert.True(t, out.BlueskyEnabled())
}

func TestApplyEnvPrefersFirstName(t *testing.T) {
	clearEnv(t)
	t.Setenv("BLUESKY_USERNAME", "handle.bsky.social")
	t.Setenv("BLUESKY_EMAIL", "me@example.com")

	cfg := Default()
	ApplyEnv(&cfg)
	assert.Equal(t, "handle.bsky.social", cfg.Bluesky.Identifier)
}

func TestMissingStoreIsFatal(t *testing.T) {
	clearEnv(t)
	cfg := Default()
	ApplyEnv(&cfg)
	_, res := NormalizeAndValidate(cfg)
	require.False(t, res.OK())
	require.Error(t, res.Err())
	assert.Contains(t, res.Err().Error(), "store.host")
}

func TestMissingIntegrationsOnlyWarn(t *testing.T) {
	clearEnv(t)
	cfg := Default()
	cfg.Store.Driver = "sqlite"
	cfg.Store.Path = filepath.Join(t.TempDir(), "agent.db")

	out, res := NormalizeAndValidate(cfg)
	require.True(t, res.OK(), res.Errors)
	assert.False(t, out.InboundEnabled())
	assert.False(t, out.BlueskyEnabled())
	assert.NotEmpty(t, res.Warnings)
}

func TestUnsupportedDriver(t *testing.T) {
	cfg := Default()
	cfg.Store.Driver = "oracle"
	_, res := NormalizeAndValidate(cfg)
	require.False(t, res.OK())
	assert.Contains(t, strings.Join(res.Errors, "\n"), "not supported")
}

func TestPoolSizeClamped(t *testing.T) {
	cfg := Example()
	cfg.Store.PoolSize = 500
	out, res := NormalizeAndValidate(cfg)
	require.True(t, res.OK(), res.Errors)
	assert.Equal(t, maxPoolSize, out.Store.PoolSize)
}

func TestReplyRulesValidated(t *testing.T) {
	cfg := Example()
	cfg.Replies.Rules = []ReplyRule{{Any: []string{""}}}
	_, res := NormalizeAndValidate(cfg)
	require.False(t, res.OK())
	assert.Len(t, res.Errors, 2)
}

func TestLoadFileOverlaysYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  driver: postgres
  host: pg.internal
  user: agent
  connection_limit: 4
  query_timeout: 3s
agent:
  send_replies: true
replies:
  rules:
    - any: [ping]
      response: pong
`), 0o600))

	cfg := Default()
	require.NoError(t, LoadFile(&cfg, path, true))
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 4, cfg.Store.PoolSize)
	assert.Equal(t, 3*time.Second, cfg.Store.QueryTimeout)
	assert.Equal(t, "a1j7no", cfg.Store.Catalog, "unset keys keep defaults")
	assert.True(t, cfg.Agent.SendReplies)
	require.Len(t, cfg.Replies.Rules, 1)
	assert.Equal(t, "pong", cfg.Replies.Rules[0].Response)
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Default()
	missing := filepath.Join(t.TempDir(), "nope.yml")
	require.NoError(t, LoadFile(&cfg, missing, false))
	require.Error(t, LoadFile(&cfg, missing, true))
}

func TestSaveAtomicDropsPasswordsAndKeepsBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yml")

	cfg := Example()
	cfg.Store.Password = "secret-db"
	cfg.Bluesky.Password = "secret-bsky"
	require.NoError(t, SaveAtomic(path, cfg))
	require.NoError(t, SaveAtomic(path, cfg))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "secret")
	_, err = os.Stat(path + ".bak")
	assert.NoError(t, err)

	loaded := Default()
	require.NoError(t, LoadFile(&loaded, path, true))
	assert.Equal(t, "localhost", loaded.Store.Host)
}

func TestSaveAtomicRejectsInvalid(t *testing.T) {
	cfg := Default()
	cfg.Store.Driver = "nope"
	require.Error(t, SaveAtomic(filepath.Join(t.TempDir(), "c.yml"), cfg))
}
