package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autonomous-agent/internal/agent"
	"autonomous-agent/internal/config"
	"autonomous-agent/internal/content"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeSQLiteConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	yml := "agent:\n" +
		"  data_dir: " + dir + "\n" +
		"store:\n" +
		"  driver: sqlite\n" +
		"  path: " + filepath.Join(dir, "agent.db") + "\n" +
		"  auto_create_database: true\n" +
		"log:\n" +
		"  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	return dir, path
}

func TestReplyRulesMapping(t *testing.T) {
	got := replyRules([]config.ReplyRule{{Any: []string{"ping"}, Response: "pong"}})
	assert.Equal(t, []content.Rule{{Any: []string{"ping"}, Response: "pong"}}, got)
}

func TestReadSecretTrimsNewline(t *testing.T) {
	pw, err := readSecret(strings.NewReader("s3cret\r\nignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", pw)

	pw, err = readSecret(strings.NewReader("no-newline"))
	require.NoError(t, err)
	assert.Equal(t, "no-newline", pw)
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")

	out, err := execute(t, "", "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote")
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = execute(t, "", "config", "init", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "", "config", "init", "--config", path, "--force")
	require.NoError(t, err)
}

func TestMissingExplicitConfigFails(t *testing.T) {
	_, err := execute(t, "", "run", "--config", filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
}

func TestRunOnceWithSQLite(t *testing.T) {
	_, path := writeSQLiteConfig(t)

	out, err := execute(t, "", "run", "--config", path)
	require.NoError(t, err)

	var rep agent.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.NotEmpty(t, rep.CycleID)
	assert.NotEmpty(t, rep.Thought)
	assert.False(t, rep.Posted)
	assert.Positive(t, rep.ContentUpdateID)

	out, err = execute(t, "", "updates", "--config", path, "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "failed"`)

	out, err = execute(t, "", "events", "--config", path, "--type", "social_post_failed")
	require.NoError(t, err)
	assert.Contains(t, out, "social_post_failed")
}

func TestMigrateCreatesSchema(t *testing.T) {
	_, path := writeSQLiteConfig(t)

	out, err := execute(t, "", "migrate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "schema ready (sqlite)")
}
