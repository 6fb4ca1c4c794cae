package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DotEnvFiles are loaded in order when present. Variables already set in the
// process environment win.
var DotEnvFiles = []string{".env", ".env.local"}

func LoadDotEnv() error {
	for _, f := range DotEnvFiles {
		if _, err := os.Stat(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// firstEnv returns the first non-empty variable among keys.
func firstEnv(keys ...string) (string, bool) {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v, true
		}
	}
	return "", false
}

func setString(dst *string, keys ...string) {
	if v, ok := firstEnv(keys...); ok {
		*dst = v
	}
}

func setInt(dst *int, keys ...string) {
	if v, ok := firstEnv(keys...); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, keys ...string) {
	if v, ok := firstEnv(keys...); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, keys ...string) {
	if v, ok := firstEnv(keys...); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// setDuration accepts Go durations ("90s") or a bare number of seconds.
func setDuration(dst *time.Duration, keys ...string) {
	v, ok := firstEnv(keys...)
	if !ok {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(n) * time.Second
	}
}

// ApplyEnv overrides cfg from environment variables. The MYSQL_*, EMAIL_* and
// BLUESKY_* names are the ones deployments already use.
func ApplyEnv(cfg *Config) {
	setString(&cfg.Agent.DataDir, "AGENT_DATA_DIR")
	setBool(&cfg.Agent.SendReplies, "AGENT_SEND_REPLIES")
	setDuration(&cfg.Agent.Interval, "AGENT_INTERVAL")
	setString(&cfg.Agent.CreatedBy, "AGENT_CREATED_BY")

	s := &cfg.Store
	setString(&s.Driver, "DB_DRIVER")
	setString(&s.Host, "DB_HOST", "MYSQL_SERVER", "MYSQL_HOST")
	setInt(&s.Port, "DB_PORT", "MYSQL_PORT")
	setString(&s.User, "DB_USER", "MYSQL_USERNAME", "MYSQL_USER")
	setString(&s.Password, "DB_PASSWORD", "MYSQL_PASSWORD")
	setString(&s.Catalog, "DB_NAME", "MYSQL_DATABASE")
	setString(&s.Path, "DB_PATH")
	setString(&s.SSLMode, "DB_SSLMODE")
	setInt(&s.PoolSize, "DB_CONNECTION_LIMIT", "MYSQL_CONNECTION_LIMIT")
	setBool(&s.AutoCreateCatalog, "DB_AUTO_CREATE")
	setDuration(&s.QueryTimeout, "DB_QUERY_TIMEOUT")

	e := &cfg.Email
	setString(&e.Address, "EMAIL_ADDRESS")
	setString(&e.Username, "EMAIL_USERNAME")
	setString(&e.Password, "EMAIL_PASSWORD")
	setString(&e.FromName, "EMAIL_FROM_NAME")
	setString(&e.IMAPHost, "EMAIL_IMAP")
	setInt(&e.IMAPPort, "EMAIL_IMAP_PORT")
	setString(&e.Mailbox, "EMAIL_MAILBOX")
	setString(&e.SMTPHost, "EMAIL_SMTP")
	setInt(&e.SMTPPort, "EMAIL_SMTP_PORT")

	b := &cfg.Bluesky
	setString(&b.Service, "BLUESKY_SERVICE")
	setString(&b.Identifier, "BLUESKY_USERNAME", "BLUESKY_HANDLE", "BLUESKY_EMAIL")
	setString(&b.Password, "BLUESKY_PASSWORD", "BLUESKY_APP_PASSWORD")

	setString(&cfg.Metrics.PushgatewayURL, "PUSHGATEWAY_URL")
	setString(&cfg.HTTP.Addr, "AGENT_HTTP_ADDR")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")
}
