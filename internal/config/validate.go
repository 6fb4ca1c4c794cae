package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// Err folds the errors into one, or nil when valid.
func (v Validation) Err() error {
	if v.OK() {
		return nil
	}
	return errors.New("config validation failed:\n- " + strings.Join(v.Errors, "\n- "))
}

const maxPoolSize = 100

// InboundEnabled reports whether IMAP polling has what it needs.
func (c Config) InboundEnabled() bool {
	return c.Email.IMAPHost != "" && c.Email.Username != "" && c.Email.Password != ""
}

// OutboundEnabled reports whether SMTP delivery has what it needs.
func (c Config) OutboundEnabled() bool {
	return c.Email.SMTPHost != "" && c.Email.Username != "" && c.Email.Password != ""
}

// BlueskyEnabled reports whether posting credentials are present.
func (c Config) BlueskyEnabled() bool {
	return c.Bluesky.Identifier != "" && c.Bluesky.Password != ""
}

// NormalizeAndValidate returns a normalized copy and the problems found.
// Missing mail or Bluesky settings only warn; the store is mandatory.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trim := func(s *string) { *s = strings.TrimSpace(*s) }

	// ---- store ----
	s := &out.Store
	trim(&s.Driver)
	trim(&s.Host)
	trim(&s.User)
	trim(&s.Catalog)
	trim(&s.Path)
	s.Driver = strings.ToLower(s.Driver)
	if s.Driver == "" {
		s.Driver = "mysql"
	}
	if s.Driver == "postgresql" {
		s.Driver = "postgres"
	}

	switch s.Driver {
	case "mysql", "postgres":
		if s.Host == "" {
			res.addErr("store.host is required for driver %s (DB_HOST / MYSQL_HOST)", s.Driver)
		}
		if s.User == "" {
			res.addErr("store.user is required for driver %s (DB_USER / MYSQL_USER)", s.Driver)
		}
		if s.Catalog == "" {
			res.addErr("store.database is required for driver %s", s.Driver)
		}
		if s.Port < 0 || s.Port > 65535 {
			res.addErr("store.port must be 0..65535")
		}
	case "sqlite":
		if s.Path == "" {
			res.addErr("store.path is required for driver sqlite (DB_PATH)")
		}
	default:
		res.addErr("store.driver %q is not supported (mysql, postgres, sqlite)", s.Driver)
	}

	if s.PoolSize <= 0 {
		s.PoolSize = 10
	} else if s.PoolSize > maxPoolSize {
		res.addWarn("store.connection_limit %d is above %d; clamped.", s.PoolSize, maxPoolSize)
		s.PoolSize = maxPoolSize
	}
	if s.QueryTimeout <= 0 {
		s.QueryTimeout = 10 * time.Second
	}
	if s.ConnMaxLifetime <= 0 {
		s.ConnMaxLifetime = 5 * time.Minute
	}

	// ---- email ----
	e := &out.Email
	trim(&e.Address)
	trim(&e.Username)
	trim(&e.IMAPHost)
	trim(&e.SMTPHost)
	trim(&e.Mailbox)
	if e.Username == "" {
		e.Username = e.Address
	}
	if e.Mailbox == "" {
		e.Mailbox = "INBOX"
	}
	if e.IMAPPort == 0 {
		e.IMAPPort = 993
	}
	if e.SMTPPort == 0 {
		e.SMTPPort = 465
	}
	if e.MaxMessages <= 0 {
		e.MaxMessages = 50
	}
	if e.Timeout <= 0 {
		e.Timeout = 2 * time.Minute
	}
	if e.IMAPPort < 0 || e.IMAPPort > 65535 {
		res.addErr("email.imap_port must be 1..65535")
	}
	if e.SMTPPort < 0 || e.SMTPPort > 65535 {
		res.addErr("email.smtp_port must be 1..65535")
	}
	if e.IMAPHost == "" {
		res.addWarn("email.imap_host is empty; inbox checks are disabled.")
	} else if e.Username == "" || e.Password == "" {
		res.addWarn("email.imap_host is set but username/password are missing; inbox checks are disabled.")
	}
	if out.Agent.SendReplies && !out.OutboundEnabled() {
		res.addWarn("agent.send_replies is true but SMTP is not configured; replies will be recorded as failed.")
	}
	if e.SMTPHost != "" && e.Address == "" {
		res.addWarn("email.address is empty; outbound From header will use the username.")
	}

	// ---- bluesky ----
	b := &out.Bluesky
	trim(&b.Identifier)
	trim(&b.Service)
	if b.Service == "" {
		b.Service = "https://bsky.social"
	}
	if u, err := url.Parse(b.Service); err != nil || u.Scheme == "" || u.Host == "" {
		res.addErr("bluesky.service %q is not an absolute URL", b.Service)
	}
	if b.Timeout <= 0 {
		b.Timeout = 15 * time.Second
	}
	if b.RequestsPerSecond <= 0 {
		b.RequestsPerSecond = 1
	}
	if b.Burst <= 0 {
		b.Burst = 3
	}
	if !out.BlueskyEnabled() {
		res.addWarn("bluesky identifier/password are missing; posts will be recorded as failed.")
	}

	// ---- agent ----
	trim(&out.Agent.DataDir)
	if out.Agent.DataDir == "" {
		out.Agent.DataDir = "."
	}
	if strings.TrimSpace(out.Agent.CreatedBy) == "" {
		out.Agent.CreatedBy = "autonomous"
	}
	if out.Agent.Interval <= 0 {
		res.addErr("agent.interval must be > 0")
	} else if out.Agent.Interval < 5*time.Minute {
		res.addWarn("agent.interval is very low (%s) and may hit Bluesky rate limits.", out.Agent.Interval)
	}

	// ---- replies ----
	for i, r := range out.Replies.Rules {
		if strings.TrimSpace(r.Response) == "" {
			res.addErr("replies.rules[%d].response is required", i)
		}
		if len(r.Any) == 0 {
			res.addErr("replies.rules[%d].any must have at least 1 term", i)
		}
		for j, term := range r.Any {
			if strings.TrimSpace(term) == "" {
				res.addErr("replies.rules[%d].any[%d] cannot be empty", i, j)
			}
		}
	}

	// ---- metrics ----
	if u := strings.TrimSpace(out.Metrics.PushgatewayURL); u != "" {
		if pu, err := url.Parse(u); err != nil || pu.Scheme == "" || pu.Host == "" {
			res.addErr("metrics.pushgateway_url %q is not an absolute URL", u)
		}
	}
	if strings.TrimSpace(out.Metrics.Job) == "" {
		out.Metrics.Job = "autonomous_agent"
	}

	return out, res
}
