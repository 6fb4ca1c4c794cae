// Package mailbox reads unseen mail over IMAP and sends replies over SMTP.
package mailbox

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"autonomous-agent/internal/config"
	"autonomous-agent/internal/domain"
	"autonomous-agent/internal/logging"
)

// ErrNotConfigured is reported when the SMTP side is missing host or address.
var ErrNotConfigured = errors.New("mailbox: smtp not configured")

const (
	defaultMailbox     = "INBOX"
	defaultMaxMessages = 50
	defaultTimeout     = 2 * time.Minute
	unknownSender      = "Unknown"
)

type Config = config.EmailConfig

type Option func(*Gateway)

func WithLogger(logger *logrus.Logger) Option {
	return func(g *Gateway) { g.log = logging.Component(logger, "mailbox") }
}

// Gateway is the agent's mail capability. Failures are logged and reported as
// data, never returned as errors.
type Gateway struct {
	cfg Config
	log *logrus.Entry
	now func() time.Time
}

func New(cfg Config, opts ...Option) *Gateway {
	if cfg.Username == "" {
		cfg.Username = cfg.Address
	}
	if cfg.Mailbox == "" {
		cfg.Mailbox = defaultMailbox
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = defaultMaxMessages
	}
	if cfg.IMAPPort == 0 {
		cfg.IMAPPort = 993
	}
	if cfg.SMTPPort == 0 {
		cfg.SMTPPort = 465
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	g := &Gateway{
		cfg: cfg,
		log: logging.Component(nil, "mailbox"),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// InboundEnabled reports whether IMAP host and credentials are present.
func (g *Gateway) InboundEnabled() bool {
	return g.cfg.IMAPHost != "" && g.cfg.Username != "" && g.cfg.Password != ""
}

// OutboundEnabled reports whether an SMTP host and sender address are present.
func (g *Gateway) OutboundEnabled() bool {
	return g.cfg.SMTPHost != "" && g.cfg.Address != ""
}

// CheckUnseenMessages returns the unseen messages of the configured mailbox
// and marks them seen. It returns an empty slice when inbound mail is not
// configured or anything goes wrong on the way.
func (g *Gateway) CheckUnseenMessages(ctx context.Context) []domain.InboundMessage {
	if !g.InboundEnabled() {
		g.log.Info("email not configured, skipping inbox check")
		return []domain.InboundMessage{}
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	msgs, err := g.fetchUnseen(ctx)
	if err != nil {
		g.log.WithError(err).Error("error checking email")
		return []domain.InboundMessage{}
	}
	g.log.WithField("count", len(msgs)).Info("checked inbox")
	return msgs
}

// Send delivers a plain-text message. The outcome is reported in the result.
func (g *Gateway) Send(ctx context.Context, to, subject, text string) domain.SendResult {
	if !g.OutboundEnabled() {
		return domain.SendResult{Err: ErrNotConfigured}
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	msg, err := g.compose(to, subject, text)
	if err != nil {
		g.log.WithError(err).Error("compose email")
		return domain.SendResult{Err: err}
	}
	if err := g.deliver(ctx, msg); err != nil {
		g.log.WithError(err).WithField("to", to).Error("error sending email")
		return domain.SendResult{MessageID: msg.id, Err: err}
	}
	g.log.WithField("to", to).Info("email sent")
	return domain.SendResult{Success: true, MessageID: msg.id}
}
