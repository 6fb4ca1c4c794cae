package mailbox

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/emersion/go-message/mail"
)

// implicitTLSPort is the submissions port; every other port uses STARTTLS when offered.
const implicitTLSPort = 465

type outgoing struct {
	id   string
	from string
	to   string
	body []byte
}

func (g *Gateway) compose(to, subject, text string) (*outgoing, error) {
	rcpt, err := mail.ParseAddress(to)
	if err != nil {
		return nil, fmt.Errorf("parse recipient %q: %w", to, err)
	}

	var h mail.Header
	h.SetDate(g.now())
	h.SetAddressList("From", []*mail.Address{{Name: g.cfg.FromName, Address: g.cfg.Address}})
	h.SetAddressList("To", []*mail.Address{rcpt})
	h.SetSubject(sanitizeHeader(subject))
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generate message id: %w", err)
	}
	id, _ := h.MessageID()
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create message writer: %w", err)
	}
	if _, err := io.WriteString(w, text); err != nil {
		return nil, fmt.Errorf("write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close message writer: %w", err)
	}

	return &outgoing{id: id, from: g.cfg.Address, to: rcpt.Address, body: buf.Bytes()}, nil
}

func (g *Gateway) deliver(ctx context.Context, msg *outgoing) error {
	host := g.cfg.SMTPHost
	addr := net.JoinHostPort(host, strconv.Itoa(g.cfg.SMTPPort))
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}
	netDialer := &net.Dialer{Timeout: g.cfg.Timeout}

	var (
		conn net.Conn
		err  error
	)
	if g.cfg.SMTPPort == implicitTLSPort {
		d := &tls.Dialer{NetDialer: netDialer, Config: tlsCfg}
		conn, err = d.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = netDialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer func() { _ = c.Close() }()

	if g.cfg.SMTPPort != implicitTLSPort {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(tlsCfg); err != nil {
				return fmt.Errorf("starttls: %w", err)
			}
		}
	}
	if ok, _ := c.Extension("AUTH"); ok && g.cfg.Password != "" {
		if err := c.Auth(smtp.PlainAuth("", g.cfg.Username, g.cfg.Password, host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := c.Mail(msg.from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := c.Rcpt(msg.to); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg.body); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return c.Quit()
}

func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return s
}
