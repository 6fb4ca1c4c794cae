package mailbox

import (
	"context"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autonomous-agent/internal/logging"
)

func TestCheckUnseenMessagesDisabled(t *testing.T) {
	g := New(Config{}, WithLogger(logging.Discard()))
	assert.False(t, g.InboundEnabled())

	msgs := g.CheckUnseenMessages(context.Background())
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func TestCheckUnseenMessagesDialFailureIsSoft(t *testing.T) {
	g := New(Config{
		IMAPHost: "127.0.0.1",
		IMAPPort: 1,
		Address:  "agent@example.com",
		Password: "secret",
		Timeout:  2 * time.Second,
	}, WithLogger(logging.Discard()))
	require.True(t, g.InboundEnabled())

	msgs := g.CheckUnseenMessages(context.Background())
	assert.Empty(t, msgs)
}

func TestUsernameDefaultsToAddress(t *testing.T) {
	g := New(Config{IMAPHost: "imap.example.com", Address: "agent@example.com", Password: "pw"})
	assert.Equal(t, "agent@example.com", g.cfg.Username)
	assert.Equal(t, "INBOX", g.cfg.Mailbox)
	assert.Equal(t, 50, g.cfg.MaxMessages)
}

func TestParsePlainMessage(t *testing.T) {
	raw := "From: Alice Example <alice@example.com>\r\n" +
		"To: agent@example.com\r\n" +
		"Subject: Status please\r\n" +
		"Date: Mon, 02 Mar 2026 10:00:00 +0000\r\n" +
		"Message-ID: <abc@example.com>\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"What's your status?\r\n"

	msg, err := parseMessage([]byte(raw), nil)
	require.NoError(t, err)
	assert.Equal(t, "Alice Example <alice@example.com>", msg.From)
	assert.Equal(t, "alice@example.com", msg.FromAddress)
	assert.Equal(t, "Status please", msg.Subject)
	assert.Equal(t, "abc@example.com", msg.MessageID)
	assert.Equal(t, "What's your status?", msg.Text)
	assert.Equal(t, 2026, msg.Date.Year())
}

func TestParseMultipartPrefersPlainText(t *testing.T) {
	raw := "From: bob@example.com\r\n" +
		"Subject: hi\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=XYZ\r\n" +
		"\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>html version</p>\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"plain version\r\n" +
		"--XYZ--\r\n"

	msg, err := parseMessage([]byte(raw), nil)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", msg.From)
	assert.Equal(t, "plain version", msg.Text)
}

func TestParseHTMLOnly(t *testing.T) {
	raw := "From: carol@example.com\r\n" +
		"Subject: help\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<html><head><style>p{color:red}</style></head><body><p>Need   help</p><p>please</p></body></html>\r\n"

	msg, err := parseMessage([]byte(raw), nil)
	require.NoError(t, err)
	assert.Equal(t, "Need help please", msg.Text)
}

func TestParseFallsBackToEnvelope(t *testing.T) {
	env := &imap.Envelope{
		Subject:   "from envelope",
		Date:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		MessageID: "env@example.com",
		From:      []imap.Address{{Name: "Dave", Mailbox: "dave", Host: "example.com"}},
	}

	msg, err := parseMessage([]byte("\r\nbody only\r\n"), env)
	require.NoError(t, err)
	assert.Equal(t, "from envelope", msg.Subject)
	assert.Equal(t, "Dave <dave@example.com>", msg.From)
	assert.Equal(t, "dave@example.com", msg.FromAddress)
	assert.Equal(t, "env@example.com", msg.MessageID)
	assert.Equal(t, "body only", msg.Text)
}

func TestParseUnknownSender(t *testing.T) {
	msg, err := parseMessage([]byte("Subject: anonymous\r\n\r\nhello\r\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Unknown", msg.From)
	assert.Empty(t, msg.FromAddress)

	_, err = parseMessage(nil, nil)
	require.Error(t, err)
}

func TestSendNotConfigured(t *testing.T) {
	g := New(Config{}, WithLogger(logging.Discard()))
	res := g.Send(context.Background(), "bob@example.com", "Re: hi", "hello")
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrNotConfigured)
}

func TestSendBadRecipient(t *testing.T) {
	g := New(Config{SMTPHost: "127.0.0.1", Address: "agent@example.com"}, WithLogger(logging.Discard()))
	res := g.Send(context.Background(), "not an address", "Re: hi", "hello")
	assert.False(t, res.Success)
	assert.Error(t, res.Err)
}

// fakeSMTP accepts one session without TLS or AUTH and reports what it saw.
func fakeSMTP(t *testing.T) (int, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	seen := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		tp := textproto.NewConn(conn)
		var got strings.Builder
		_ = tp.PrintfLine("220 fake ESMTP")
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			verb := strings.ToUpper(line)
			switch {
			case strings.HasPrefix(verb, "EHLO"), strings.HasPrefix(verb, "HELO"):
				_ = tp.PrintfLine("250 fake")
			case strings.HasPrefix(verb, "MAIL FROM"), strings.HasPrefix(verb, "RCPT TO"):
				got.WriteString(line + "\n")
				_ = tp.PrintfLine("250 OK")
			case verb == "DATA":
				_ = tp.PrintfLine("354 go ahead")
				lines, err := tp.ReadDotLines()
				if err != nil {
					return
				}
				got.WriteString(strings.Join(lines, "\n"))
				_ = tp.PrintfLine("250 queued")
			case verb == "QUIT":
				_ = tp.PrintfLine("221 bye")
				seen <- got.String()
				return
			default:
				_ = tp.PrintfLine("250 OK")
			}
		}
	}()

	return ln.Addr().(*net.TCPAddr).Port, seen
}

func TestSendDeliversOverSMTP(t *testing.T) {
	port, seen := fakeSMTP(t)

	g := New(Config{
		Address:  "agent@example.com",
		FromName: "Autonomous A1",
		SMTPHost: "127.0.0.1",
		SMTPPort: port,
		Timeout:  5 * time.Second,
	}, WithLogger(logging.Discard()))
	require.True(t, g.OutboundEnabled())

	res := g.Send(context.Background(), "bob@example.com", "Re: hi", "Hello there!")
	require.NoError(t, res.Err)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.MessageID)

	select {
	case got := <-seen:
		assert.Contains(t, got, "MAIL FROM:<agent@example.com>")
		assert.Contains(t, got, "RCPT TO:<bob@example.com>")
		assert.Contains(t, got, "Subject: Re: hi")
		assert.Contains(t, got, "Autonomous A1")
		assert.Contains(t, got, "Hello there!")
	case <-time.After(5 * time.Second):
		t.Fatal("smtp server saw nothing")
	}
}
