package mailbox

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"autonomous-agent/internal/domain"
)

// maxBodyBytes caps how much of a single part is read.
const maxBodyBytes = 1 << 20

// parseMessage turns a raw RFC 5322 message into an InboundMessage.
// The envelope, when present, fills in headers the raw message lacks.
func parseMessage(raw []byte, env *imap.Envelope) (domain.InboundMessage, error) {
	var msg domain.InboundMessage
	if len(raw) == 0 && env == nil {
		return msg, errors.New("empty message")
	}

	if len(raw) > 0 {
		mr, err := mail.CreateReader(bytes.NewReader(raw))
		if err != nil && !message.IsUnknownCharset(err) {
			return msg, fmt.Errorf("read message: %w", err)
		}
		if mr != nil {
			defer mr.Close()
			readHeader(&msg, mr.Header)
			msg.Text = readBody(mr)
		}
	}

	if env != nil {
		if msg.Subject == "" {
			msg.Subject = env.Subject
		}
		if msg.Date.IsZero() {
			msg.Date = env.Date
		}
		if msg.MessageID == "" {
			msg.MessageID = env.MessageID
		}
		if msg.FromAddress == "" && len(env.From) > 0 {
			msg.From, msg.FromAddress = envelopeFrom(env.From)
		}
	}
	if msg.From == "" {
		msg.From = unknownSender
	}
	return msg, nil
}

func readHeader(msg *domain.InboundMessage, h mail.Header) {
	if s, err := h.Subject(); err == nil {
		msg.Subject = s
	}
	if d, err := h.Date(); err == nil {
		msg.Date = d
	}
	if id, err := h.MessageID(); err == nil {
		msg.MessageID = id
	}
	if list, err := h.AddressList("From"); err == nil && len(list) > 0 {
		parts := make([]string, 0, len(list))
		for _, a := range list {
			parts = append(parts, formatAddress(a.Name, a.Address))
		}
		msg.From = strings.Join(parts, ", ")
		msg.FromAddress = list[0].Address
	}
}

func envelopeFrom(addrs []imap.Address) (display, address string) {
	parts := make([]string, 0, len(addrs))
	for i := range addrs {
		a := &addrs[i]
		addr := strings.TrimSpace(a.Addr())
		if addr == "" && strings.TrimSpace(a.Name) == "" {
			continue
		}
		if address == "" {
			address = addr
		}
		parts = append(parts, formatAddress(a.Name, addr))
	}
	return strings.Join(parts, ", "), address
}

func formatAddress(name, addr string) string {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return addr
	case addr == "":
		return name
	default:
		return fmt.Sprintf("%s <%s>", name, addr)
	}
}

// readBody prefers the first text/plain inline part and falls back to the
// first text/html part converted to text.
func readBody(mr *mail.Reader) string {
	var plain, html string
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if message.IsUnknownCharset(err) {
				continue
			}
			break
		}

		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, err := h.ContentType()
		if err != nil {
			ct = "text/plain"
		}
		b, err := io.ReadAll(io.LimitReader(p.Body, maxBodyBytes))
		if err != nil {
			continue
		}

		switch ct {
		case "text/plain":
			if plain == "" {
				plain = strings.TrimSpace(string(b))
			}
		case "text/html":
			if html == "" {
				html = string(b)
			}
		}
		if plain != "" {
			break
		}
	}
	if plain != "" {
		return plain
	}
	if html != "" {
		return htmlToText(html)
	}
	return ""
}

// blockElements get a line break after them so adjacent blocks don't run together.
const blockElements = "p, div, br, li, tr, td, h1, h2, h3, h4, h5, h6, blockquote"

// htmlToText drops script and style content and collapses whitespace.
func htmlToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, head").Remove()
	doc.Find(blockElements).Each(func(_ int, s *goquery.Selection) {
		s.AfterHtml("\n")
	})
	return strings.Join(strings.Fields(doc.Text()), " ")
}
