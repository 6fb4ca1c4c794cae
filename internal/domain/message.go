package domain

import "time"

// InboundMessage is an unseen email handed to the orchestrator once.
type InboundMessage struct {
	MessageID   string
	From        string // display form, "Unknown" when the header is missing
	FromAddress string // bare sender address, used for replies
	Subject     string
	Text        string // empty when the message had no readable body
	Date        time.Time
}

// Body returns the text used for reply generation, falling back to the subject.
func (m InboundMessage) Body() string {
	if m.Text != "" {
		return m.Text
	}
	return m.Subject
}

// Snippet returns at most n characters of the text.
func (m InboundMessage) Snippet(n int) string {
	r := []rune(m.Text)
	if n < 0 || len(r) <= n {
		return m.Text
	}
	return string(r[:n])
}

// SendResult is what the mailbox reports for an outbound message.
type SendResult struct {
	Success   bool
	MessageID string
	Err       error
}
