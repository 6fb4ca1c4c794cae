package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"autonomous-agent/internal/domain"
)

type fakeMailbox struct {
	msgs    []domain.InboundMessage
	sendErr error
	sent    []string
}

func (f *fakeMailbox) CheckUnseenMessages(context.Context) []domain.InboundMessage {
	return f.msgs
}

func (f *fakeMailbox) Send(_ context.Context, to, subject, _ string) domain.SendResult {
	f.sent = append(f.sent, to+"|"+subject)
	if f.sendErr != nil {
		return domain.SendResult{Err: f.sendErr}
	}
	return domain.SendResult{Success: true, MessageID: "msg-1@agent"}
}

type fakePoster struct {
	res   domain.PostResult
	calls int
}

func (f *fakePoster) Publish(context.Context, string) domain.PostResult {
	f.calls++
	return f.res
}

type fakeGenerator struct {
	thought        string
	panicOnThought bool
}

func (f fakeGenerator) Thought() string {
	if f.panicOnThought {
		panic("generator exploded")
	}
	return f.thought
}

func (f fakeGenerator) Reply(input string) string { return "reply to " + input }

type recordedEvent struct {
	Type string
	Data map[string]any
}

// recordingStore remembers every call in order.
type recordingStore struct {
	mu       sync.Mutex
	calls    []string
	events   []recordedEvent
	updates  []domain.NewContentUpdate
	closed   int
	initErr  error
	trackErr error
}

func (s *recordingStore) Initialize(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "initialize")
	return s.initErr
}

func (s *recordingStore) AddContentUpdate(_ context.Context, u domain.NewContentUpdate) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "content_update")
	s.updates = append(s.updates, u)
	return int64(len(s.updates)), nil
}

func (s *recordingStore) TrackAnalytics(_ context.Context, eventType string, data map[string]any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, eventType)
	if s.trackErr != nil {
		return 0, s.trackErr
	}
	s.events = append(s.events, recordedEvent{Type: eventType, Data: data})
	return int64(len(s.events)), nil
}

func (s *recordingStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "close")
	s.closed++
	return nil
}

type countingMetrics struct {
	mu       sync.Mutex
	emails   int
	replies  map[bool]int
	posts    map[bool]int
	outcomes map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{replies: map[bool]int{}, posts: map[bool]int{}, outcomes: map[string]int{}}
}

func (m *countingMetrics) EmailProcessed() {
	m.mu.Lock()
	m.emails++
	m.mu.Unlock()
}

func (m *countingMetrics) ReplyResult(ok bool) {
	m.mu.Lock()
	m.replies[ok]++
	m.mu.Unlock()
}

func (m *countingMetrics) PostResult(ok bool) {
	m.mu.Lock()
	m.posts[ok]++
	m.mu.Unlock()
}

func (m *countingMetrics) CycleResult(outcome string, _ time.Duration) {
	m.mu.Lock()
	m.outcomes[outcome]++
	m.mu.Unlock()
}

var errBoom = errors.New("boom")
