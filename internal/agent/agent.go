// Package agent runs the check-mail, post, record cycle.
package agent

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"autonomous-agent/internal/domain"
	"autonomous-agent/internal/events"
	"autonomous-agent/internal/logging"
)

var (
	// ErrCycleInProgress means another cycle holds the run lock.
	ErrCycleInProgress = errors.New("cycle already in progress")
	// ErrPanic wraps a panic recovered from a cycle stage.
	ErrPanic = errors.New("cycle panicked")
)

type Mailbox interface {
	CheckUnseenMessages(ctx context.Context) []domain.InboundMessage
	Send(ctx context.Context, to, subject, text string) domain.SendResult
}

type Poster interface {
	Publish(ctx context.Context, text string) domain.PostResult
}

type Generator interface {
	Thought() string
	Reply(input string) string
}

type Store interface {
	Initialize(ctx context.Context) error
	AddContentUpdate(ctx context.Context, u domain.NewContentUpdate) (int64, error)
	TrackAnalytics(ctx context.Context, eventType string, data map[string]any) (int64, error)
	Close() error
}

// Metrics receives per-cycle counts. Implemented by internal/metrics.
type Metrics interface {
	EmailProcessed()
	ReplyResult(ok bool)
	PostResult(ok bool)
	CycleResult(outcome string, d time.Duration)
}

// Cycle outcomes as reported to Metrics.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

type Config struct {
	SendReplies bool
	CreatedBy   string
	// LockPath is the cross-process run lock file. Empty disables it.
	LockPath string
}

type Option func(*Agent)

func WithLogger(logger *logrus.Logger) Option {
	return func(a *Agent) { a.log = logging.Component(logger, "agent") }
}

func WithMetrics(m Metrics) Option {
	return func(a *Agent) { a.metrics = m }
}

func WithHub(h *events.Hub) Option {
	return func(a *Agent) { a.hub = h }
}

func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

type Agent struct {
	cfg     Config
	mail    Mailbox
	poster  Poster
	gen     Generator
	store   Store
	log     *logrus.Entry
	metrics Metrics
	hub     *events.Hub
	now     func() time.Time

	lock   runLock
	status Status
}

func New(cfg Config, mail Mailbox, poster Poster, gen Generator, store Store, opts ...Option) *Agent {
	if cfg.CreatedBy == "" {
		cfg.CreatedBy = domain.DefaultCreatedBy
	}
	a := &Agent{
		cfg:     cfg,
		mail:    mail,
		poster:  poster,
		gen:     gen,
		store:   store,
		log:     logging.Component(nil, "agent"),
		metrics: noopMetrics{},
		now:     time.Now,
		lock:    runLock{path: cfg.LockPath},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Status returns the last cycle outcome.
func (a *Agent) Status() StatusSnapshot {
	return a.status.Snapshot()
}

type noopMetrics struct{}

func (noopMetrics) EmailProcessed()                   {}
func (noopMetrics) ReplyResult(bool)                  {}
func (noopMetrics) PostResult(bool)                   {}
func (noopMetrics) CycleResult(string, time.Duration) {}
