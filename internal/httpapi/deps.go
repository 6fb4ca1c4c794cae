package httpapi

import (
	"context"

	"github.com/sirupsen/logrus"

	"autonomous-agent/internal/agent"
	"autonomous-agent/internal/domain"
	"autonomous-agent/internal/events"
	"autonomous-agent/internal/metrics"
)

// Reader is the read side of the persistence store.
type Reader interface {
	Initialize(ctx context.Context) error
	Ping(ctx context.Context) error
	GetContentUpdates(ctx context.Context, limit int) ([]domain.ContentUpdate, error)
	GetAnalytics(ctx context.Context, eventType string, limit int) ([]domain.AnalyticsEvent, error)
}

type Deps struct {
	Store   Reader
	Hub     *events.Hub
	Metrics *metrics.Collector
	Logger  *logrus.Logger

	// Status reports the last cycle outcome.
	Status func() agent.StatusSnapshot
}
