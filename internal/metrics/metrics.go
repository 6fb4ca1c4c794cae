// Package metrics holds the agent's Prometheus collectors.
package metrics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "autonomous_agent"

func outcomeLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// Collector owns its registry so several can coexist in tests.
type Collector struct {
	registry *prometheus.Registry

	emailsProcessed prometheus.Counter
	replies         *prometheus.CounterVec
	posts           *prometheus.CounterVec
	cycles          *prometheus.CounterVec
	cycleDuration   prometheus.Histogram
	lastSuccess     prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers the agent metrics. withRuntime adds Go and process collectors,
// which only make sense for the long-running daemon.
func New(withRuntime bool) *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.emailsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "emails_processed_total",
		Help:      "Unseen emails handled by the agent",
	})
	c.replies = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "email_replies_total",
		Help:      "Reply send attempts by outcome",
	}, []string{"outcome"})
	c.posts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "posts_total",
		Help:      "Bluesky publish attempts by outcome",
	}, []string{"outcome"})
	c.cycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cycles_total",
		Help:      "Agent cycles by outcome",
	}, []string{"outcome"})
	c.cycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cycle_duration_seconds",
		Help:      "Duration of completed agent cycles",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})
	c.lastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful cycle",
	})
	c.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Status API requests",
	}, []string{"method", "endpoint", "status"})
	c.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Status API request duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	c.registry.MustRegister(
		c.emailsProcessed, c.replies, c.posts, c.cycles,
		c.cycleDuration, c.lastSuccess, c.httpRequests, c.httpDuration,
	)
	if withRuntime {
		c.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) EmailProcessed() { c.emailsProcessed.Inc() }

func (c *Collector) ReplyResult(ok bool) { c.replies.WithLabelValues(outcomeLabel(ok)).Inc() }

func (c *Collector) PostResult(ok bool) { c.posts.WithLabelValues(outcomeLabel(ok)).Inc() }

// CycleResult counts the cycle; durations are only observed for cycles that ran.
func (c *Collector) CycleResult(outcome string, d time.Duration) {
	c.cycles.WithLabelValues(outcome).Inc()
	if d > 0 {
		c.cycleDuration.Observe(d.Seconds())
	}
	if outcome == "success" {
		c.lastSuccess.SetToCurrentTime()
	}
}

// Middleware records status API requests.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		endpoint := ctx.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		method := ctx.Request.Method
		c.httpRequests.WithLabelValues(method, endpoint, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
	return func(ctx *gin.Context) {
		h.ServeHTTP(ctx.Writer, ctx.Request)
	}
}

// Push replaces the job's metrics on a Pushgateway. One-shot runs use it
// because nothing would be around to scrape them.
func (c *Collector) Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(c.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
