// Package httpapi is the daemon's read-only status API.
package httpapi

import (
	"github.com/gin-gonic/gin"

	"autonomous-agent/internal/logging"
)

func NewRouter(d Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	log := logging.Component(d.Logger, "httpapi")

	r := gin.New()
	r.Use(RequestID(), AccessLog(log), Recover(log))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
		r.GET("/metrics", d.Metrics.Handler())
	}

	h := handlers{d: d}
	r.GET("/health", h.health)
	r.GET("/status", h.status)
	if d.Store != nil {
		r.GET("/updates", h.updates)
		r.GET("/events", h.analytics)
	}
	if d.Hub != nil {
		r.GET("/stream", h.stream)
	}
	return r
}
