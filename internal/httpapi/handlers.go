package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"autonomous-agent/internal/events"
)

const (
	defaultLimit = 10
	maxLimit     = 500
	pingTimeout  = 2 * time.Second
)

type handlers struct {
	d Deps
}

func (h handlers) health(c *gin.Context) {
	body := gin.H{"ok": true, "database": "ok"}
	if h.d.Store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			body["ok"] = false
			body["database"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
	}
	c.JSON(http.StatusOK, body)
}

func (h handlers) ping(ctx context.Context) error {
	if err := h.d.Store.Initialize(ctx); err != nil {
		return err
	}
	return h.d.Store.Ping(ctx)
}

func (h handlers) status(c *gin.Context) {
	if h.d.Status == nil {
		writeError(c, http.StatusNotFound, "no_status", "status is not available")
		return
	}
	c.JSON(http.StatusOK, h.d.Status())
}

func (h handlers) updates(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	if err := h.d.Store.Initialize(c.Request.Context()); err != nil {
		writeError(c, http.StatusServiceUnavailable, "store_unavailable", err.Error())
		return
	}
	ups, err := h.d.Store.GetContentUpdates(c.Request.Context(), limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "query_failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"updates": ups})
}

func (h handlers) analytics(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	if err := h.d.Store.Initialize(c.Request.Context()); err != nil {
		writeError(c, http.StatusServiceUnavailable, "store_unavailable", err.Error())
		return
	}
	evs, err := h.d.Store.GetAnalytics(c.Request.Context(), c.Query("type"), limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "query_failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": evs})
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		writeError(c, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
		return 0, false
	}
	if n > maxLimit {
		n = maxLimit
	}
	return n, true
}

// stream pushes cycle events as server-sent events.
func (h handlers) stream(c *gin.Context) {
	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.d.Hub.Subscribe()
	defer h.d.Hub.Unsubscribe(ch)

	c.Status(http.StatusOK)
	fmt.Fprintf(w, "event: message\ndata: %s\n\n", events.MakeEvent(events.TypePing, "", gin.H{"request_id": requestIDFrom(c)}))
	w.Flush()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", msg)
			w.Flush()
		}
	}
}
