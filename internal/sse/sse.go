// Package sse writes server-sent events to a single consumer. Progress
// streams here are one producer, one subscriber, so there is no broker:
// the handler drains a channel and the connection closes when the
// channel does.
package sse

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pagemill/pagemill/internal/logger"
)

const (
	headerContentType     = "Content-Type"
	headerCacheControl    = "Cache-Control"
	headerConnection      = "Connection"
	headerXAccelBuffering = "X-Accel-Buffering"

	sseContentType = "text/event-stream"

	// DefaultHeartbeatInterval keeps proxies from timing out quiet phases.
	DefaultHeartbeatInterval = 15 * time.Second
)

// Event is one server-sent event. Data must already be serialized JSON.
type Event struct {
	Type string
	Data []byte
}

// SetHeaders sets the standard SSE response headers.
func SetHeaders(w gin.ResponseWriter) {
	w.Header().Set(headerContentType, sseContentType)
	w.Header().Set(headerCacheControl, "no-cache")
	w.Header().Set(headerConnection, "keep-alive")
	w.Header().Set(headerXAccelBuffering, "no")
}

// WriteEvent writes one event and flushes it to the client.
func WriteEvent(w gin.ResponseWriter, event Event) error {
	if event.Type != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", event.Type); err != nil {
			return fmt.Errorf("write event type: %w", err)
		}
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", event.Data); err != nil {
		return fmt.Errorf("write event data: %w", err)
	}
	w.Flush()
	return nil
}

// WriteHeartbeat writes an SSE comment to keep the connection alive.
func WriteHeartbeat(w gin.ResponseWriter) error {
	if _, err := fmt.Fprintf(w, ": heartbeat %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("write heartbeat: %w", err)
	}
	w.Flush()
	return nil
}

// Stream drains events into the response until the channel closes or the
// client goes away. The producer observes client disconnects through the
// request context, not through this loop.
func Stream(c *gin.Context, events <-chan Event, log logger.Logger) {
	SetHeaders(c.Writer)
	c.Writer.Flush()

	ticker := time.NewTicker(DefaultHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := WriteEvent(c.Writer, event); err != nil {
				log.Debug("sse write failed, client likely disconnected",
					logger.Error(err))
				return
			}
		case <-ticker.C:
			if err := WriteHeartbeat(c.Writer); err != nil {
				log.Debug("sse heartbeat failed, client likely disconnected")
				return
			}
		case <-c.Request.Context().Done():
			return
		}
	}
}
