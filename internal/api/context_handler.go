package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pagemill/pagemill/internal/logger"
	"github.com/pagemill/pagemill/internal/sse"
)

// acquireRequest starts a context acquisition run.
type acquireRequest struct {
	TargetURL string     `binding:"required" json:"target_url"`
	ScopeID   *uuid.UUID `json:"scope_id"`
}

// acquireContext handles POST /api/v1/context/acquire. The response is a
// server-sent event stream of progress records, terminated by a complete
// or error record. Closing the connection aborts the run.
func (r *Router) acquireContext(c *gin.Context) {
	var req acquireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target_url is required"})
		return
	}

	ownerID := actingOwner(c)

	release, err := r.deps.Guard.Acquire(c.Request.Context(), ownerID, req.ScopeID)
	if err != nil {
		respondError(c, err)
		return
	}
	defer release()

	events := r.deps.Orchestrator.Acquire(c.Request.Context(), req.TargetURL, ownerID, req.ScopeID)

	out := make(chan sse.Event)
	go func() {
		defer close(out)
		for event := range events {
			data, marshalErr := json.Marshal(event)
			if marshalErr != nil {
				r.logger.Error("failed to marshal progress event", logger.Error(marshalErr))
				continue
			}
			select {
			case out <- sse.Event{Type: "progress", Data: data}:
			case <-c.Request.Context().Done():
				// Keep draining so the producer can reach its terminal
				// event and close the stream.
			}
		}
	}()

	sse.Stream(c, out, r.logger)
}

// getContext handles GET /api/v1/context. Returns whatever fields have
// been acquired so far for the owner and optional scope; an incomplete
// context is still a consistent read.
func (r *Router) getContext(c *gin.Context) {
	scopeID, ok := parseScopeID(c)
	if !ok {
		return
	}

	decoded, err := r.deps.Contexts.ListDecodedFields(c.Request.Context(), actingOwner(c), scopeID)
	if err != nil {
		r.logger.Error("failed to list context fields", logger.Error(err))
		respondError(c, err)
		return
	}

	fields := make([]gin.H, 0, len(decoded))
	for _, d := range decoded {
		fields = append(fields, gin.H{
			"kind":       d.Field.Kind,
			"payload":    d.Payload,
			"updated_at": d.Field.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"fields": fields,
		"count":  len(fields),
	})
}
