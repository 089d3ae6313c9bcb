package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pagemill/pagemill/internal/acquire"
	"github.com/pagemill/pagemill/internal/models"
)

// parseUUID parses a UUID from a gin.Context parameter
func parseUUID(c *gin.Context, paramName, entityType string) (uuid.UUID, bool) {
	idParam := c.Param(paramName)
	id, err := uuid.Parse(idParam)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + entityType + " ID format",
		})
		return uuid.Nil, false
	}
	return id, true
}

// parseScopeID parses an optional scope_id query parameter. An absent
// parameter is the account-global scope.
func parseScopeID(c *gin.Context) (*uuid.UUID, bool) {
	raw := c.Query("scope_id")
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid scope_id format"})
		return nil, false
	}
	return &id, true
}

// respondError maps service errors to HTTP responses. Typed errors carry
// their detail into the body so callers can act on them.
func respondError(c *gin.Context, err error) {
	var (
		validation *models.ValidationError
		state      *models.StateConflictError
		ownership  *models.OwnershipError
		conflict   *models.ConflictError
	)

	switch {
	case errors.As(err, &validation):
		body := gin.H{"error": validation.Error()}
		if len(validation.MissingRequired) > 0 {
			body["missing_required"] = validation.MissingRequired
		}
		if len(validation.MissingRecommended) > 0 {
			body["missing_recommended"] = validation.MissingRecommended
		}
		c.JSON(http.StatusUnprocessableEntity, body)

	case errors.As(err, &state):
		c.JSON(http.StatusConflict, gin.H{
			"error":            state.Error(),
			"current_status":   state.Current,
			"requested_status": state.Requested,
		})

	case errors.As(err, &ownership):
		c.JSON(http.StatusForbidden, gin.H{"error": ownership.Error()})

	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":  conflict.Error(),
			"slug":   conflict.Slug,
			"path":   conflict.Path,
			"domain": conflict.Domain,
		})

	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "resource not found"})

	case errors.Is(err, models.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "resource already exists"})

	case errors.Is(err, models.ErrUnknownSectionType),
		errors.Is(err, models.ErrUnknownFieldKind):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})

	case errors.Is(err, acquire.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
