package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pagemill/pagemill/internal/models"
)

type upsertSectionRequest struct {
	SectionType models.SectionType `binding:"required" json:"section_type"`
	HTML        string             `binding:"required" json:"html"`
	Metadata    json.RawMessage    `json:"metadata"`
}

// upsertSection handles PUT /api/v1/items/:id/sections/:section_id.
// Re-submitting the same section_id replaces the stored fragment.
func (r *Router) upsertSection(c *gin.Context) {
	itemID, ok := r.ownedItemID(c)
	if !ok {
		return
	}

	var req upsertSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "section_type and html are required"})
		return
	}

	section, err := r.deps.Sections.Upsert(c.Request.Context(), itemID, c.Param("section_id"), req.SectionType, req.HTML, req.Metadata)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, section)
}

// listSections handles GET /api/v1/items/:id/sections. Sections come
// back in canonical order regardless of submission order.
func (r *Router) listSections(c *gin.Context) {
	itemID, ok := r.ownedItemID(c)
	if !ok {
		return
	}

	stored, err := r.deps.Sections.List(c.Request.Context(), itemID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sections": stored,
		"count":    len(stored),
	})
}

// clearSections handles DELETE /api/v1/items/:id/sections. Storage
// reclamation after assembly; the assembled document is unaffected.
func (r *Router) clearSections(c *gin.Context) {
	itemID, ok := r.ownedItemID(c)
	if !ok {
		return
	}

	removed, err := r.deps.Sections.Clear(c.Request.Context(), itemID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
