package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pagemill/pagemill/internal/logger"
	"github.com/pagemill/pagemill/internal/models"
)

type createItemRequest struct {
	Slug  string `binding:"required" json:"slug"`
	Title string `binding:"required" json:"title"`
}

// createItem handles POST /api/v1/items
func (r *Router) createItem(c *gin.Context) {
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slug and title are required"})
		return
	}

	item, err := r.deps.Items.Create(c.Request.Context(), actingOwner(c), req.Slug, req.Title)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

// getItem handles GET /api/v1/items/:id
func (r *Router) getItem(c *gin.Context) {
	id, ok := parseUUID(c, "id", "content item")
	if !ok {
		return
	}

	item, err := r.deps.Items.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !r.ownsItem(c, item) {
		return
	}

	c.JSON(http.StatusOK, item)
}

// markReady handles POST /api/v1/items/:id/ready
func (r *Router) markReady(c *gin.Context) {
	id, ok := r.ownedItemID(c)
	if !ok {
		return
	}

	item, err := r.deps.Items.MarkReady(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

type assembleRequest struct {
	RequiredTypes    []models.SectionType `binding:"required" json:"required_types"`
	RecommendedTypes []models.SectionType `json:"recommended_types"`
}

// assembleItem handles POST /api/v1/items/:id/assemble. A refused
// assembly is not an error at the transport level: the response names
// the missing section types.
func (r *Router) assembleItem(c *gin.Context) {
	id, ok := r.ownedItemID(c)
	if !ok {
		return
	}

	var req assembleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "required_types is required"})
		return
	}

	result, err := r.deps.Assembler.Assemble(c.Request.Context(), id, req.RequiredTypes, req.RecommendedTypes)
	if err != nil {
		respondError(c, err)
		return
	}

	if !result.Success {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

type publishRequest struct {
	DomainID uuid.UUID `binding:"required" json:"domain_id"`
	Path     string    `json:"path"`
	Slug     string    `json:"slug"`
}

// publishItem handles POST /api/v1/items/:id/publish
func (r *Router) publishItem(c *gin.Context) {
	id, ok := parseUUID(c, "id", "content item")
	if !ok {
		return
	}

	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "domain_id is required"})
		return
	}

	result, err := r.deps.Resolver.Publish(c.Request.Context(), id, req.DomainID, req.Path, req.Slug, actingOwner(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// unpublishItem handles POST /api/v1/items/:id/unpublish
func (r *Router) unpublishItem(c *gin.Context) {
	id, ok := parseUUID(c, "id", "content item")
	if !ok {
		return
	}

	item, err := r.deps.Resolver.Unpublish(c.Request.Context(), id, actingOwner(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// ownedItemID parses the item ID and confirms the acting owner owns it.
func (r *Router) ownedItemID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := parseUUID(c, "id", "content item")
	if !ok {
		return uuid.Nil, false
	}

	item, err := r.deps.Items.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return uuid.Nil, false
	}
	if !r.ownsItem(c, item) {
		return uuid.Nil, false
	}

	return id, true
}

func (r *Router) ownsItem(c *gin.Context, item *models.ContentItem) bool {
	if item.OwnerID != actingOwner(c) {
		r.logger.Warn("cross-account item access rejected",
			logger.String("item_id", item.ID.String()))
		c.JSON(http.StatusForbidden, gin.H{"error": "content item does not belong to the acting account"})
		return false
	}
	return true
}
