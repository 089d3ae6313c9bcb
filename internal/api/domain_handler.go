package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pagemill/pagemill/internal/models"
)

// listDomains handles GET /api/v1/domains
func (r *Router) listDomains(c *gin.Context) {
	domains, err := r.deps.Domains.ListDomains(c.Request.Context(), actingOwner(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"domains": domains,
		"count":   len(domains),
	})
}

// createDomain handles POST /api/v1/domains
func (r *Router) createDomain(c *gin.Context) {
	var req models.DomainCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	domain, err := r.deps.Domains.CreateDomain(c.Request.Context(), actingOwner(c), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, domain)
}

// verifyDomain handles POST /api/v1/domains/:id/verify. Verification
// itself (DNS challenge) happens out of band; this records the outcome.
func (r *Router) verifyDomain(c *gin.Context) {
	domain, ok := r.ownedDomain(c)
	if !ok {
		return
	}

	verified, err := r.deps.Domains.MarkDomainVerified(c.Request.Context(), domain.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, verified)
}

// listSubdirectories handles GET /api/v1/domains/:id/subdirectories
func (r *Router) listSubdirectories(c *gin.Context) {
	domain, ok := r.ownedDomain(c)
	if !ok {
		return
	}

	subdirs, err := r.deps.Domains.ListSubdirectories(c.Request.Context(), domain.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subdirectories": subdirs,
		"count":          len(subdirs),
	})
}

type createSubdirectoryRequest struct {
	Path string `binding:"required" json:"path"`
}

// createSubdirectory handles POST /api/v1/domains/:id/subdirectories
func (r *Router) createSubdirectory(c *gin.Context) {
	domain, ok := r.ownedDomain(c)
	if !ok {
		return
	}

	var req createSubdirectoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	subdir, err := r.deps.Domains.CreateSubdirectory(c.Request.Context(), domain.ID, req.Path)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, subdir)
}

// ownedDomain resolves the :id domain and confirms ownership.
func (r *Router) ownedDomain(c *gin.Context) (*models.Domain, bool) {
	id, ok := parseUUID(c, "id", "domain")
	if !ok {
		return nil, false
	}

	domain, err := r.deps.Domains.GetDomainByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if domain.OwnerID != actingOwner(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "domain does not belong to the acting account"})
		return nil, false
	}

	return domain, true
}
