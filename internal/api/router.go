package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pagemill/pagemill/internal/acquire"
	"github.com/pagemill/pagemill/internal/assemble"
	"github.com/pagemill/pagemill/internal/config"
	"github.com/pagemill/pagemill/internal/database"
	"github.com/pagemill/pagemill/internal/lifecycle"
	"github.com/pagemill/pagemill/internal/logger"
	"github.com/pagemill/pagemill/internal/models"
	"github.com/pagemill/pagemill/internal/publish"
	"github.com/pagemill/pagemill/internal/sections"
)

const (
	healthCheckTimeout   = 2 * time.Second
	healthStatusHealthy  = "healthy"
	healthStatusDegraded = "degraded"
	serviceVersion       = "1.0.0"
)

// ContextReader serves acquired site context fields. Satisfied by
// *database.Repository.
type ContextReader interface {
	ListDecodedFields(ctx context.Context, ownerID uuid.UUID, scopeID *uuid.UUID) ([]database.DecodedField, error)
}

// DomainRepo manages publish target domains. Satisfied by
// *database.Repository.
type DomainRepo interface {
	CreateDomain(ctx context.Context, ownerID uuid.UUID, name string) (*models.Domain, error)
	GetDomainByID(ctx context.Context, id uuid.UUID) (*models.Domain, error)
	ListDomains(ctx context.Context, ownerID uuid.UUID) ([]models.Domain, error)
	MarkDomainVerified(ctx context.Context, id uuid.UUID) (*models.Domain, error)
	CreateSubdirectory(ctx context.Context, domainID uuid.UUID, path string) (*models.Subdirectory, error)
	ListSubdirectories(ctx context.Context, domainID uuid.UUID) ([]models.Subdirectory, error)
}

// Deps bundles the services the router exposes.
type Deps struct {
	Contexts     ContextReader
	Domains      DomainRepo
	Items        *lifecycle.Service
	Sections     *sections.Store
	Assembler    *assemble.Assembler
	Resolver     *publish.Resolver
	Orchestrator *acquire.Orchestrator
	Guard        *acquire.RunGuard

	// Health probes. Nil probes are reported as healthy.
	PingDB    func(ctx context.Context) error
	PingRedis func(ctx context.Context) error

	Registry *prometheus.Registry
}

// Router holds the API dependencies.
type Router struct {
	cfg    *config.Config
	logger logger.Logger
	deps   Deps
}

// NewRouter creates a new API router.
func NewRouter(cfg *config.Config, log logger.Logger, deps Deps) *Router {
	return &Router{cfg: cfg, logger: log, deps: deps}
}

// SetupRoutes builds the gin engine with middleware and all routes.
func (r *Router) SetupRoutes() *gin.Engine {
	if !r.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestLogger(r.logger))

	router.GET("/health", r.healthCheck)
	if r.deps.Registry != nil {
		router.GET("/metrics", gin.WrapH(
			promhttp.HandlerFor(r.deps.Registry, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1")
	v1.Use(ownerMiddleware())

	// Context acquisition
	v1.POST("/context/acquire", r.acquireContext)
	v1.GET("/context", r.getContext)

	// Content items
	items := v1.Group("/items")
	items.POST("", r.createItem)
	items.GET("/:id", r.getItem)
	items.POST("/:id/ready", r.markReady)
	items.POST("/:id/assemble", r.assembleItem)
	items.POST("/:id/publish", r.publishItem)
	items.POST("/:id/unpublish", r.unpublishItem)

	// Sections
	items.PUT("/:id/sections/:section_id", r.upsertSection)
	items.GET("/:id/sections", r.listSections)
	items.DELETE("/:id/sections", r.clearSections)

	// Domains
	domains := v1.Group("/domains")
	domains.GET("", r.listDomains)
	domains.POST("", r.createDomain)
	domains.POST("/:id/verify", r.verifyDomain)
	domains.GET("/:id/subdirectories", r.listSubdirectories)
	domains.POST("/:id/subdirectories", r.createSubdirectory)

	return router
}

// healthCheck reports service health with DB and Redis probes.
func (r *Router) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	health := gin.H{
		"status":  healthStatusHealthy,
		"service": "pagemill",
		"version": serviceVersion,
	}

	dbConnected := true
	if r.deps.PingDB != nil {
		if err := r.deps.PingDB(ctx); err != nil {
			dbConnected = false
			health["status"] = healthStatusDegraded
		}
	}
	health["database"] = gin.H{"connected": dbConnected}

	redisConnected := true
	if r.deps.PingRedis != nil {
		if err := r.deps.PingRedis(ctx); err != nil {
			redisConnected = false
			health["status"] = healthStatusDegraded
		}
	}
	health["redis"] = gin.H{"connected": redisConnected}

	c.JSON(200, health)
}
