// Package publish gates the generated→published transition. Every gate
// fails with a typed error callers can act on; the storage layer's
// transactional re-check is the final arbiter of address uniqueness.
package publish

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pagemill/pagemill/internal/database"
	"github.com/pagemill/pagemill/internal/logger"
	"github.com/pagemill/pagemill/internal/metrics"
	"github.com/pagemill/pagemill/internal/models"
)

// ItemStore is the content item persistence surface. Satisfied by
// *database.Repository.
type ItemStore interface {
	GetItem(ctx context.Context, id uuid.UUID) (*models.ContentItem, error)
	FindPublishedConflict(ctx context.Context, itemID uuid.UUID, domain, path, slug string) (*models.ContentItem, error)
	PublishItem(ctx context.Context, p database.PublishParams) (*models.ContentItem, error)
	UnpublishItem(ctx context.Context, id uuid.UUID) (*models.ContentItem, error)
}

// DomainStore resolves publish target domains.
type DomainStore interface {
	GetDomainByID(ctx context.Context, id uuid.UUID) (*models.Domain, error)
}

// Reserver is the advisory address lease taken in front of the publish
// transaction.
type Reserver interface {
	Reserve(ctx context.Context, domain, path, slug string) (func(), error)
}

// Result is the outcome of a successful publish.
type Result struct {
	Item         *models.ContentItem `json:"item"`
	PublishedURL string              `json:"published_url"`
}

// Resolver runs the publish gate sequence: ownership, verification,
// path normalization, conflict search, then the atomic transition.
type Resolver struct {
	items       ItemStore
	domains     DomainStore
	reservation Reserver
	metrics     *metrics.Metrics
	logger      logger.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

func NewResolver(items ItemStore, domains DomainStore, reservation Reserver, m *metrics.Metrics, log logger.Logger) *Resolver {
	return &Resolver{
		items:       items,
		domains:     domains,
		reservation: reservation,
		metrics:     m,
		logger:      log,
		tracer:      otel.Tracer("publish-resolver"),
		now:         time.Now,
	}
}

// Publish takes a generated item live at (domain, path, slug). Gates run
// in order and the first failure short-circuits: domain ownership, domain
// verification, item ownership, path and slug shape, address conflict.
// Only then does the guarded transition run, re-checking the conflict
// inside its transaction.
func (r *Resolver) Publish(ctx context.Context, itemID, domainID uuid.UUID, path, slug string, actingOwnerID uuid.UUID) (*Result, error) {
	ctx, span := r.tracer.Start(ctx, "publish.resolve",
		trace.WithAttributes(
			attribute.String("item_id", itemID.String()),
			attribute.String("domain_id", domainID.String()),
			attribute.String("slug", slug),
		))
	defer span.End()

	domain, err := r.domains.GetDomainByID(ctx, domainID)
	if err != nil {
		return nil, err
	}
	if domain.OwnerID != actingOwnerID {
		r.metrics.Publishes.WithLabelValues("ownership").Inc()
		return nil, &models.OwnershipError{Reason: "domain does not belong to the acting account"}
	}
	if !domain.Verified {
		r.metrics.Publishes.WithLabelValues("ownership").Inc()
		return nil, &models.OwnershipError{Reason: "domain " + domain.Name + " is not verified"}
	}

	item, err := r.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != actingOwnerID {
		r.metrics.Publishes.WithLabelValues("ownership").Inc()
		return nil, &models.OwnershipError{Reason: "content item does not belong to the acting account"}
	}

	normalizedPath, err := NormalizePath(path)
	if err != nil {
		return nil, err
	}
	if slug == "" {
		slug = item.Slug
	}
	if err = validSlug(slug); err != nil {
		return nil, err
	}

	if _, err = r.items.FindPublishedConflict(ctx, itemID, domain.Name, normalizedPath, slug); err == nil {
		r.metrics.Publishes.WithLabelValues("conflict").Inc()
		r.metrics.PublishConflicts.Inc()
		return nil, &models.ConflictError{Slug: slug, Path: normalizedPath, Domain: domain.Name}
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	release, err := r.reservation.Reserve(ctx, domain.Name, normalizedPath, slug)
	if err != nil {
		if errors.Is(err, ErrAddressReserved) {
			r.metrics.Publishes.WithLabelValues("conflict").Inc()
			r.metrics.PublishConflicts.Inc()
			return nil, &models.ConflictError{Slug: slug, Path: normalizedPath, Domain: domain.Name}
		}
		return nil, err
	}
	defer release()

	published, err := r.items.PublishItem(ctx, database.PublishParams{
		ItemID:      itemID,
		Domain:      domain.Name,
		Path:        normalizedPath,
		Slug:        slug,
		PublishedAt: r.now().UTC(),
	})
	if err != nil {
		r.countFailure(err)
		return nil, err
	}

	r.metrics.Publishes.WithLabelValues("success").Inc()
	r.logger.Info("content item published",
		logger.String("item_id", published.ID.String()),
		logger.String("url", published.PublishedURL()),
	)

	return &Result{Item: published, PublishedURL: published.PublishedURL()}, nil
}

// Unpublish takes a published item offline. The assembled document and
// the slug survive, so republishing to the same domain and path
// reproduces the previous public address.
func (r *Resolver) Unpublish(ctx context.Context, itemID, actingOwnerID uuid.UUID) (*models.ContentItem, error) {
	ctx, span := r.tracer.Start(ctx, "publish.unpublish",
		trace.WithAttributes(attribute.String("item_id", itemID.String())))
	defer span.End()

	item, err := r.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != actingOwnerID {
		return nil, &models.OwnershipError{Reason: "content item does not belong to the acting account"}
	}

	updated, err := r.items.UnpublishItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	r.logger.Info("content item unpublished",
		logger.String("item_id", updated.ID.String()))
	return updated, nil
}

func (r *Resolver) countFailure(err error) {
	var conflict *models.ConflictError
	var state *models.StateConflictError
	switch {
	case errors.As(err, &conflict):
		r.metrics.Publishes.WithLabelValues("conflict").Inc()
		r.metrics.PublishConflicts.Inc()
	case errors.As(err, &state):
		r.metrics.Publishes.WithLabelValues("state_conflict").Inc()
	}
}
