package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/pagemill/pagemill/internal/models"
)

// ====================
// Content items
// ====================

const itemSelectList = `id, owner_id, slug, title, status, assembled_html,
			published_domain, published_path, published_slug, published_at,
			created_at, updated_at`

// pqUniqueViolation is the Postgres error code for unique constraint violations.
const pqUniqueViolation = "23505"

// CreateItem creates a content item in the planned state.
func (r *Repository) CreateItem(ctx context.Context, ownerID uuid.UUID, slug, title string) (*models.ContentItem, error) {
	item := &models.ContentItem{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Slug:      slug,
		Title:     title,
		Status:    models.StatusPlanned,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	query := `
		INSERT INTO content_items (id, owner_id, slug, title, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + itemSelectList + `
	`

	err := r.db.QueryRowxContext(
		ctx, query,
		item.ID, item.OwnerID, item.Slug, item.Title, item.Status, item.CreatedAt, item.UpdatedAt,
	).StructScan(item)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return nil, models.ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create content item: %w", err)
	}

	return item, nil
}

// GetItem retrieves a content item by ID.
func (r *Repository) GetItem(ctx context.Context, id uuid.UUID) (*models.ContentItem, error) {
	item := &models.ContentItem{}
	query := `SELECT ` + itemSelectList + ` FROM content_items WHERE id = $1`

	err := r.db.GetContext(ctx, item, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get content item: %w", err)
	}

	return item, nil
}

// TransitionStatus performs a guarded compare-and-set status change. The
// update only applies while the item is in the expected state; otherwise
// the current state is fetched and returned inside a StateConflictError.
// The state is never silently coerced.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.ItemStatus) (*models.ContentItem, error) {
	item := &models.ContentItem{}
	query := `
		UPDATE content_items
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + itemSelectList + `
	`

	err := r.db.QueryRowxContext(ctx, query, id, from, to).StructScan(item)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to transition content item: %w", err)
	}

	return nil, r.stateConflict(ctx, id, to)
}

// SaveAssembled transactionally writes the assembled document together
// with the ready→generated transition so no intermediate state is
// observable. Re-assembly of an already-generated item overwrites the
// document in place.
func (r *Repository) SaveAssembled(ctx context.Context, id uuid.UUID, html string) (*models.ContentItem, error) {
	item := &models.ContentItem{}
	query := `
		UPDATE content_items
		SET assembled_html = $2, status = $3, updated_at = NOW()
		WHERE id = $1 AND status IN ($4, $3)
		RETURNING ` + itemSelectList + `
	`

	err := r.db.QueryRowxContext(
		ctx, query,
		id, html, models.StatusGenerated, models.StatusReady,
	).StructScan(item)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to save assembled document: %w", err)
	}

	return nil, r.stateConflict(ctx, id, models.StatusGenerated)
}

// PublishParams carries the publish target written atomically with the
// generated→published transition.
type PublishParams struct {
	ItemID      uuid.UUID
	Domain      string
	Path        string
	Slug        string
	PublishedAt time.Time
}

// PublishItem commits the generated→published transition. The conflict
// check runs again inside the transaction under a per-(domain, path, slug)
// advisory lock, closing the check-then-act race between two concurrent
// publishes that both passed the resolver's pre-check. A partial unique
// index on the published address backstops the lock.
func (r *Repository) PublishItem(ctx context.Context, p PublishParams) (*models.ContentItem, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin publish transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	addrKey := p.Domain + "|" + p.Path + "|" + p.Slug
	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, addrKey); err != nil {
		return nil, fmt.Errorf("failed to lock publish address: %w", err)
	}

	var clashing string
	err = tx.GetContext(ctx, &clashing, `
		SELECT slug FROM content_items
		WHERE status = $1
		  AND published_domain = $2 AND published_path = $3 AND published_slug = $4
		  AND id != $5
		LIMIT 1
	`, models.StatusPublished, p.Domain, p.Path, p.Slug, p.ItemID)
	if err == nil {
		return nil, &models.ConflictError{Slug: p.Slug, Path: p.Path, Domain: p.Domain}
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check publish conflict: %w", err)
	}

	item := &models.ContentItem{}
	err = tx.QueryRowxContext(ctx, `
		UPDATE content_items
		SET status = $2,
			published_domain = $3, published_path = $4, published_slug = $5,
			published_at = $6, updated_at = NOW()
		WHERE id = $1 AND status = $7
		RETURNING `+itemSelectList+`
	`, p.ItemID, models.StatusPublished, p.Domain, p.Path, p.Slug, p.PublishedAt, models.StatusGenerated).StructScan(item)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.stateConflict(ctx, p.ItemID, models.StatusPublished)
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return nil, &models.ConflictError{Slug: p.Slug, Path: p.Path, Domain: p.Domain}
		}
		return nil, fmt.Errorf("failed to publish content item: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit publish: %w", err)
	}

	return item, nil
}

// UnpublishItem clears the publish fields and returns the item to the
// generated state. The assembled document and the slug survive, so a
// later republish reproduces the same public address.
func (r *Repository) UnpublishItem(ctx context.Context, id uuid.UUID) (*models.ContentItem, error) {
	item := &models.ContentItem{}
	query := `
		UPDATE content_items
		SET status = $2,
			published_domain = NULL, published_path = NULL, published_slug = NULL,
			published_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING ` + itemSelectList + `
	`

	err := r.db.QueryRowxContext(ctx, query, id, models.StatusGenerated, models.StatusPublished).StructScan(item)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to unpublish content item: %w", err)
	}

	return nil, r.stateConflict(ctx, id, models.StatusGenerated)
}

// FindPublishedConflict looks for another item currently published at the
// given address. Returns ErrNotFound when the address is free.
func (r *Repository) FindPublishedConflict(ctx context.Context, itemID uuid.UUID, domain, path, slug string) (*models.ContentItem, error) {
	item := &models.ContentItem{}
	query := `
		SELECT ` + itemSelectList + `
		FROM content_items
		WHERE status = $1
		  AND published_domain = $2 AND published_path = $3 AND published_slug = $4
		  AND id != $5
		LIMIT 1
	`

	err := r.db.GetContext(ctx, item, query, models.StatusPublished, domain, path, slug, itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to search for publish conflict: %w", err)
	}

	return item, nil
}

// stateConflict builds the StateConflictError for a failed guarded update,
// preserving not-found semantics when the item does not exist at all.
func (r *Repository) stateConflict(ctx context.Context, id uuid.UUID, requested models.ItemStatus) error {
	current, err := r.GetItem(ctx, id)
	if err != nil {
		return err
	}
	return &models.StateConflictError{Current: current.Status, Requested: requested}
}
