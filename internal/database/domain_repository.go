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
// Domains
// ====================

const domainSelectList = `id, owner_id, name, verified, created_at, updated_at`

// CreateDomain registers a publish target domain. New domains start
// unverified.
func (r *Repository) CreateDomain(ctx context.Context, ownerID uuid.UUID, name string) (*models.Domain, error) {
	domain := &models.Domain{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      name,
		Verified:  false,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	query := `
		INSERT INTO domains (id, owner_id, name, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + domainSelectList + `
	`

	err := r.db.QueryRowxContext(
		ctx, query,
		domain.ID, domain.OwnerID, domain.Name, domain.Verified, domain.CreatedAt, domain.UpdatedAt,
	).StructScan(domain)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return nil, models.ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create domain: %w", err)
	}

	return domain, nil
}

// GetDomainByID retrieves a domain by ID.
func (r *Repository) GetDomainByID(ctx context.Context, id uuid.UUID) (*models.Domain, error) {
	domain := &models.Domain{}
	query := `SELECT ` + domainSelectList + ` FROM domains WHERE id = $1`

	err := r.db.GetContext(ctx, domain, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get domain: %w", err)
	}

	return domain, nil
}

// ListDomains retrieves all domains owned by an owner.
func (r *Repository) ListDomains(ctx context.Context, ownerID uuid.UUID) ([]models.Domain, error) {
	domains := []models.Domain{}
	query := `SELECT ` + domainSelectList + ` FROM domains WHERE owner_id = $1 ORDER BY name`

	err := r.db.SelectContext(ctx, &domains, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}

	return domains, nil
}

// MarkDomainVerified flags a domain as verified. Verification itself
// (DNS challenge) is an external concern; this records its outcome.
func (r *Repository) MarkDomainVerified(ctx context.Context, id uuid.UUID) (*models.Domain, error) {
	domain := &models.Domain{}
	query := `
		UPDATE domains
		SET verified = true, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + domainSelectList + `
	`

	err := r.db.QueryRowxContext(ctx, query, id).StructScan(domain)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to mark domain verified: %w", err)
	}

	return domain, nil
}

// CreateSubdirectory registers a path under a domain.
func (r *Repository) CreateSubdirectory(ctx context.Context, domainID uuid.UUID, path string) (*models.Subdirectory, error) {
	sub := &models.Subdirectory{
		ID:        uuid.New(),
		DomainID:  domainID,
		Path:      path,
		CreatedAt: time.Now(),
	}

	query := `
		INSERT INTO subdirectories (id, domain_id, path, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, domain_id, path, created_at
	`

	err := r.db.QueryRowxContext(ctx, query, sub.ID, sub.DomainID, sub.Path, sub.CreatedAt).StructScan(sub)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return nil, models.ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create subdirectory: %w", err)
	}

	return sub, nil
}

// ListSubdirectories retrieves all registered paths under a domain.
func (r *Repository) ListSubdirectories(ctx context.Context, domainID uuid.UUID) ([]models.Subdirectory, error) {
	subs := []models.Subdirectory{}
	query := `SELECT id, domain_id, path, created_at FROM subdirectories WHERE domain_id = $1 ORDER BY path`

	err := r.db.SelectContext(ctx, &subs, query, domainID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subdirectories: %w", err)
	}

	return subs, nil
}
