package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pagemill/pagemill/internal/models"
)

// ====================
// Site context fields
// ====================

// Scope is nullable; uniqueness relies on the table's
// UNIQUE NULLS NOT DISTINCT constraint and scoped reads use
// IS NOT DISTINCT FROM so NULL scopes compare equal.
const fieldSelectList = `owner_id, scope_id, field_kind, payload, updated_at`

// UpsertField writes one extracted site fact. The payload is validated
// against the schema for its kind before it touches the database; unknown
// kinds are rejected. Writes are last-write-wins upserts keyed by
// (owner, scope, kind) so a concurrent reader always observes a
// consistent, possibly-incomplete context.
func (r *Repository) UpsertField(ctx context.Context, ownerID uuid.UUID, scopeID *uuid.UUID, payload models.FieldPayload) (*models.SiteContextField, error) {
	raw, err := models.EncodeFieldPayload(payload)
	if err != nil {
		return nil, err
	}

	field := &models.SiteContextField{
		OwnerID:   ownerID,
		ScopeID:   scopeID,
		Kind:      payload.Kind(),
		Payload:   raw,
		UpdatedAt: time.Now(),
	}

	query := `
		INSERT INTO site_context_fields (owner_id, scope_id, field_kind, payload, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner_id, scope_id, field_kind)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
		RETURNING ` + fieldSelectList + `
	`

	err = r.db.QueryRowxContext(
		ctx, query,
		field.OwnerID, field.ScopeID, field.Kind, []byte(field.Payload), field.UpdatedAt,
	).StructScan(field)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert site context field: %w", err)
	}

	return field, nil
}

// GetField retrieves one site context field by kind.
func (r *Repository) GetField(ctx context.Context, ownerID uuid.UUID, scopeID *uuid.UUID, kind models.FieldKind) (*models.SiteContextField, error) {
	field := &models.SiteContextField{}
	query := `
		SELECT ` + fieldSelectList + `
		FROM site_context_fields
		WHERE owner_id = $1 AND scope_id IS NOT DISTINCT FROM $2 AND field_kind = $3
	`

	err := r.db.GetContext(ctx, field, query, ownerID, scopeID, kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get site context field: %w", err)
	}

	return field, nil
}

// ListFields retrieves all site context fields for an owner and scope.
func (r *Repository) ListFields(ctx context.Context, ownerID uuid.UUID, scopeID *uuid.UUID) ([]models.SiteContextField, error) {
	fields := []models.SiteContextField{}
	query := `
		SELECT ` + fieldSelectList + `
		FROM site_context_fields
		WHERE owner_id = $1 AND scope_id IS NOT DISTINCT FROM $2
		ORDER BY field_kind
	`

	err := r.db.SelectContext(ctx, &fields, query, ownerID, scopeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list site context fields: %w", err)
	}

	return fields, nil
}

// DecodedField pairs a stored field with its decoded payload.
type DecodedField struct {
	Field   models.SiteContextField
	Payload models.FieldPayload
}

// ListDecodedFields retrieves all fields and decodes each payload against
// its kind's schema. Rows whose payload no longer validates are skipped
// rather than failing the whole read.
func (r *Repository) ListDecodedFields(ctx context.Context, ownerID uuid.UUID, scopeID *uuid.UUID) ([]DecodedField, error) {
	fields, err := r.ListFields(ctx, ownerID, scopeID)
	if err != nil {
		return nil, err
	}

	decoded := make([]DecodedField, 0, len(fields))
	for _, f := range fields {
		payload, decodeErr := models.DecodeFieldPayload(f.Kind, json.RawMessage(f.Payload))
		if decodeErr != nil {
			continue
		}
		decoded = append(decoded, DecodedField{Field: f, Payload: payload})
	}

	return decoded, nil
}
