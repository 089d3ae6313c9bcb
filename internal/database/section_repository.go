package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pagemill/pagemill/internal/models"
)

// ====================
// Sections
// ====================

const sectionSelectList = `content_item_id, section_id, section_type, order_key, html, metadata, updated_at`

// UpsertSection writes one content fragment. Writes are idempotent upserts
// keyed by (content item, section id): re-saving the same section id
// replaces the prior html with no duplication. The canonical order key is
// derived from the section type at write time; unknown types are rejected.
func (r *Repository) UpsertSection(ctx context.Context, itemID uuid.UUID, sectionID string, sectionType models.SectionType, html string, metadata json.RawMessage) (*models.Section, error) {
	orderKey, err := sectionType.OrderKey()
	if err != nil {
		return nil, err
	}

	if metadata == nil {
		metadata = json.RawMessage(`{}`)
	}

	section := &models.Section{
		ContentItemID: itemID,
		SectionID:     sectionID,
		SectionType:   sectionType,
		OrderKey:      orderKey,
		HTML:          html,
		Metadata:      metadata,
		UpdatedAt:     time.Now(),
	}

	query := `
		INSERT INTO sections (content_item_id, section_id, section_type, order_key, html, metadata, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (content_item_id, section_id)
		DO UPDATE SET
			section_type = EXCLUDED.section_type,
			order_key = EXCLUDED.order_key,
			html = EXCLUDED.html,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + sectionSelectList + `
	`

	err = r.db.QueryRowxContext(
		ctx, query,
		section.ContentItemID, section.SectionID, section.SectionType,
		section.OrderKey, section.HTML, []byte(section.Metadata), section.UpdatedAt,
	).StructScan(section)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert section: %w", err)
	}

	return section, nil
}

// ListSections returns all sections of a content item in canonical order,
// independent of insertion order.
func (r *Repository) ListSections(ctx context.Context, itemID uuid.UUID) ([]models.Section, error) {
	sections := []models.Section{}
	query := `
		SELECT ` + sectionSelectList + `
		FROM sections
		WHERE content_item_id = $1
		ORDER BY order_key, section_id
	`

	err := r.db.SelectContext(ctx, &sections, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}

	return sections, nil
}

// ClearSections removes all sections of a content item and returns the
// number removed. This is storage reclamation after assembly; it never
// affects an already-assembled document.
func (r *Repository) ClearSections(ctx context.Context, itemID uuid.UUID) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sections WHERE content_item_id = $1`, itemID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear sections: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleared sections: %w", err)
	}

	return count, nil
}
