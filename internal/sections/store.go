// Package sections implements the keyed, idempotent store of content
// fragments per content item.
package sections

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pagemill/pagemill/internal/logger"
	"github.com/pagemill/pagemill/internal/metrics"
	"github.com/pagemill/pagemill/internal/models"
)

// Repository is the persistence surface the store needs. Satisfied by
// *database.Repository.
type Repository interface {
	UpsertSection(ctx context.Context, itemID uuid.UUID, sectionID string, sectionType models.SectionType, html string, metadata json.RawMessage) (*models.Section, error)
	ListSections(ctx context.Context, itemID uuid.UUID) ([]models.Section, error)
	ClearSections(ctx context.Context, itemID uuid.UUID) (int64, error)
}

// Store accumulates independently-generated section fragments. All writes
// are idempotent upserts keyed by (content item, section id).
type Store struct {
	repo    Repository
	metrics *metrics.Metrics
	logger  logger.Logger
}

// NewStore creates a section store.
func NewStore(repo Repository, m *metrics.Metrics, log logger.Logger) *Store {
	return &Store{repo: repo, metrics: m, logger: log}
}

// Upsert validates and writes one section fragment. Re-submitting the
// same section id replaces the prior html with no duplication and no
// ordering side effect.
func (s *Store) Upsert(ctx context.Context, itemID uuid.UUID, sectionID string, sectionType models.SectionType, html string, metadata json.RawMessage) (*models.Section, error) {
	sectionID = strings.TrimSpace(sectionID)
	if sectionID == "" {
		return nil, &models.ValidationError{Reason: "section id must not be empty"}
	}
	if strings.TrimSpace(html) == "" {
		return nil, &models.ValidationError{Reason: "section html must not be empty"}
	}
	if !sectionType.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownSectionType, sectionType)
	}
	if len(metadata) > 0 && !json.Valid(metadata) {
		return nil, &models.ValidationError{Reason: "section metadata must be valid JSON"}
	}

	section, err := s.repo.UpsertSection(ctx, itemID, sectionID, sectionType, html, metadata)
	if err != nil {
		return nil, err
	}

	s.metrics.SectionsUpserted.Inc()
	s.logger.Debug("section upserted",
		logger.String("content_item_id", itemID.String()),
		logger.String("section_id", sectionID),
		logger.String("section_type", string(sectionType)),
	)

	return section, nil
}

// List returns the item's sections in canonical type order, independent
// of insertion order.
func (s *Store) List(ctx context.Context, itemID uuid.UUID) ([]models.Section, error) {
	sections, err := s.repo.ListSections(ctx, itemID)
	if err != nil {
		return nil, err
	}

	// The repository already orders by order_key; sorting again keeps the
	// canonical order authoritative even for alternative repositories.
	models.SortSections(sections)

	return sections, nil
}

// Clear removes the item's stored fragments and reports how many were
// removed. Assembly never requires Clear to have been called, and
// clearing never touches an assembled document.
func (s *Store) Clear(ctx context.Context, itemID uuid.UUID) (int64, error) {
	count, err := s.repo.ClearSections(ctx, itemID)
	if err != nil {
		return 0, err
	}

	s.logger.Info("sections cleared",
		logger.String("content_item_id", itemID.String()),
		logger.Int64("removed", count),
	)

	return count, nil
}

// byType indexes sections by type for validation.
func byType(sections []models.Section) map[models.SectionType][]models.Section {
	index := make(map[models.SectionType][]models.Section, len(sections))
	for _, sec := range sections {
		index[sec.SectionType] = append(index[sec.SectionType], sec)
	}
	return index
}

// MissingTypes reports which of the wanted types have no stored section.
func MissingTypes(sections []models.Section, wanted []models.SectionType) []models.SectionType {
	index := byType(sections)

	var missing []models.SectionType
	for _, st := range wanted {
		if len(index[st]) == 0 {
			missing = append(missing, st)
		}
	}
	return missing
}
