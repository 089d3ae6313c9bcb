// Package assemble implements the validation-gated merge of a content
// item's sections into one final document.
package assemble

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pagemill/pagemill/internal/logger"
	"github.com/pagemill/pagemill/internal/metrics"
	"github.com/pagemill/pagemill/internal/models"
	"github.com/pagemill/pagemill/internal/sections"
)

// ItemStore is the content item persistence surface the assembler needs.
// Satisfied by *database.Repository.
type ItemStore interface {
	GetItem(ctx context.Context, id uuid.UUID) (*models.ContentItem, error)
	SaveAssembled(ctx context.Context, id uuid.UUID, html string) (*models.ContentItem, error)
}

// SectionLister lists an item's sections in canonical order. Satisfied by
// *sections.Store.
type SectionLister interface {
	List(ctx context.Context, itemID uuid.UUID) ([]models.Section, error)
}

// Policy controls how missing recommended sections are treated.
type Policy struct {
	// StrictRecommended makes missing recommended sections refuse
	// assembly the same way required sections do. The default is
	// advisory: assembly proceeds and reports them.
	StrictRecommended bool
}

// Result is the outcome of one assembly call. When Success is false the
// missing type lists say exactly what blocked the merge and no state was
// written.
type Result struct {
	Success            bool                 `json:"success"`
	HTML               string               `json:"html,omitempty"`
	MissingRequired    []models.SectionType `json:"missing_required,omitempty"`
	MissingRecommended []models.SectionType `json:"missing_recommended,omitempty"`
	Item               *models.ContentItem  `json:"item,omitempty"`
}

// Assembler merges stored sections into a single document.
type Assembler struct {
	items    ItemStore
	sections SectionLister
	policy   Policy
	metrics  *metrics.Metrics
	logger   logger.Logger
}

// New creates an assembler.
func New(items ItemStore, lister SectionLister, policy Policy, m *metrics.Metrics, log logger.Logger) *Assembler {
	return &Assembler{
		items:    items,
		sections: lister,
		policy:   policy,
		metrics:  m,
		logger:   log,
	}
}

// Assemble validates the item's current section set and, only when every
// required type is present, merges all present sections in canonical
// order, wraps them in the shared presentation envelope and writes the
// document together with the ready→generated transition. Validation
// failure writes nothing. Re-assembling an already-generated item
// overwrites the document.
func (a *Assembler) Assemble(ctx context.Context, itemID uuid.UUID, required, recommended []models.SectionType) (*Result, error) {
	for _, st := range append(append([]models.SectionType{}, required...), recommended...) {
		if !st.Valid() {
			return nil, fmt.Errorf("%w: %q", models.ErrUnknownSectionType, st)
		}
	}

	item, err := a.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	stored, err := a.sections.List(ctx, itemID)
	if err != nil {
		return nil, err
	}

	missingRequired := sections.MissingTypes(stored, required)
	missingRecommended := sections.MissingTypes(stored, recommended)

	blocked := len(missingRequired) > 0
	if a.policy.StrictRecommended && len(missingRecommended) > 0 {
		blocked = true
	}

	if blocked {
		a.metrics.Assemblies.WithLabelValues("rejected").Inc()
		a.logger.Info("assembly refused",
			logger.String("content_item_id", itemID.String()),
			logger.Int("missing_required", len(missingRequired)),
			logger.Int("missing_recommended", len(missingRecommended)),
		)
		return &Result{
			Success:            false,
			MissingRequired:    missingRequired,
			MissingRecommended: missingRecommended,
		}, nil
	}

	// Sections arrive in canonical order from the lister; the envelope is
	// computed once per assembly call.
	document := buildDocument(item, stored)

	saved, err := a.items.SaveAssembled(ctx, itemID, document)
	if err != nil {
		return nil, err
	}

	a.metrics.Assemblies.WithLabelValues("success").Inc()
	a.logger.Info("document assembled",
		logger.String("content_item_id", itemID.String()),
		logger.Int("section_count", len(stored)),
	)

	return &Result{
		Success:            true,
		HTML:               document,
		MissingRecommended: missingRecommended,
		Item:               saved,
	}, nil
}
