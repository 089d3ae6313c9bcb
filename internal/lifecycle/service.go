// Package lifecycle owns content item state transitions. Every transition
// is an explicit compare-and-set against the expected current state; a
// request from the wrong state returns a StateConflictError naming the
// current and requested states, never a silent coercion.
package lifecycle

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/pagemill/pagemill/internal/logger"
	"github.com/pagemill/pagemill/internal/models"
)

// ItemRepo is the persistence surface the service needs. Satisfied by
// *database.Repository.
type ItemRepo interface {
	CreateItem(ctx context.Context, ownerID uuid.UUID, slug, title string) (*models.ContentItem, error)
	GetItem(ctx context.Context, id uuid.UUID) (*models.ContentItem, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.ItemStatus) (*models.ContentItem, error)
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Service drives the planned → ready → generated → published machine.
// The ready→generated and generated→published edges are guarded
// elsewhere (assembler success and publish resolver); this service owns
// creation and the planned→ready edge.
type Service struct {
	repo   ItemRepo
	logger logger.Logger
}

func NewService(repo ItemRepo, log logger.Logger) *Service {
	return &Service{repo: repo, logger: log}
}

// Create registers a new content item in the planned state.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, slug, title string) (*models.ContentItem, error) {
	slug = strings.TrimSpace(slug)
	title = strings.TrimSpace(title)

	if !slugPattern.MatchString(slug) {
		return nil, &models.ValidationError{Reason: fmt.Sprintf("slug %q must be lowercase letters, digits and hyphens", slug)}
	}
	if title == "" {
		return nil, &models.ValidationError{Reason: "title must not be empty"}
	}

	item, err := s.repo.CreateItem(ctx, ownerID, slug, title)
	if err != nil {
		return nil, err
	}

	s.logger.Info("content item created",
		logger.String("item_id", item.ID.String()),
		logger.String("slug", item.Slug))
	return item, nil
}

// Get returns the item regardless of state.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.ContentItem, error) {
	return s.repo.GetItem(ctx, id)
}

// MarkReady advances planned → ready. Planning happens outside this
// core, so the only guard here is that the item carries the metadata a
// generator needs: a slug and a title. The transition itself is a
// guarded update, so a concurrent caller racing past the metadata check
// still cannot advance an item twice.
func (s *Service) MarkReady(ctx context.Context, id uuid.UUID) (*models.ContentItem, error) {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(item.Slug) == "" || strings.TrimSpace(item.Title) == "" {
		return nil, &models.ValidationError{Reason: "item is missing required metadata (slug, title)"}
	}

	updated, err := s.repo.TransitionStatus(ctx, id, models.StatusPlanned, models.StatusReady)
	if err != nil {
		return nil, err
	}

	s.logger.Info("content item ready",
		logger.String("item_id", updated.ID.String()))
	return updated, nil
}
