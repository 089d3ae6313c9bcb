package assemble_test

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagemill/pagemill/internal/assemble"
	"github.com/pagemill/pagemill/internal/logger"
	"github.com/pagemill/pagemill/internal/metrics"
	"github.com/pagemill/pagemill/internal/models"
	"github.com/pagemill/pagemill/internal/sections"
)

// fakeItemStore implements assemble.ItemStore with the lifecycle guard of
// the real repository.
type fakeItemStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.ContentItem
}

func newFakeItemStore() *fakeItemStore {
	return &fakeItemStore{items: make(map[uuid.UUID]*models.ContentItem)}
}

func (s *fakeItemStore) add(item *models.ContentItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item
}

func (s *fakeItemStore) GetItem(_ context.Context, id uuid.UUID) (*models.ContentItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (s *fakeItemStore) SaveAssembled(_ context.Context, id uuid.UUID, html string) (*models.ContentItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if item.Status != models.StatusReady && item.Status != models.StatusGenerated {
		return nil, &models.StateConflictError{Current: item.Status, Requested: models.StatusGenerated}
	}
	item.AssembledHTML = &html
	item.Status = models.StatusGenerated
	copied := *item
	return &copied, nil
}

// memorySectionRepo backs a sections.Store for assembler tests.
type memorySectionRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]map[string]models.Section
}

func newMemorySectionRepo() *memorySectionRepo {
	return &memorySectionRepo{rows: make(map[uuid.UUID]map[string]models.Section)}
}

func (r *memorySectionRepo) UpsertSection(_ context.Context, itemID uuid.UUID, sectionID string, sectionType models.SectionType, html string, metadata json.RawMessage) (*models.Section, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	orderKey, err := sectionType.OrderKey()
	if err != nil {
		return nil, err
	}
	if r.rows[itemID] == nil {
		r.rows[itemID] = make(map[string]models.Section)
	}
	section := models.Section{
		ContentItemID: itemID,
		SectionID:     sectionID,
		SectionType:   sectionType,
		OrderKey:      orderKey,
		HTML:          html,
		Metadata:      metadata,
		UpdatedAt:     time.Now(),
	}
	r.rows[itemID][sectionID] = section
	return &section, nil
}

func (r *memorySectionRepo) ListSections(_ context.Context, itemID uuid.UUID) ([]models.Section, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sectionList := make([]models.Section, 0, len(r.rows[itemID]))
	for _, sec := range r.rows[itemID] {
		sectionList = append(sectionList, sec)
	}
	return sectionList, nil
}

func (r *memorySectionRepo) ClearSections(_ context.Context, itemID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := int64(len(r.rows[itemID]))
	delete(r.rows, itemID)
	return count, nil
}

type fixture struct {
	assembler *assemble.Assembler
	store     *sections.Store
	items     *fakeItemStore
	itemID    uuid.UUID
}

func newFixture(t *testing.T, policy assemble.Policy) *fixture {
	t.Helper()

	m := metrics.New(prometheus.NewRegistry())
	items := newFakeItemStore()
	store := sections.NewStore(newMemorySectionRepo(), m, logger.NewNopLogger())

	item := &models.ContentItem{
		ID:      uuid.New(),
		OwnerID: uuid.New(),
		Slug:    "intro",
		Title:   "Intro Comparison",
		Status:  models.StatusReady,
	}
	items.add(item)

	return &fixture{
		assembler: assemble.New(items, store, policy, m, logger.NewNopLogger()),
		store:     store,
		items:     items,
		itemID:    item.ID,
	}
}

func (f *fixture) upsert(t *testing.T, id string, st models.SectionType, html string) {
	t.Helper()
	_, err := f.store.Upsert(context.Background(), f.itemID, id, st, html, nil)
	require.NoError(t, err)
}

func TestAssembleOutputIndependentOfSubmissionOrder(t *testing.T) {
	required := []models.SectionType{models.SectionHero, models.SectionComparisonTable, models.SectionCTA}

	forward := newFixture(t, assemble.Policy{})
	forward.upsert(t, "hero", models.SectionHero, "<h1>Hero</h1>")
	forward.upsert(t, "table", models.SectionComparisonTable, "<table></table>")
	forward.upsert(t, "cta", models.SectionCTA, "<a>Go</a>")

	reversed := newFixture(t, assemble.Policy{})
	reversed.upsert(t, "cta", models.SectionCTA, "<a>Go</a>")
	reversed.upsert(t, "table", models.SectionComparisonTable, "<table></table>")
	reversed.upsert(t, "hero", models.SectionHero, "<h1>Hero</h1>")

	ctx := context.Background()

	first, err := forward.assembler.Assemble(ctx, forward.itemID, required, nil)
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := reversed.assembler.Assemble(ctx, reversed.itemID, required, nil)
	require.NoError(t, err)
	require.True(t, second.Success)

	assert.Equal(t, first.HTML, second.HTML, "reordering upserts must yield byte-identical output")

	// Canonical order in the document: hero before table before cta.
	heroAt := strings.Index(first.HTML, "<h1>Hero</h1>")
	tableAt := strings.Index(first.HTML, "<table></table>")
	ctaAt := strings.Index(first.HTML, "<a>Go</a>")
	assert.True(t, heroAt < tableAt && tableAt < ctaAt, "sections out of canonical order")
}

func TestAssembleRefusesOnMissingRequired(t *testing.T) {
	f := newFixture(t, assemble.Policy{})
	f.upsert(t, "hero", models.SectionHero, "<h1>Hero</h1>")

	result, err := f.assembler.Assemble(context.Background(), f.itemID,
		[]models.SectionType{models.SectionHero, models.SectionComparisonTable},
		[]models.SectionType{models.SectionFAQ},
	)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, []models.SectionType{models.SectionComparisonTable}, result.MissingRequired)
	assert.Equal(t, []models.SectionType{models.SectionFAQ}, result.MissingRecommended)
	assert.Empty(t, result.HTML)

	// Nothing was written: the item is still ready with no document.
	item, err := f.items.GetItem(context.Background(), f.itemID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, item.Status)
	assert.Nil(t, item.AssembledHTML)
}

func TestAssembleRecommendedPolicy(t *testing.T) {
	t.Run("advisory proceeds and reports", func(t *testing.T) {
		f := newFixture(t, assemble.Policy{})
		f.upsert(t, "hero", models.SectionHero, "<h1>Hero</h1>")

		result, err := f.assembler.Assemble(context.Background(), f.itemID,
			[]models.SectionType{models.SectionHero},
			[]models.SectionType{models.SectionFAQ},
		)
		require.NoError(t, err)

		assert.True(t, result.Success)
		assert.Equal(t, []models.SectionType{models.SectionFAQ}, result.MissingRecommended)
	})

	t.Run("strict refuses", func(t *testing.T) {
		f := newFixture(t, assemble.Policy{StrictRecommended: true})
		f.upsert(t, "hero", models.SectionHero, "<h1>Hero</h1>")

		result, err := f.assembler.Assemble(context.Background(), f.itemID,
			[]models.SectionType{models.SectionHero},
			[]models.SectionType{models.SectionFAQ},
		)
		require.NoError(t, err)

		assert.False(t, result.Success)
		assert.Equal(t, []models.SectionType{models.SectionFAQ}, result.MissingRecommended)
	})
}

func TestAssembleUsesLatestSectionContent(t *testing.T) {
	f := newFixture(t, assemble.Policy{})
	f.upsert(t, "hero", models.SectionHero, "<p>htmlA</p>")
	f.upsert(t, "hero", models.SectionHero, "<p>htmlB</p>")

	result, err := f.assembler.Assemble(context.Background(), f.itemID,
		[]models.SectionType{models.SectionHero}, nil)
	require.NoError(t, err)
	require.True(t, result.Success)

	assert.Equal(t, 1, strings.Count(result.HTML, "<p>htmlB</p>"), "replaced content must appear exactly once")
	assert.NotContains(t, result.HTML, "<p>htmlA</p>")
}

func TestAssembleIsIdempotentOnGeneratedItems(t *testing.T) {
	f := newFixture(t, assemble.Policy{})
	f.upsert(t, "hero", models.SectionHero, "<h1>Hero</h1>")

	ctx := context.Background()
	required := []models.SectionType{models.SectionHero}

	first, err := f.assembler.Assemble(ctx, f.itemID, required, nil)
	require.NoError(t, err)
	require.True(t, first.Success)

	// Replace the section and re-assemble the now-generated item.
	f.upsert(t, "hero", models.SectionHero, "<h1>Hero v2</h1>")

	second, err := f.assembler.Assemble(ctx, f.itemID, required, nil)
	require.NoError(t, err)
	require.True(t, second.Success)
	assert.Contains(t, second.HTML, "<h1>Hero v2</h1>")

	item, err := f.items.GetItem(ctx, f.itemID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusGenerated, item.Status)
	require.NotNil(t, item.AssembledHTML)
	assert.Equal(t, second.HTML, *item.AssembledHTML)
}

func TestAssembleRejectsUnknownRequestedType(t *testing.T) {
	f := newFixture(t, assemble.Policy{})

	_, err := f.assembler.Assemble(context.Background(), f.itemID,
		[]models.SectionType{models.SectionType("sidebar")}, nil)
	assert.Error(t, err)
}

func TestAssembleEnvelopeContainsMetadataBlock(t *testing.T) {
	f := newFixture(t, assemble.Policy{})
	f.upsert(t, "hero", models.SectionHero, "<h1>Hero</h1>")

	result, err := f.assembler.Assemble(context.Background(), f.itemID,
		[]models.SectionType{models.SectionHero}, nil)
	require.NoError(t, err)
	require.True(t, result.Success)

	assert.Contains(t, result.HTML, `<script type="application/ld+json">`)
	assert.Contains(t, result.HTML, `"name":"Intro Comparison"`)
	assert.Contains(t, result.HTML, "<style>")
	assert.Equal(t, 1, strings.Count(result.HTML, "<style>"), "envelope computed once per assembly")
}
