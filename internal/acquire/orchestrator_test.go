package acquire_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagemill/pagemill/internal/acquire"
	"github.com/pagemill/pagemill/internal/logger"
	"github.com/pagemill/pagemill/internal/metrics"
	"github.com/pagemill/pagemill/internal/models"
)

const testTargetURL = "https://example.com"

// homepageHTML carries facts for every dependent phase.
const homepageHTML = `<!DOCTYPE html>
<html>
<head>
  <title>Example Co</title>
  <meta name="description" content="We compare things.">
  <meta name="theme-color" content="#112233">
  <link rel="icon" href="/favicon.ico">
</head>
<body>
  <header><img class="site-logo" src="/logo.svg"></header>
  <main>
    <h1>Compare everything</h1>
    <p>The fastest comparison engine.</p>
    <a class="btn-cta" href="/signup">Get started</a>
  </main>
  <footer>
    <a href="mailto:hello@example.com">Email us</a>
    <a href="tel:+15550100">Call us</a>
  </footer>
</body>
</html>`

const sitemapXML = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/</loc></url>
  <url><loc>https://example.com/pricing</loc></url>
</urlset>`

// stubFetcher serves canned bodies per URL.
type stubFetcher struct {
	pages map[string][]byte
	errs  map[string]error
	delay time.Duration
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if body, ok := f.pages[url]; ok {
		return body, nil
	}
	return nil, errors.New("not found: " + url)
}

// memoryFieldStore records upserted payloads by kind.
type memoryFieldStore struct {
	mu     sync.Mutex
	fields map[models.FieldKind]models.FieldPayload
	err    error
}

func newMemoryFieldStore() *memoryFieldStore {
	return &memoryFieldStore{fields: make(map[models.FieldKind]models.FieldPayload)}
}

func (s *memoryFieldStore) UpsertField(_ context.Context, ownerID uuid.UUID, scopeID *uuid.UUID, payload models.FieldPayload) (*models.SiteContextField, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.fields[payload.Kind()] = payload
	return &models.SiteContextField{OwnerID: ownerID, ScopeID: scopeID, Kind: payload.Kind()}, nil
}

func (s *memoryFieldStore) kinds() []models.FieldKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]models.FieldKind, 0, len(s.fields))
	for k := range s.fields {
		kinds = append(kinds, k)
	}
	return kinds
}

func newOrchestrator(t *testing.T, fetcher acquire.Fetcher, store acquire.FieldStore) *acquire.Orchestrator {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	return acquire.NewOrchestrator(store, fetcher, m, logger.NewNopLogger(), acquire.Config{
		PhaseTimeout:   2 * time.Second,
		ProgressBuffer: 64,
	})
}

func drain(t *testing.T, events <-chan acquire.ProgressEvent) []acquire.ProgressEvent {
	t.Helper()

	var collected []acquire.ProgressEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return collected
			}
			collected = append(collected, ev)
		case <-timeout:
			t.Fatal("progress stream did not close in time")
		}
	}
}

func phaseResult(t *testing.T, events []acquire.ProgressEvent, phase string) acquire.PhaseResult {
	t.Helper()
	for _, ev := range events {
		if ev.Phase == phase {
			if result, ok := ev.Data.(acquire.PhaseResult); ok {
				return result
			}
		}
	}
	t.Fatalf("no phase result found for %q", phase)
	return acquire.PhaseResult{}
}

func TestAcquireFullRun(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string][]byte{
		testTargetURL:                     []byte(homepageHTML),
		"https://example.com/sitemap.xml": []byte(sitemapXML),
	}}
	store := newMemoryFieldStore()

	events := newOrchestrator(t, fetcher, store).Acquire(context.Background(), testTargetURL, uuid.New(), nil)
	collected := drain(t, events)

	require.NotEmpty(t, collected)

	// Progress is non-decreasing and ends at exactly 100.
	last := -1
	for _, ev := range collected {
		assert.GreaterOrEqual(t, ev.Progress, last, "progress regressed at phase %s", ev.Phase)
		last = ev.Progress
	}
	final := collected[len(collected)-1]
	assert.Equal(t, acquire.PhaseComplete, final.Phase)
	assert.Equal(t, 100, final.Progress)

	// Exactly one terminal event.
	terminals := 0
	for _, ev := range collected {
		if ev.Phase == acquire.PhaseComplete || ev.Phase == acquire.PhaseError {
			terminals++
		}
	}
	assert.Equal(t, 1, terminals)

	// Every phase persisted its fact.
	assert.ElementsMatch(t, []models.FieldKind{
		models.FieldHomepageSummary,
		models.FieldSitemap,
		models.FieldBrandAssets,
		models.FieldHeroContent,
		models.FieldContactInfo,
	}, store.kinds())
}

func TestAcquireHomepageFailureSkipsDependents(t *testing.T) {
	fetcher := &stubFetcher{
		pages: map[string][]byte{
			"https://example.com/sitemap.xml": []byte(sitemapXML),
		},
		errs: map[string]error{
			testTargetURL: errors.New("connection refused"),
		},
	}
	store := newMemoryFieldStore()

	events := newOrchestrator(t, fetcher, store).Acquire(context.Background(), testTargetURL, uuid.New(), nil)
	collected := drain(t, events)

	// Homepage failed but the run still terminates with a complete event.
	final := collected[len(collected)-1]
	assert.Equal(t, acquire.PhaseComplete, final.Phase)

	assert.Equal(t, acquire.PhaseFailed, phaseResult(t, collected, acquire.PhaseHomepage).Status)

	// Sitemap is independent of the homepage and still ran.
	assert.Equal(t, acquire.PhaseSuccess, phaseResult(t, collected, acquire.PhaseSitemap).Status)

	// Dependent phases are skipped, not failed, and fabricate nothing.
	for _, phase := range []string{acquire.PhaseBrand, acquire.PhaseContent, acquire.PhaseContact} {
		assert.Equal(t, acquire.PhaseSkipped, phaseResult(t, collected, phase).Status, phase)
	}
	assert.ElementsMatch(t, []models.FieldKind{models.FieldSitemap}, store.kinds())
}

func TestAcquirePhaseTimeoutIsNotFatal(t *testing.T) {
	fetcher := &stubFetcher{
		pages: map[string][]byte{
			testTargetURL:                     []byte(homepageHTML),
			"https://example.com/sitemap.xml": []byte(sitemapXML),
		},
		delay: 100 * time.Millisecond,
	}
	store := newMemoryFieldStore()

	m := metrics.New(prometheus.NewRegistry())
	orch := acquire.NewOrchestrator(store, fetcher, m, logger.NewNopLogger(), acquire.Config{
		PhaseTimeout:   10 * time.Millisecond, // Every fetch-bound phase times out
		ProgressBuffer: 64,
	})

	events := orch.Acquire(context.Background(), testTargetURL, uuid.New(), nil)
	collected := drain(t, events)

	assert.Equal(t, acquire.PhaseFailed, phaseResult(t, collected, acquire.PhaseHomepage).Status)

	// A timeout is a phase failure, never a run failure.
	final := collected[len(collected)-1]
	assert.Equal(t, acquire.PhaseComplete, final.Phase)
	assert.Equal(t, 100, final.Progress)
}

func TestAcquireInvalidURLTerminatesWithError(t *testing.T) {
	store := newMemoryFieldStore()
	events := newOrchestrator(t, &stubFetcher{}, store).Acquire(context.Background(), "::not-a-url", uuid.New(), nil)
	collected := drain(t, events)

	require.Len(t, collected, 1)
	assert.Equal(t, acquire.PhaseError, collected[0].Phase)
	assert.Empty(t, store.kinds())
}

func TestAcquireCancellationTerminatesStream(t *testing.T) {
	fetcher := &stubFetcher{
		pages: map[string][]byte{
			testTargetURL:                     []byte(homepageHTML),
			"https://example.com/sitemap.xml": []byte(sitemapXML),
		},
		delay: 200 * time.Millisecond,
	}
	store := newMemoryFieldStore()

	ctx, cancel := context.WithCancel(context.Background())
	events := newOrchestrator(t, fetcher, store).Acquire(ctx, testTargetURL, uuid.New(), nil)

	time.Sleep(50 * time.Millisecond)
	cancel()

	collected := drain(t, events)

	// The stream closed; if a terminal event made it out it is an error,
	// never a complete.
	for _, ev := range collected {
		assert.NotEqual(t, acquire.PhaseComplete, ev.Phase)
	}
}
