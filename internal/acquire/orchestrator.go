// Package acquire implements the multi-phase site context acquisition
// orchestrator. Phases run strictly sequentially within one run; each
// phase has its own failure boundary and timeout, and extracted facts are
// persisted per-field as they become available so concurrent readers see
// a consistent, possibly-incomplete context.
package acquire

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/pagemill/pagemill/internal/logger"
	"github.com/pagemill/pagemill/internal/metrics"
	"github.com/pagemill/pagemill/internal/models"
)

// Phase names, in fixed dependency order.
const (
	PhaseHomepage = "homepage"
	PhaseSitemap  = "sitemap"
	PhaseBrand    = "brand"
	PhaseContent  = "content"
	PhaseContact  = "contact"
)

// FieldStore persists extracted site facts. Satisfied by
// *database.Repository.
type FieldStore interface {
	UpsertField(ctx context.Context, ownerID uuid.UUID, scopeID *uuid.UUID, payload models.FieldPayload) (*models.SiteContextField, error)
}

// Config holds orchestrator tuning.
type Config struct {
	PhaseTimeout   time.Duration
	ProgressBuffer int
}

// Orchestrator runs acquisition phases against a target site. Independent
// runs are fully isolated; the orchestrator holds no per-run state.
type Orchestrator struct {
	store   FieldStore
	fetcher Fetcher
	logger  logger.Logger
	metrics *metrics.Metrics

	phaseTimeout   time.Duration
	progressBuffer int
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(store FieldStore, fetcher Fetcher, m *metrics.Metrics, log logger.Logger, cfg Config) *Orchestrator {
	if cfg.PhaseTimeout <= 0 {
		cfg.PhaseTimeout = 15 * time.Second
	}
	if cfg.ProgressBuffer <= 0 {
		cfg.ProgressBuffer = 64
	}

	return &Orchestrator{
		store:          store,
		fetcher:        fetcher,
		logger:         log,
		metrics:        m,
		phaseTimeout:   cfg.PhaseTimeout,
		progressBuffer: cfg.ProgressBuffer,
	}
}

// runState carries facts between phases of a single run. The homepage
// document is the upstream input of the brand, content and contact phases.
type runState struct {
	targetURL string
	ownerID   uuid.UUID
	scopeID   *uuid.UUID

	homepage *goquery.Document
}

// phase is one dependency-ordered acquisition step. endProgress is the
// stream progress value after the phase finishes.
type phase struct {
	name          string
	needsHomepage bool
	endProgress   int
	run           func(ctx context.Context, state *runState) (PhaseStatus, string, error)
}

// Acquire starts an acquisition run and returns its progress stream. The
// stream carries exactly one terminal event (complete or error) and is
// then closed. Cancelling ctx aborts the run between or inside phases and
// terminates the stream with an error event.
func (o *Orchestrator) Acquire(ctx context.Context, targetURL string, ownerID uuid.UUID, scopeID *uuid.UUID) <-chan ProgressEvent {
	events := make(chan ProgressEvent, o.progressBuffer)

	go o.run(ctx, targetURL, ownerID, scopeID, events)

	return events
}

func (o *Orchestrator) run(ctx context.Context, targetURL string, ownerID uuid.UUID, scopeID *uuid.UUID, events chan<- ProgressEvent) {
	defer close(events)

	log := o.logger.With(
		logger.String("target_url", targetURL),
		logger.String("owner_id", ownerID.String()),
	)

	emitter := &progressEmitter{ctx: ctx, events: events}

	if _, err := url.ParseRequestURI(targetURL); err != nil {
		log.Warn("acquisition rejected: invalid target url", logger.Error(err))
		emitter.emitFinal(PhaseError, emitter.last, fmt.Sprintf("invalid target url: %v", err))
		o.metrics.AcquireRuns.WithLabelValues(PhaseError).Inc()
		return
	}

	emitter.emit(PhaseHomepage, 0, "starting acquisition", nil)

	state := &runState{targetURL: targetURL, ownerID: ownerID, scopeID: scopeID}

	for _, ph := range o.phases() {
		if ctx.Err() != nil {
			break
		}

		result := o.executePhase(ctx, ph, state, log)
		o.metrics.PhaseOutcomes.WithLabelValues(ph.name, string(result.Status)).Inc()

		if !emitter.emit(ph.name, ph.endProgress, phaseMessage(ph.name, result), result) {
			break
		}
	}

	if ctx.Err() != nil {
		log.Warn("acquisition run cancelled", logger.Error(ctx.Err()))
		emitter.emitFinal(PhaseError, emitter.last, "acquisition cancelled")
		o.metrics.AcquireRuns.WithLabelValues(PhaseError).Inc()
		return
	}

	emitter.emit(PhaseComplete, 100, "acquisition complete", nil)
	o.metrics.AcquireRuns.WithLabelValues(PhaseComplete).Inc()
	log.Info("acquisition run complete")
}

// phases returns the fixed phase order. Later phases consume facts
// produced by earlier ones; brand, content and contact require the parsed
// homepage.
func (o *Orchestrator) phases() []phase {
	return []phase{
		{name: PhaseHomepage, endProgress: 30, run: o.homepagePhase},
		{name: PhaseSitemap, endProgress: 50, run: o.sitemapPhase},
		{name: PhaseBrand, needsHomepage: true, endProgress: 65, run: o.brandPhase},
		{name: PhaseContent, needsHomepage: true, endProgress: 80, run: o.contentPhase},
		{name: PhaseContact, needsHomepage: true, endProgress: 95, run: o.contactPhase},
	}
}

// executePhase wraps one phase in its failure boundary: a timeout context,
// panic recovery, and conversion of errors into phase results. A failing
// phase never aborts the run; a phase whose upstream input is missing is
// skipped, not executed blindly.
func (o *Orchestrator) executePhase(ctx context.Context, ph phase, state *runState, log logger.Logger) (result PhaseResult) {
	if ph.needsHomepage && state.homepage == nil {
		log.Info("phase skipped: homepage input missing", logger.String("phase", ph.name))
		return PhaseResult{Status: PhaseSkipped, Error: "homepage facts unavailable"}
	}

	start := time.Now()
	defer func() {
		o.metrics.PhaseDuration.Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			log.Error("phase panicked", logger.String("phase", ph.name), logger.Any("panic", r))
			result = PhaseResult{Status: PhaseFailed, Error: fmt.Sprintf("phase panic: %v", r)}
		}
	}()

	phaseCtx, cancel := context.WithTimeout(ctx, o.phaseTimeout)
	defer cancel()

	status, detail, err := ph.run(phaseCtx, state)
	if err != nil {
		log.Warn("phase failed",
			logger.String("phase", ph.name),
			logger.Duration("elapsed", time.Since(start)),
			logger.Error(err),
		)
		return PhaseResult{Status: PhaseFailed, Error: err.Error()}
	}

	log.Debug("phase finished",
		logger.String("phase", ph.name),
		logger.String("status", string(status)),
		logger.Duration("elapsed", time.Since(start)),
	)

	return PhaseResult{Status: status, Error: detail}
}

// persist upserts one extracted payload and counts it.
func (o *Orchestrator) persist(ctx context.Context, state *runState, payload models.FieldPayload) error {
	if _, err := o.store.UpsertField(ctx, state.ownerID, state.scopeID, payload); err != nil {
		return err
	}
	o.metrics.FieldsUpserted.Inc()
	return nil
}

func phaseMessage(name string, result PhaseResult) string {
	switch result.Status {
	case PhaseSuccess:
		return name + " extracted"
	case PhasePartial:
		return name + " partially extracted"
	case PhaseSkipped:
		return name + " skipped"
	default:
		return name + " failed"
	}
}

// progressEmitter pushes events to the bounded stream, keeping progress
// non-decreasing and giving up when the run context ends.
type progressEmitter struct {
	ctx    context.Context
	events chan<- ProgressEvent
	last   int
}

func (e *progressEmitter) emit(phaseName string, progress int, message string, data any) bool {
	if progress < e.last {
		progress = e.last
	}
	e.last = progress

	event := ProgressEvent{Phase: phaseName, Progress: progress, Message: message, Data: data}

	select {
	case e.events <- event:
		return true
	case <-e.ctx.Done():
		return false
	}
}

// emitFinal delivers a terminal event without blocking. It runs after the
// run context may already be done, so it relies on the channel buffer; a
// consumer that stopped draining loses only the terminal record.
func (e *progressEmitter) emitFinal(phaseName string, progress int, message string) {
	select {
	case e.events <- ProgressEvent{Phase: phaseName, Progress: progress, Message: message}:
	default:
	}
}
