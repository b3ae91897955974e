// Package pipeline runs one select → enrich → publish → commit pass over
// the item source and reports a tagged Outcome.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lllllllleong/dailyuploadflow/internal/models"
	"github.com/Lllllllleong/dailyuploadflow/internal/source"
	"github.com/google/uuid"
)

// Enricher generates the content bundle for an item.
type Enricher interface {
	Generate(ctx context.Context, item models.CandidateItem, notes string) (models.ContentBundle, error)
}

// Publisher publishes an item with its bundle.
type Publisher interface {
	Publish(ctx context.Context, item models.CandidateItem, bundle models.ContentBundle) (models.PublishRecord, error)
}

// Ledger is the subset of the dedup ledger a run needs.
type Ledger interface {
	All(ctx context.Context) (map[string]models.LedgerEntry, error)
	Commit(ctx context.Context, entry models.LedgerEntry) error
}

// Options tune an Orchestrator. Zero values pick sensible defaults.
type Options struct {
	Limits models.ContentLimits
	// Notes is passed to the enricher as additional prompt context.
	Notes    string
	Now      func() time.Time
	NewRunID func() string
	Logger   *slog.Logger
}

// Orchestrator processes at most one item per Run.
type Orchestrator struct {
	source    source.Lister
	ledger    Ledger
	enricher  Enricher
	publisher Publisher

	limits   models.ContentLimits
	notes    string
	now      func() time.Time
	newRunID func() string
	log      *slog.Logger
}

// NewOrchestrator wires the collaborators of a run.
func NewOrchestrator(src source.Lister, ledger Ledger, enricher Enricher, publisher Publisher, opts Options) (*Orchestrator, error) {
	if src == nil || ledger == nil || enricher == nil || publisher == nil {
		return nil, errors.New("source, ledger, enricher and publisher are all required")
	}
	o := &Orchestrator{
		source:    src,
		ledger:    ledger,
		enricher:  enricher,
		publisher: publisher,
		limits:    opts.Limits,
		notes:     opts.Notes,
		now:       opts.Now,
		newRunID:  opts.NewRunID,
		log:       opts.Logger,
	}
	if o.limits == (models.ContentLimits{}) {
		o.limits = models.DefaultContentLimits
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.newRunID == nil {
		o.newRunID = uuid.NewString
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	return o, nil
}

// Run performs one pass. It never panics and never retries: every failure
// is returned in the Outcome and the next Run starts from scratch.
func (o *Orchestrator) Run(ctx context.Context) (out Outcome) {
	state := newRunState()
	out = Outcome{RunID: o.newRunID(), StartedAt: o.now()}
	logCtx := o.log.With("runId", out.RunID)

	defer func() {
		if r := recover(); r != nil {
			if !state.current.IsTerminal() {
				o.fail(logCtx, &out, state, stageOf(state.current), fmt.Errorf("panic: %v", r))
			}
		}
		out.Trace = append([]State(nil), state.history...)
		out.FinishedAt = o.now()
	}()

	logCtx.Info("Starting pipeline run.")

	// --- START: pick a candidate against a fresh ledger snapshot ---
	done, err := o.ledger.All(ctx)
	if err != nil {
		o.fail(logCtx, &out, state, StageSelect, fmt.Errorf("failed to read ledger: %w", err))
		return out
	}
	processed := func(id string) bool {
		_, ok := done[id]
		return ok
	}
	item, pending, err := source.Select(ctx, o.source, processed)
	if err != nil {
		o.fail(logCtx, &out, state, StageSelect, fmt.Errorf("failed to list items: %w", err))
		return out
	}
	logCtx.Info("Pending items.", "pending", pending, "processed", len(done))
	if item == nil {
		if err := state.advance(StateNoCandidate); err != nil {
			o.fail(logCtx, &out, state, StageSelect, err)
			return out
		}
		out.Status = StatusNoCandidate
		out.Err = ErrNoCandidate
		logCtx.Warn("No unprocessed items left.")
		return out
	}
	if err := state.advance(StateSelected); err != nil {
		o.fail(logCtx, &out, state, StageSelect, err)
		return out
	}
	out.Item = item
	logCtx = logCtx.With("item", item.ID)
	logCtx.Info("Selected item.", "path", item.Path, "order", item.Order)

	// --- SELECTED: enrich ---
	bundle, err := o.enricher.Generate(ctx, *item, o.notes)
	if err != nil {
		o.fail(logCtx, &out, state, StageEnrich, err)
		return out
	}
	bundle = bundle.Normalize(o.limits)
	if bundle.Title == "" {
		o.fail(logCtx, &out, state, StageEnrich, errors.New("generated content has an empty title"))
		return out
	}
	if err := state.advance(StateEnriched); err != nil {
		o.fail(logCtx, &out, state, StageEnrich, err)
		return out
	}
	out.Bundle = &bundle

	// --- ENRICHED: publish ---
	record, err := o.publisher.Publish(ctx, *item, bundle)
	if err != nil {
		o.fail(logCtx, &out, state, StagePublish, err)
		return out
	}
	if !record.OK || record.PublishedID == "" {
		o.fail(logCtx, &out, state, StagePublish, fmt.Errorf("publisher reported failure for %s", item.ID))
		return out
	}
	if err := state.advance(StatePublished); err != nil {
		o.fail(logCtx, &out, state, StagePublish, err)
		return out
	}
	out.Record = &record

	// --- PUBLISHED: commit ---
	// The item is already public, so a cancelled run must still record it.
	entry := models.LedgerEntry{ID: item.ID, CommittedAt: o.now(), PublishedID: record.PublishedID}
	if err := o.ledger.Commit(context.WithoutCancel(ctx), entry); err != nil {
		logCtx.Error("Published item could not be recorded; the next run will publish it again.",
			"publishedId", record.PublishedID, "url", record.URL, "error", err)
		o.fail(logCtx, &out, state, StageCommit, err)
		return out
	}
	if err := state.advance(StateDone); err != nil {
		o.fail(logCtx, &out, state, StageCommit, err)
		return out
	}
	out.Status = StatusDone
	logCtx.Info("Pipeline run complete.", "publishedId", record.PublishedID, "url", record.URL)
	return out
}

func (o *Orchestrator) fail(logCtx *slog.Logger, out *Outcome, state *runState, stage Stage, err error) {
	// FAILED is reachable from every non-terminal state.
	_ = state.advance(StateFailed)
	out.Status = StatusFailed
	out.Stage = stage
	out.Err = &StageError{Stage: stage, Err: err}
	logCtx.Error("Pipeline run failed.", "stage", stage, "error", err)
}

// stageOf maps the state a run was in to the stage it was executing.
func stageOf(s State) Stage {
	switch s {
	case StateSelected:
		return StageEnrich
	case StateEnriched:
		return StagePublish
	case StatePublished:
		return StageCommit
	default:
		return StageSelect
	}
}
