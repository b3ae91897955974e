// Package app assembles the uploader from its configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lllllllleong/dailyuploadflow/internal/config"
	"github.com/Lllllllleong/dailyuploadflow/internal/gcp"
	"github.com/Lllllllleong/dailyuploadflow/internal/ledger"
	"github.com/Lllllllleong/dailyuploadflow/internal/models"
	"github.com/Lllllllleong/dailyuploadflow/internal/pipeline"
	"github.com/Lllllllleong/dailyuploadflow/internal/scheduler"
	"github.com/Lllllllleong/dailyuploadflow/internal/services"
	"github.com/Lllllllleong/dailyuploadflow/internal/source"
)

const notifyTimeout = 30 * time.Second

type notifier interface {
	Notify(ctx context.Context, note models.PublishedNotification) (string, error)
}

// App holds the wired collaborators of one uploader process.
type App struct {
	Config       *config.Config
	Source       source.Lister
	Ledger       ledger.Ledger
	Orchestrator *pipeline.Orchestrator
	Scheduler    *scheduler.Scheduler

	notifier notifier
	log      *slog.Logger
	closers  []func() error
}

// Status is a point-in-time view of the video folder.
type Status struct {
	Processed int
	Pending   int
	Next      string
}

// New builds every collaborator named in cfg. Clients opened before a
// failure are closed again.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (_ *App, err error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if log == nil {
		log = slog.Default()
	}
	a := &App{Config: cfg, log: log}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if a.Source, err = a.buildSource(ctx); err != nil {
		return nil, err
	}
	if a.Ledger, err = a.buildLedger(ctx); err != nil {
		return nil, err
	}
	enricher, err := a.buildDescriber(ctx)
	if err != nil {
		return nil, err
	}
	publisher, err := a.buildUploader(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.Notify.WorkflowID != "" {
		client, err := gcp.NewExecutionsClient(ctx)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		name := gcp.WorkflowName(cfg.ProjectID, cfg.Notify.Location, cfg.Notify.WorkflowID)
		if a.notifier, err = services.NewWorkflowNotifier(client, name, log); err != nil {
			return nil, err
		}
	}

	a.Orchestrator, err = pipeline.NewOrchestrator(a.Source, a.Ledger, enricher, publisher, pipeline.Options{
		Limits: contentLimits(cfg),
		Notes:  cfg.Enrichment.Context,
		Logger: log,
	})
	if err != nil {
		return nil, err
	}

	sc, err := cfg.SchedulerConfig()
	if err != nil {
		return nil, err
	}
	sc.Logger = log
	if a.Scheduler, err = scheduler.New(a.Orchestrator, sc); err != nil {
		return nil, err
	}
	return a, nil
}

func contentLimits(cfg *config.Config) models.ContentLimits {
	limits := models.DefaultContentLimits
	limits.MaxDescription = cfg.Enrichment.MaxDescriptionLength
	return limits
}

func (a *App) buildSource(ctx context.Context) (source.Lister, error) {
	sc := a.Config.Source
	switch sc.Kind {
	case config.SourceGCS:
		client, err := gcp.NewStorageClient(ctx)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return source.NewBucketSource(client, sc.Bucket, sc.Prefix, sc.Extensions)
	case config.SourceLocal:
		return source.NewDirSource(sc.Dir, sc.Extensions)
	default:
		return nil, fmt.Errorf("unknown source kind %q", sc.Kind)
	}
}

func (a *App) buildLedger(ctx context.Context) (ledger.Ledger, error) {
	lc := a.Config.Ledger
	switch lc.Kind {
	case config.LedgerFirestore:
		client, err := gcp.NewFirestoreClient(ctx, a.Config.ProjectID, lc.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return ledger.NewFirestoreLedger(client, lc.Collection, a.log)
	case config.LedgerFile:
		return ledger.NewFileLedger(lc.Path, a.log)
	default:
		return nil, fmt.Errorf("unknown ledger kind %q", lc.Kind)
	}
}

func (a *App) buildDescriber(ctx context.Context) (services.Describer, error) {
	ec := a.Config.Enrichment
	limits := contentLimits(a.Config)
	switch ec.Provider {
	case config.ProviderFilename:
		return services.NewFilenameDescriber(limits), nil
	case config.ProviderVertex:
		client, err := gcp.NewVertexClient(ctx, a.Config.ProjectID, ec.Region, gcp.DescriptionModelConfig{
			Model:       ec.Model,
			Temperature: float32(ec.Temperature),
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return services.NewVertexDescriber(client, limits, a.log)
	default:
		return nil, fmt.Errorf("unknown enrichment provider %q", ec.Provider)
	}
}

func (a *App) buildUploader(ctx context.Context) (services.Publisher, error) {
	pc := a.Config.Publish
	svc, err := gcp.NewYouTubeService(ctx, gcp.YouTubeCredentials{
		ClientID:     pc.ClientID,
		ClientSecret: pc.ClientSecret,
		TokenFile:    pc.TokenFile,
	})
	if err != nil {
		return nil, err
	}
	return services.NewYouTubeUploader(svc, a.Source.Open, services.UploaderConfig{
		CategoryID:    pc.CategoryID,
		PrivacyStatus: pc.PrivacyStatus,
		ChunkSize:     pc.ChunkSize,
		Thumbnails:    pc.Thumbnails,
	}, a.log)
}

// OnResult logs a finished run and, after a publish, starts the configured
// workflow. It is the scheduler's result callback.
func (a *App) OnResult(out pipeline.Outcome) {
	logCtx := a.log.With("runId", out.RunID, "status", out.Status, "duration", out.Duration().String())
	switch out.Status {
	case pipeline.StatusDone:
		logCtx.Info("Run finished, item published.", "item", out.ItemID(), "publishedId", out.PublishedID())
	case pipeline.StatusNoCandidate:
		logCtx.Info("Run finished, nothing to publish.")
	default:
		logCtx.Error("Run failed, will retry at the next scheduled time.", "stage", out.Stage, "error", out.Err)
	}

	if out.Status != pipeline.StatusDone || a.notifier == nil {
		return
	}
	note := models.PublishedNotification{
		RunID:       out.RunID,
		ItemID:      out.ItemID(),
		PublishedID: out.PublishedID(),
	}
	if out.Record != nil {
		note.URL = out.Record.URL
	}
	if out.Bundle != nil {
		note.Title = out.Bundle.Title
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if _, err := a.notifier.Notify(ctx, note); err != nil {
		logCtx.Warn("Published item was not handed to the workflow.", "error", err)
	}
}

// Status counts processed and pending items and reports the next
// scheduled run.
func (a *App) Status(ctx context.Context, now time.Time) (Status, error) {
	done, err := a.Ledger.All(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("failed to read ledger: %w", err)
	}
	pending, err := source.Pending(ctx, a.Source, func(id string) bool {
		_, ok := done[id]
		return ok
	})
	if err != nil {
		return Status{}, fmt.Errorf("failed to list items: %w", err)
	}
	st := Status{Processed: len(done), Pending: pending}
	if a.Scheduler != nil {
		st.Next = a.Scheduler.NextOccurrence(now).Format(time.RFC3339)
	}
	return st, nil
}

// Close releases every client opened by New, in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
