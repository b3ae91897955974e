package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/dailyuploadflow/internal/app"
	"github.com/Lllllllleong/dailyuploadflow/internal/config"
	"github.com/Lllllllleong/dailyuploadflow/internal/pipeline"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	instance *app.App
	once     sync.Once
	initErr  error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Cloud Scheduler calls RunPipeline over HTTP or publishes to a Pub/Sub
	// topic that triggers RunPipelineOnEvent.
	functions.HTTP("RunPipeline", runPipeline)
	functions.CloudEvent("RunPipelineOnEvent", runPipelineOnEvent)
}

// main is required by the Go Functions Framework.
func main() {}

func setup() (*app.App, error) {
	once.Do(func() {
		cfg, err := config.LoadDefaultFile()
		if err != nil {
			initErr = err
			return
		}
		instance, initErr = app.New(context.Background(), cfg, slog.Default())
	})
	return instance, initErr
}

func runPipeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	a, err := setup()
	if err != nil {
		slog.Error("Critical error during function initialization", "error", err)
		http.Error(w, "initialization failed", http.StatusInternalServerError)
		return
	}

	out, ran := a.Scheduler.RunOnce(r.Context())
	if !ran {
		writeJSON(w, http.StatusConflict, map[string]string{"status": "skipped", "error": "a run is already in progress"})
		return
	}
	a.OnResult(out)

	code := http.StatusOK
	if out.Status == pipeline.StatusFailed {
		code = http.StatusInternalServerError
	}
	writeJSON(w, code, out.Response())
}

func runPipelineOnEvent(ctx context.Context, e cloudevents.Event) error {
	a, err := setup()
	if err != nil {
		slog.Error("Critical error during function initialization", "error", err)
		return err
	}
	logCtx := slog.With("eventId", e.ID(), "eventType", e.Type())
	logCtx.Info("Received trigger event.")

	out, ran := a.Scheduler.RunOnce(ctx)
	if !ran {
		logCtx.Warn("Skipping event, a run is already in progress.")
		return nil
	}
	a.OnResult(out)
	// Failures stay in the logs; the item is picked again on the next trigger.
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
