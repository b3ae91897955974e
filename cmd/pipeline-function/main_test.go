package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Lllllllleong/dailyuploadflow/internal/app"
	"github.com/Lllllllleong/dailyuploadflow/internal/pipeline"
	"github.com/Lllllllleong/dailyuploadflow/internal/scheduler"
)

type blockingRunner struct {
	started chan struct{}
	release chan struct{}
}

func (r *blockingRunner) Run(ctx context.Context) pipeline.Outcome {
	close(r.started)
	<-r.release
	return pipeline.Outcome{Status: pipeline.StatusNoCandidate}
}

func TestRunPipelineRejectsGet(t *testing.T) {
	rec := httptest.NewRecorder()
	runPipeline(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestRunPipelineConflictWhileRunning(t *testing.T) {
	runner := &blockingRunner{started: make(chan struct{}), release: make(chan struct{})}
	s, err := scheduler.New(runner, scheduler.Config{})
	if err != nil {
		t.Fatal(err)
	}
	once.Do(func() {})
	instance, initErr = &app.App{Scheduler: s}, nil

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.RunOnce(context.Background())
	}()
	select {
	case <-runner.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not start")
	}

	rec := httptest.NewRecorder()
	runPipeline(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}

	close(runner.release)
	<-done
}
