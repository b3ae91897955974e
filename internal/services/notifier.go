package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/Lllllllleong/dailyuploadflow/internal/models"
	"github.com/googleapis/gax-go/v2"
)

// executionCreator is the part of *executions.Client we use.
type executionCreator interface {
	CreateExecution(ctx context.Context, req *executionspb.CreateExecutionRequest, opts ...gax.CallOption) (*executionspb.Execution, error)
}

var _ executionCreator = (*executions.Client)(nil)

// WorkflowNotifier hands a published video to a Cloud Workflow, for example
// to cross-post or archive the source file.
type WorkflowNotifier struct {
	client   executionCreator
	workflow string
	log      *slog.Logger
}

// NewWorkflowNotifier targets the fully qualified workflow resource name.
func NewWorkflowNotifier(client *executions.Client, workflow string, log *slog.Logger) (*WorkflowNotifier, error) {
	if client == nil {
		return nil, errors.New("executions client is required")
	}
	return newWorkflowNotifier(client, workflow, log)
}

func newWorkflowNotifier(client executionCreator, workflow string, log *slog.Logger) (*WorkflowNotifier, error) {
	if workflow == "" {
		return nil, errors.New("workflow name is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &WorkflowNotifier{client: client, workflow: workflow, log: log.With("workflow", workflow)}, nil
}

// Notify starts one workflow execution for a published item and returns
// the execution name.
func (n *WorkflowNotifier) Notify(ctx context.Context, note models.PublishedNotification) (string, error) {
	payload, err := json.Marshal(note)
	if err != nil {
		return "", fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	exec, err := n.client.CreateExecution(ctx, &executionspb.CreateExecutionRequest{
		Parent: n.workflow,
		Execution: &executionspb.Execution{
			Argument: string(payload),
		},
	})
	if err != nil {
		n.log.Error("Failed to trigger workflow execution.", "item", note.ItemID, "error", err)
		return "", fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	n.log.Info("Triggered workflow execution.", "item", note.ItemID, "execution", exec.GetName())
	return exec.GetName(), nil
}
