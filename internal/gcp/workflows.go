package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"

	"github.com/Lllllllleong/caselawarchive/internal/models"
)

// WorkflowTrigger starts a Cloud Workflows execution once a split run completes, so
// downstream jobs (index pages, sync) can pick up the new case PDFs.
type WorkflowTrigger struct {
	client   *executions.Client
	parent   string
	workflow string
}

// NewWorkflowTrigger creates an executions client for the given workflow.
func NewWorkflowTrigger(ctx context.Context, projectID, location, workflowID string) (*WorkflowTrigger, error) {
	if projectID == "" || workflowID == "" {
		return nil, fmt.Errorf("projectID and workflowID must be provided to trigger a workflow")
	}
	client, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}
	return &WorkflowTrigger{
		client:   client,
		parent:   WorkflowParent(projectID, location, workflowID),
		workflow: workflowID,
	}, nil
}

// WorkflowParent is the fully qualified workflow name executions are created under.
func WorkflowParent(projectID, location, workflowID string) string {
	return fmt.Sprintf("projects/%s/locations/%s/workflows/%s", projectID, location, workflowID)
}

// Handoff creates a workflow execution carrying the run summary.
func (w *WorkflowTrigger) Handoff(ctx context.Context, payload models.WorkflowHandoff) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: w.parent,
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	exec, err := w.client.CreateExecution(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	slog.Info("Triggered workflow.", "workflowId", w.workflow, "execution", exec.GetName())
	return nil
}

// Close releases the executions client.
func (w *WorkflowTrigger) Close() error {
	return w.client.Close()
}
