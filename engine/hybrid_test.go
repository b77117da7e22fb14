package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/BaSui01/workflowproc/testutil/mocks"
)

func TestHybrid_PipelineFailureSkipsBatch(t *testing.T) {
	md := mocks.NewMockDispatcher().
		WithToolError("prepare", errors.New("prepare exploded")).
		WithOperation("touch", func(ctx context.Context, filePath string, params map[string]any) (any, error) {
			return filePath, nil
		})
	eng := New(md)

	resp := eng.Process(context.Background(), &Request{
		Mode:            ModeHybrid,
		Pipeline:        []Step{{Tool: "prepare"}},
		BatchOperations: makeOps(5),
	})

	if resp.Success {
		t.Fatal("expected failure")
	}
	if got := len(md.CallsOf("operation")); got != 0 {
		t.Fatalf("batch executor must never run after a failed pipeline phase, saw %d calls", got)
	}
	// Returned result equals the pipeline-only result.
	if len(resp.StepResults) != 1 || resp.FailedSteps != 1 || resp.CompletedSteps != 0 {
		t.Fatalf("expected pipeline-only result, got %+v", resp)
	}
}

func TestHybrid_MergesPhases(t *testing.T) {
	md := mocks.NewMockDispatcher().
		WithToolResult("prepare", "prepared").
		WithToolResult("plan", "planned").
		WithOperation("touch", func(ctx context.Context, filePath string, params map[string]any) (any, error) {
			return filePath, nil
		})
	eng := New(md)

	resp := eng.Process(context.Background(), &Request{
		Mode:            ModeHybrid,
		Pipeline:        []Step{{Tool: "prepare"}, {Tool: "plan"}},
		BatchOperations: makeOps(3),
	})

	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	if resp.CompletedSteps != 5 || resp.FailedSteps != 0 {
		t.Fatalf("expected summed counts 5/0, got %d/%d", resp.CompletedSteps, resp.FailedSteps)
	}
	if len(resp.StepResults) != 5 {
		t.Fatalf("expected 5 merged results, got %d", len(resp.StepResults))
	}
	// Pipeline results precede batch results.
	if resp.StepResults[0].Output != "prepared" || resp.StepResults[1].Output != "planned" {
		t.Errorf("expected pipeline results first, got %+v", resp.StepResults[:2])
	}
	if resp.StepResults[2].Output != "file-0" {
		t.Errorf("expected batch results after pipeline, got %v", resp.StepResults[2].Output)
	}
}

func TestHybrid_BatchFailureFailsWhole(t *testing.T) {
	md := mocks.NewMockDispatcher().
		WithToolResult("prepare", "prepared").
		WithOperationError("touch", errors.New("touch exploded"))
	eng := New(md)

	resp := eng.Process(context.Background(), &Request{
		Mode:            ModeHybrid,
		Pipeline:        []Step{{Tool: "prepare"}},
		BatchOperations: makeOps(2),
	})

	if resp.Success {
		t.Fatal("success must be the logical AND of both phases")
	}
	if resp.CompletedSteps != 1 || resp.FailedSteps != 2 {
		t.Fatalf("expected 1/2, got %d/%d", resp.CompletedSteps, resp.FailedSteps)
	}
}
