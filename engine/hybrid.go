package engine

import (
	"context"

	"go.uber.org/zap"
)

// runHybrid composes the pipeline executor and the batch executor. A failed
// pipeline phase short-circuits: its result is returned unchanged and the
// batch phase never runs.
func (e *Engine) runHybrid(ctx context.Context, req *Request, set execSettings) WorkflowResult {
	pipeRes := e.runPipeline(ctx, req.Pipeline, set)
	if !pipeRes.Success {
		e.logger.Info("hybrid pipeline phase failed, skipping batch phase",
			zap.Int("failed_steps", pipeRes.FailedSteps))
		return pipeRes
	}

	batchRes := e.runBatch(ctx, req.BatchOperations, set)

	return WorkflowResult{
		Success:        pipeRes.Success && batchRes.Success,
		CompletedSteps: pipeRes.CompletedSteps + batchRes.CompletedSteps,
		FailedSteps:    pipeRes.FailedSteps + batchRes.FailedSteps,
		StepResults:    append(pipeRes.StepResults, batchRes.StepResults...),
		ErrorCode:      batchRes.ErrorCode,
		ErrorMessage:   batchRes.ErrorMessage,
	}
}
