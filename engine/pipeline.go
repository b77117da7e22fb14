package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/workflowproc/dispatch"
	"github.com/BaSui01/workflowproc/types"
)

// runPipeline executes steps strictly in submission order, one at a time.
// Dispatcher failures are data, not errors: a failed call becomes a failed
// StepResult and the step's on_error policy decides what happens next.
func (e *Engine) runPipeline(ctx context.Context, steps []Step, set execSettings) WorkflowResult {
	res := WorkflowResult{Success: true}

	// Successful steps, in order, as compensation candidates.
	var committed []Step

	for i, step := range steps {
		sr := e.dispatchStep(ctx, step)
		res.StepResults = append(res.StepResults, sr)

		if sr.Success {
			res.CompletedSteps++
			committed = append(committed, step)
			continue
		}
		res.FailedSteps++

		switch step.policy() {
		case PolicyContinue:
			// Failure recorded; next step runs regardless.

		case PolicyRollback:
			e.compensate(ctx, committed)
			committed = nil

		default: // halt
			if set.atomic {
				e.compensate(ctx, committed)
			}
			res.Success = false
			res.ErrorCode = types.ErrPipelineFailed
			res.ErrorMessage = fmt.Sprintf("pipeline halted at step %d (%s): %s", i, step.Tool, sr.ErrorMessage)
			return res
		}
	}

	res.Success = res.FailedSteps == 0
	if !res.Success {
		res.ErrorCode = types.ErrPipelineFailed
		res.ErrorMessage = fmt.Sprintf("%d of %d pipeline steps failed", res.FailedSteps, len(res.StepResults))
	}
	return res
}

// dispatchStep invokes one tool and measures the call with the monotonic
// clock.
func (e *Engine) dispatchStep(ctx context.Context, step Step) StepResult {
	start := time.Now()
	out, err := e.dispatcher.Invoke(ctx, step.Tool, step.Params)
	duration := time.Since(start)

	sr := StepResult{
		Success:    err == nil,
		DurationMS: duration.Milliseconds(),
	}
	if err != nil {
		sr.ErrorMessage = err.Error()
	} else {
		sr.Output = out
	}

	e.metrics.RecordStep("pipeline_step", sr.Success, duration)
	e.logger.Debug("pipeline step finished",
		zap.String("tool", step.Tool),
		zap.Bool("success", sr.Success),
		zap.Duration("duration", duration))
	return sr
}

// compensate reverts committed steps in reverse order. A dispatcher without
// the Reverter capability makes this a logged no-op; the engine never
// pretends a compensation happened.
func (e *Engine) compensate(ctx context.Context, committed []Step) {
	if len(committed) == 0 {
		return
	}
	rev, ok := e.dispatcher.(dispatch.Reverter)
	if !ok {
		e.logger.Warn("rollback requested but dispatcher has no revert capability, skipping",
			zap.Int("committed_steps", len(committed)))
		return
	}
	for i := len(committed) - 1; i >= 0; i-- {
		step := committed[i]
		if err := rev.Revert(ctx, step.Tool, step.Params); err != nil {
			// Compensation failures are logged, not recorded as step results.
			e.logger.Error("compensation failed",
				zap.String("tool", step.Tool),
				zap.Error(err))
		}
	}
}
