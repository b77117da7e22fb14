package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/BaSui01/workflowproc/types"
)

// runBatch executes operations under a max_parallel concurrency cap with a
// max_failures circuit breaker. A result slot is reserved per operation at
// submission time, so step_results stays ordered by submission index no
// matter which operation finishes first.
//
// The breaker is a cooperative stop condition checked at submission time
// only. Operations already in flight are never interrupted; they drain and
// their slots are still filled. Operations never started are simply absent
// from step_results.
func (e *Engine) runBatch(ctx context.Context, ops []BatchOperation, set execSettings) WorkflowResult {
	res := WorkflowResult{Success: true}
	if len(ops) == 0 {
		return res
	}

	sem := semaphore.NewWeighted(int64(set.maxParallel))
	results := make([]StepResult, len(ops))

	var (
		wg        sync.WaitGroup
		failures  atomic.Int64
		submitted int
		tripped   bool

		panicMu  sync.Mutex
		panicVal any
	)

	for i, op := range ops {
		if int(failures.Load()) >= set.maxFailures {
			tripped = true
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context canceled while waiting for a slot. Stop submitting;
			// in-flight operations drain below.
			e.logger.Warn("batch submission stopped", zap.Error(err))
			break
		}
		// Failures recorded while this submission was blocked count too.
		if int(failures.Load()) >= set.maxFailures {
			sem.Release(1)
			tripped = true
			break
		}

		submitted = i + 1
		wg.Add(1)
		go func(slot int, op BatchOperation) {
			defer wg.Done()
			defer sem.Release(1)

			// A recover deferred in Process cannot catch a panic raised
			// here. Capture it, count it as a failure so submission stops,
			// and re-raise it on the submitting goroutine after the drain.
			defer func() {
				if r := recover(); r != nil {
					panicMu.Lock()
					if panicVal == nil {
						panicVal = r
					}
					panicMu.Unlock()
					failures.Add(1)
				}
			}()

			e.metrics.BatchSlotAcquired()
			defer e.metrics.BatchSlotReleased()

			sr := e.dispatchOperation(ctx, op)
			results[slot] = sr
			if !sr.Success {
				failures.Add(1)
			}
		}(i, op)
	}

	wg.Wait()

	if panicVal != nil {
		panic(panicVal)
	}

	res.StepResults = results[:submitted]
	for _, sr := range res.StepResults {
		if sr.Success {
			res.CompletedSteps++
		} else {
			res.FailedSteps++
		}
	}
	res.Success = res.FailedSteps == 0

	switch {
	case tripped:
		e.metrics.RecordBreakerTrip("batch")
		res.ErrorCode = types.ErrMaxFailuresExceeded
		res.ErrorMessage = fmt.Sprintf("batch aborted after reaching max_failures (%d); %d of %d operations never started",
			set.maxFailures, len(ops)-submitted, len(ops))
	case !res.Success:
		res.ErrorCode = types.ErrBatchFailed
		res.ErrorMessage = "one or more batch operations failed"
	}
	return res
}

// dispatchOperation invokes one batch operation and measures the call with
// the monotonic clock.
func (e *Engine) dispatchOperation(ctx context.Context, op BatchOperation) StepResult {
	start := time.Now()
	out, err := e.dispatcher.InvokeOperation(ctx, op.FilePath, op.OperationType, op.Parameters)
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

	e.metrics.RecordStep("batch_operation", sr.Success, duration)
	e.logger.Debug("batch operation finished",
		zap.String("operation_type", op.OperationType),
		zap.String("file_path", op.FilePath),
		zap.Bool("success", sr.Success),
		zap.Duration("duration", duration))
	return sr
}
