package dispatch

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/BaSui01/workflowproc/types"
)

// RateLimitedDispatcher throttles all calls through a shared token bucket.
// Pipeline steps and batch operations draw from the same bucket, so the
// limit bounds total dispatcher pressure regardless of execution mode.
type RateLimitedDispatcher struct {
	next    Dispatcher
	limiter *rate.Limiter
}

// WithRateLimit wraps next with the given limiter. A nil limiter means
// no throttling.
func WithRateLimit(next Dispatcher, limiter *rate.Limiter) *RateLimitedDispatcher {
	return &RateLimitedDispatcher{next: next, limiter: limiter}
}

func (d *RateLimitedDispatcher) wait(ctx context.Context) error {
	if d.limiter == nil {
		return nil
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return types.NewError(types.ErrRateLimited, "rate limit wait aborted").
			WithRetryable(true).
			WithCause(err)
	}
	return nil
}

// Invoke implements Dispatcher.
func (d *RateLimitedDispatcher) Invoke(ctx context.Context, tool string, params map[string]any) (any, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	return d.next.Invoke(ctx, tool, params)
}

// InvokeOperation implements Dispatcher.
func (d *RateLimitedDispatcher) InvokeOperation(ctx context.Context, filePath, operationType string, params map[string]any) (any, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	return d.next.InvokeOperation(ctx, filePath, operationType, params)
}

// Revert implements Reverter by forwarding to the wrapped dispatcher.
// Compensations are not throttled.
func (d *RateLimitedDispatcher) Revert(ctx context.Context, tool string, params map[string]any) error {
	return revertThrough(ctx, d.next, tool, params)
}
