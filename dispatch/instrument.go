package dispatch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/workflowproc/internal/metrics"
)

// InstrumentedDispatcher adds structured logging and Prometheus metrics
// around every dispatcher call. The collector may be nil.
type InstrumentedDispatcher struct {
	next      Dispatcher
	logger    *zap.Logger
	collector *metrics.Collector
}

// WithInstrumentation wraps next with logging and metrics.
func WithInstrumentation(next Dispatcher, logger *zap.Logger, collector *metrics.Collector) *InstrumentedDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedDispatcher{
		next:      next,
		logger:    logger.With(zap.String("component", "dispatcher")),
		collector: collector,
	}
}

// Invoke implements Dispatcher.
func (d *InstrumentedDispatcher) Invoke(ctx context.Context, tool string, params map[string]any) (any, error) {
	start := time.Now()
	out, err := d.next.Invoke(ctx, tool, params)
	duration := time.Since(start)

	d.collector.RecordDispatch("tool", tool, err == nil)
	if err != nil {
		d.logger.Warn("tool invocation failed",
			zap.String("tool", tool),
			zap.Duration("duration", duration),
			zap.Error(err))
		return nil, err
	}
	d.logger.Debug("tool invocation completed",
		zap.String("tool", tool),
		zap.Duration("duration", duration))
	return out, nil
}

// InvokeOperation implements Dispatcher.
func (d *InstrumentedDispatcher) InvokeOperation(ctx context.Context, filePath, operationType string, params map[string]any) (any, error) {
	start := time.Now()
	out, err := d.next.InvokeOperation(ctx, filePath, operationType, params)
	duration := time.Since(start)

	d.collector.RecordDispatch("operation", operationType, err == nil)
	if err != nil {
		d.logger.Warn("operation failed",
			zap.String("operation_type", operationType),
			zap.String("file_path", filePath),
			zap.Duration("duration", duration),
			zap.Error(err))
		return nil, err
	}
	d.logger.Debug("operation completed",
		zap.String("operation_type", operationType),
		zap.String("file_path", filePath),
		zap.Duration("duration", duration))
	return out, nil
}

// Revert implements Reverter by forwarding to the wrapped dispatcher.
func (d *InstrumentedDispatcher) Revert(ctx context.Context, tool string, params map[string]any) error {
	err := revertThrough(ctx, d.next, tool, params)
	if err != nil {
		d.logger.Warn("compensation failed", zap.String("tool", tool), zap.Error(err))
	}
	return err
}
