package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/workflowproc/dispatch"
	"github.com/BaSui01/workflowproc/internal/metrics"
	"github.com/BaSui01/workflowproc/types"
)

// Engine executes workflow requests against an injected Tool Dispatcher.
// It holds no state between calls; concurrent Process calls are safe as
// long as the dispatcher tolerates concurrent use.
type Engine struct {
	dispatcher dispatch.Dispatcher
	logger     *zap.Logger
	metrics    *metrics.Collector
	tracer     trace.Tracer
	defaults   Defaults
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector. Nil disables metrics.
func WithMetrics(collector *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = collector }
}

// WithTracer sets the tracer used for Process spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// WithDefaults overrides the stock option defaults.
func WithDefaults(defaults Defaults) Option {
	return func(e *Engine) {
		if defaults.MaxParallel > 0 {
			e.defaults.MaxParallel = defaults.MaxParallel
		}
		if defaults.MaxFailures > 0 {
			e.defaults.MaxFailures = defaults.MaxFailures
		}
		e.defaults.Atomic = defaults.Atomic
	}
}

// New creates an Engine around the given dispatcher.
func New(dispatcher dispatch.Dispatcher, opts ...Option) *Engine {
	e := &Engine{
		dispatcher: dispatcher,
		logger:     zap.NewNop(),
		defaults:   DefaultSettings(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer("workflowproc/engine")
	}
	e.logger = e.logger.With(zap.String("component", "workflow_engine"))
	return e
}

// Process validates the request, runs the executor its mode selects, and
// wraps the outcome into a caller-facing Response. The response is always a
// well-formed structure: request-level errors, aggregate failures, and even
// internal panics all come back as a Response, never as a raised error.
func (e *Engine) Process(ctx context.Context, req *Request) (resp *Response) {
	start := time.Now()
	executionID := uuid.NewString()

	mode := ""
	if req != nil {
		mode = string(req.Mode)
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("workflow execution panicked",
				zap.String("execution_id", executionID),
				zap.String("mode", mode),
				zap.Any("panic", r),
				zap.Stack("stack"))
			total := time.Since(start)
			e.metrics.RecordWorkflow(mode, false, total)
			resp = &Response{
				Success:         false,
				Tool:            EngineName,
				Mode:            mode,
				ErrorCode:       types.ErrInternalError,
				ErrorMessage:    fmt.Sprintf("internal error: %v", r),
				TotalDurationMS: total.Milliseconds(),
			}
		}
	}()

	ctx, span := e.tracer.Start(ctx, "workflow.process",
		trace.WithAttributes(
			attribute.String("workflow.mode", mode),
			attribute.String("workflow.execution_id", executionID),
		))
	defer span.End()

	if verr := validate(req); verr != nil {
		e.logger.Warn("request rejected",
			zap.String("execution_id", executionID),
			zap.String("mode", mode),
			zap.Error(verr))
		span.RecordError(verr)
		return &Response{
			Success:         false,
			Tool:            EngineName,
			Mode:            mode,
			ErrorCode:       verr.Code,
			ErrorMessage:    verr.Message,
			TotalDurationMS: time.Since(start).Milliseconds(),
		}
	}

	set := e.settings(req)
	e.logger.Info("workflow started",
		zap.String("execution_id", executionID),
		zap.String("mode", mode),
		zap.Int("pipeline_steps", len(req.Pipeline)),
		zap.Int("batch_operations", len(req.BatchOperations)),
		zap.Int("max_parallel", set.maxParallel),
		zap.Int("max_failures", set.maxFailures),
		zap.Bool("atomic", set.atomic))

	var result WorkflowResult
	switch req.Mode {
	case ModePipeline:
		result = e.runPipeline(ctx, req.Pipeline, set)
	case ModeBatch:
		result = e.runBatch(ctx, req.BatchOperations, set)
	case ModeHybrid:
		result = e.runHybrid(ctx, req, set)
	}

	total := time.Since(start)
	e.metrics.RecordWorkflow(mode, result.Success, total)

	if !result.Success {
		if result.ErrorCode == "" {
			result.ErrorCode = types.ErrWorkflowFailed
		}
		if result.ErrorMessage == "" {
			result.ErrorMessage = "workflow failed"
		}
		span.RecordError(errors.New(result.ErrorMessage))
	}

	e.logger.Info("workflow finished",
		zap.String("execution_id", executionID),
		zap.String("mode", mode),
		zap.Bool("success", result.Success),
		zap.Int("completed_steps", result.CompletedSteps),
		zap.Int("failed_steps", result.FailedSteps),
		zap.Duration("total_duration", total))

	return &Response{
		Success:         result.Success,
		Tool:            EngineName,
		Mode:            mode,
		CompletedSteps:  result.CompletedSteps,
		FailedSteps:     result.FailedSteps,
		TotalDurationMS: total.Milliseconds(),
		ErrorCode:       result.ErrorCode,
		ErrorMessage:    result.ErrorMessage,
		StepResults:     result.StepResults,
	}
}
