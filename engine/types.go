package engine

import (
	"github.com/BaSui01/workflowproc/types"
)

// EngineName is the fixed identifier naming this engine on every response.
const EngineName = "workflow_processor"

// ExecutionMode selects which executor runs.
type ExecutionMode string

const (
	// ModePipeline runs an ordered list of steps sequentially.
	ModePipeline ExecutionMode = "pipeline"
	// ModeBatch runs independent operations under a concurrency cap.
	ModeBatch ExecutionMode = "batch"
	// ModeHybrid runs a pipeline phase, then conditionally a batch phase.
	ModeHybrid ExecutionMode = "hybrid"
)

// ErrorPolicy governs pipeline behavior after a failed step.
type ErrorPolicy string

const (
	// PolicyHalt stops the pipeline at the failed step. This is the default.
	PolicyHalt ErrorPolicy = "halt"
	// PolicyContinue proceeds to the next step regardless of the failure.
	PolicyContinue ErrorPolicy = "continue"
	// PolicyRollback compensates already-committed steps, then proceeds.
	PolicyRollback ErrorPolicy = "rollback"
)

// Step is one unit of pipeline work. Owned by the caller; the engine never
// mutates it.
type Step struct {
	Tool    string         `json:"tool"`
	Params  map[string]any `json:"params,omitempty"`
	OnError ErrorPolicy    `json:"on_error,omitempty"`
}

// policy returns the effective error policy, halt when unset.
func (s Step) policy() ErrorPolicy {
	if s.OnError == "" {
		return PolicyHalt
	}
	return s.OnError
}

// BatchOperation is one unit of batch work. Operations carry no ordering
// dependency on one another, which is what justifies concurrent execution.
type BatchOperation struct {
	FilePath      string         `json:"file_path"`
	OperationType string         `json:"operation_type"`
	Parameters    map[string]any `json:"parameters,omitempty"`
}

// ExecutionOptions tunes how a request executes. Atomic is a pointer so an
// absent field keeps its default of true.
type ExecutionOptions struct {
	Atomic      *bool `json:"atomic,omitempty"`
	MaxParallel int   `json:"max_parallel,omitempty"`
}

// ErrorHandlingOptions tunes batch failure handling.
type ErrorHandlingOptions struct {
	MaxFailures int `json:"max_failures,omitempty"`
}

// Request is the caller-facing workflow request.
type Request struct {
	Mode             ExecutionMode         `json:"mode"`
	Pipeline         []Step                `json:"pipeline,omitempty"`
	ExecutionOptions *ExecutionOptions     `json:"execution_options,omitempty"`
	BatchOperations  []BatchOperation      `json:"batch_operations,omitempty"`
	ErrorHandling    *ErrorHandlingOptions `json:"error_handling,omitempty"`
}

// StepResult records one attempted unit of work. Produced exactly once per
// attempted step or operation and never mutated afterwards.
type StepResult struct {
	Success      bool   `json:"success"`
	DurationMS   int64  `json:"duration_ms"`
	ErrorMessage string `json:"error_message,omitempty"`
	Output       any    `json:"output,omitempty"`
}

// WorkflowResult is the aggregate produced by one executor phase.
type WorkflowResult struct {
	Success        bool
	CompletedSteps int
	FailedSteps    int
	StepResults    []StepResult
	ErrorCode      types.ErrorCode
	ErrorMessage   string
}

// Response is the caller-facing wire shape wrapping a WorkflowResult.
type Response struct {
	Success         bool            `json:"success"`
	Tool            string          `json:"tool"`
	Mode            string          `json:"mode,omitempty"`
	CompletedSteps  int             `json:"completed_steps"`
	FailedSteps     int             `json:"failed_steps"`
	TotalDurationMS int64           `json:"total_duration_ms"`
	ErrorCode       types.ErrorCode `json:"error,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	StepResults     []StepResult    `json:"step_results,omitempty"`
}

// Defaults are the engine-level fallbacks applied when a request omits
// execution or error-handling options.
type Defaults struct {
	Atomic      bool
	MaxParallel int
	MaxFailures int
}

// DefaultSettings returns the stock defaults: atomic halts, three parallel
// batch slots, ten tolerated batch failures.
func DefaultSettings() Defaults {
	return Defaults{
		Atomic:      true,
		MaxParallel: 3,
		MaxFailures: 10,
	}
}

// execSettings are the fully resolved options for one invocation.
type execSettings struct {
	atomic      bool
	maxParallel int
	maxFailures int
}

// settings resolves request options against the engine defaults.
func (e *Engine) settings(req *Request) execSettings {
	set := execSettings{
		atomic:      e.defaults.Atomic,
		maxParallel: e.defaults.MaxParallel,
		maxFailures: e.defaults.MaxFailures,
	}
	if opts := req.ExecutionOptions; opts != nil {
		if opts.Atomic != nil {
			set.atomic = *opts.Atomic
		}
		if opts.MaxParallel > 0 {
			set.maxParallel = opts.MaxParallel
		}
	}
	if eh := req.ErrorHandling; eh != nil && eh.MaxFailures > 0 {
		set.maxFailures = eh.MaxFailures
	}
	return set
}
