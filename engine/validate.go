package engine

import (
	"github.com/BaSui01/workflowproc/types"
)

// validate checks that a request names a supported mode and carries the
// collections that mode requires. Any violation fails the whole call before
// a single step is dispatched. No side effects.
func validate(req *Request) *types.Error {
	if req == nil {
		return types.NewError(types.ErrInvalidParameters, "request must not be empty")
	}

	switch req.Mode {
	case ModePipeline:
		if req.Pipeline == nil {
			return types.NewError(types.ErrInvalidParameters, "pipeline mode requires a pipeline step list")
		}
	case ModeBatch:
		if req.BatchOperations == nil {
			return types.NewError(types.ErrInvalidParameters, "batch mode requires a batch_operations list")
		}
	case ModeHybrid:
		if req.Pipeline == nil {
			return types.NewError(types.ErrInvalidParameters, "hybrid mode requires a pipeline step list")
		}
		if req.BatchOperations == nil {
			return types.NewError(types.ErrInvalidParameters, "hybrid mode requires a batch_operations list")
		}
	default:
		return types.Errorf(types.ErrUnknownCommand, "unsupported execution mode %q", string(req.Mode))
	}

	for i, step := range req.Pipeline {
		if step.Tool == "" {
			return types.Errorf(types.ErrInvalidParameters, "pipeline step %d: tool is required", i)
		}
		switch step.OnError {
		case "", PolicyHalt, PolicyContinue, PolicyRollback:
		default:
			return types.Errorf(types.ErrInvalidParameters, "pipeline step %d: unknown on_error policy %q", i, string(step.OnError))
		}
	}

	for i, op := range req.BatchOperations {
		if op.OperationType == "" {
			return types.Errorf(types.ErrInvalidParameters, "batch operation %d: operation_type is required", i)
		}
	}

	return nil
}
