package dispatch

import (
	"context"
	"sync"

	"github.com/BaSui01/workflowproc/types"
)

// Dispatcher performs the actual work named by a pipeline step or a batch
// operation. Implementations are expected to be safe for concurrent use:
// the batch executor issues up to max_parallel InvokeOperation calls at once.
type Dispatcher interface {
	// Invoke runs the named tool with the given parameters.
	Invoke(ctx context.Context, tool string, params map[string]any) (any, error)
	// InvokeOperation runs an operation against a file path.
	InvokeOperation(ctx context.Context, filePath, operationType string, params map[string]any) (any, error)
}

// Reverter is an optional capability of a Dispatcher. When present, the
// pipeline executor calls Revert for each previously successful step when a
// rollback is requested. A dispatcher without this capability makes rollback
// a no-op; the engine logs that, it never pretends a compensation happened.
type Reverter interface {
	// Revert undoes the effects of a previously successful Invoke call.
	Revert(ctx context.Context, tool string, params map[string]any) error
}

// ToolFunc executes a single tool invocation.
type ToolFunc func(ctx context.Context, params map[string]any) (any, error)

// OperationFunc executes a single file operation.
type OperationFunc func(ctx context.Context, filePath string, params map[string]any) (any, error)

// Registry is a Dispatcher backed by named function tables. Tools and
// operations are registered by the embedding application; the engine only
// ever sees the Dispatcher interface.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]ToolFunc
	ops   map[string]OperationFunc
	undos map[string]ToolFunc
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]ToolFunc),
		ops:   make(map[string]OperationFunc),
		undos: make(map[string]ToolFunc),
	}
}

// RegisterTool registers a tool under the given name, replacing any previous
// registration.
func (r *Registry) RegisterTool(name string, fn ToolFunc) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = fn
	return r
}

// RegisterOperation registers a batch operation type.
func (r *Registry) RegisterOperation(operationType string, fn OperationFunc) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[operationType] = fn
	return r
}

// RegisterUndo registers a compensating action for a tool. Tools without a
// registered undo are skipped during rollback.
func (r *Registry) RegisterUndo(name string, fn ToolFunc) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.undos[name] = fn
	return r
}

// Tools returns the names of all registered tools.
func (r *Registry) Tools() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Invoke implements Dispatcher.
func (r *Registry) Invoke(ctx context.Context, tool string, params map[string]any) (any, error) {
	r.mu.RLock()
	fn, ok := r.tools[tool]
	r.mu.RUnlock()
	if !ok {
		return nil, types.Errorf(types.ErrToolNotFound, "tool %q is not registered", tool).WithTool(tool)
	}
	return fn(ctx, params)
}

// InvokeOperation implements Dispatcher.
func (r *Registry) InvokeOperation(ctx context.Context, filePath, operationType string, params map[string]any) (any, error) {
	r.mu.RLock()
	fn, ok := r.ops[operationType]
	r.mu.RUnlock()
	if !ok {
		return nil, types.Errorf(types.ErrOperationNotFound, "operation %q is not registered", operationType)
	}
	return fn(ctx, filePath, params)
}

// Revert implements Reverter. Tools without a registered undo are a no-op.
func (r *Registry) Revert(ctx context.Context, tool string, params map[string]any) error {
	r.mu.RLock()
	fn, ok := r.undos[tool]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	_, err := fn(ctx, params)
	return err
}

// revertThrough forwards a Revert call to next when it supports the Reverter
// capability. Middlewares use this so decoration never strips rollback.
func revertThrough(ctx context.Context, next Dispatcher, tool string, params map[string]any) error {
	if rev, ok := next.(Reverter); ok {
		return rev.Revert(ctx, tool, params)
	}
	return nil
}
