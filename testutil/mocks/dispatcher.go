// MockDispatcher is a test double for the Tool Dispatcher consumed by the
// workflow engine.
//
// It supports fixed results, error injection, per-call functions, call
// recording, and a high-water mark of concurrently active calls for
// asserting concurrency caps.
package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/workflowproc/types"
)

// ToolFunc executes one mocked tool call.
type ToolFunc func(ctx context.Context, params map[string]any) (any, error)

// OperationFunc executes one mocked batch operation.
type OperationFunc func(ctx context.Context, filePath string, params map[string]any) (any, error)

// Call records one dispatcher invocation.
type Call struct {
	Kind     string // "tool", "operation", or "revert"
	Name     string // tool name or operation type
	FilePath string
	Params   map[string]any
}

// MockDispatcher is a builder-style mock implementation of
// dispatch.Dispatcher and dispatch.Reverter.
type MockDispatcher struct {
	mu sync.Mutex

	toolFuncs   map[string]ToolFunc
	toolResults map[string]any
	toolErrors  map[string]error
	opFuncs     map[string]OperationFunc
	opErrors    map[string]error
	revertErrs  map[string]error

	defaultResult any

	calls []Call

	active    int
	maxActive int
}

// NewMockDispatcher creates an empty MockDispatcher. Unknown tools and
// operations succeed with the default result.
func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{
		toolFuncs:   make(map[string]ToolFunc),
		toolResults: make(map[string]any),
		toolErrors:  make(map[string]error),
		opFuncs:     make(map[string]OperationFunc),
		opErrors:    make(map[string]error),
		revertErrs:  make(map[string]error),
	}
}

// WithTool registers a function executed for the named tool.
func (m *MockDispatcher) WithTool(name string, fn ToolFunc) *MockDispatcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toolFuncs[name] = fn
	return m
}

// WithToolResult sets a fixed result for the named tool.
func (m *MockDispatcher) WithToolResult(name string, result any) *MockDispatcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toolResults[name] = result
	return m
}

// WithToolError makes the named tool fail with err.
func (m *MockDispatcher) WithToolError(name string, err error) *MockDispatcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toolErrors[name] = err
	return m
}

// WithOperation registers a function executed for the named operation type.
func (m *MockDispatcher) WithOperation(operationType string, fn OperationFunc) *MockDispatcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opFuncs[operationType] = fn
	return m
}

// WithOperationError makes the named operation type fail with err.
func (m *MockDispatcher) WithOperationError(operationType string, err error) *MockDispatcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opErrors[operationType] = err
	return m
}

// WithRevertError makes Revert fail for the named tool.
func (m *MockDispatcher) WithRevertError(name string, err error) *MockDispatcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revertErrs[name] = err
	return m
}

// WithDefaultResult sets the result returned for unregistered tools and
// operations.
func (m *MockDispatcher) WithDefaultResult(result any) *MockDispatcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultResult = result
	return m
}

func (m *MockDispatcher) enter(call Call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	m.active++
	if m.active > m.maxActive {
		m.maxActive = m.active
	}
}

func (m *MockDispatcher) exit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active--
}

// Invoke implements dispatch.Dispatcher.
func (m *MockDispatcher) Invoke(ctx context.Context, tool string, params map[string]any) (any, error) {
	m.enter(Call{Kind: "tool", Name: tool, Params: params})
	defer m.exit()

	m.mu.Lock()
	err, hasErr := m.toolErrors[tool]
	fn, hasFn := m.toolFuncs[tool]
	result, hasResult := m.toolResults[tool]
	def := m.defaultResult
	m.mu.Unlock()

	if hasErr {
		return nil, err
	}
	if hasFn {
		return fn(ctx, params)
	}
	if hasResult {
		return result, nil
	}
	return def, nil
}

// InvokeOperation implements dispatch.Dispatcher.
func (m *MockDispatcher) InvokeOperation(ctx context.Context, filePath, operationType string, params map[string]any) (any, error) {
	m.enter(Call{Kind: "operation", Name: operationType, FilePath: filePath, Params: params})
	defer m.exit()

	m.mu.Lock()
	err, hasErr := m.opErrors[operationType]
	fn, hasFn := m.opFuncs[operationType]
	def := m.defaultResult
	m.mu.Unlock()

	if hasErr {
		return nil, err
	}
	if hasFn {
		return fn(ctx, filePath, params)
	}
	return def, nil
}

// Revert implements dispatch.Reverter.
func (m *MockDispatcher) Revert(ctx context.Context, tool string, params map[string]any) error {
	m.enter(Call{Kind: "revert", Name: tool, Params: params})
	defer m.exit()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revertErrs[tool]
}

// Calls returns a copy of all recorded calls in order.
func (m *MockDispatcher) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsOf returns recorded calls of one kind.
func (m *MockDispatcher) CallsOf(kind string) []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Call
	for _, c := range m.calls {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// MaxActive returns the high-water mark of concurrently active calls.
func (m *MockDispatcher) MaxActive() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxActive
}

// FailingDispatcher is a dispatcher whose every call panics. It exercises
// the engine's panic containment.
type FailingDispatcher struct {
	PanicValue any
}

// Invoke implements dispatch.Dispatcher by panicking.
func (f *FailingDispatcher) Invoke(ctx context.Context, tool string, params map[string]any) (any, error) {
	panic(f.PanicValue)
}

// InvokeOperation implements dispatch.Dispatcher by panicking.
func (f *FailingDispatcher) InvokeOperation(ctx context.Context, filePath, operationType string, params map[string]any) (any, error) {
	panic(f.PanicValue)
}

// NotFoundError builds the dispatcher error used for unregistered tools.
func NotFoundError(tool string) error {
	return types.Errorf(types.ErrToolNotFound, "tool %q is not registered", tool).WithTool(tool)
}
