package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/workflowproc/config"
	"github.com/BaSui01/workflowproc/dispatch"
	"github.com/BaSui01/workflowproc/engine"
	"github.com/BaSui01/workflowproc/types"
)

func TestEchoTool(t *testing.T) {
	reg := newBuiltinRegistry()
	result, err := reg.Invoke(context.Background(), "echo", map[string]any{"message": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", result)
}

func TestWriteFileToolAndUndo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	params := map[string]any{"path": path, "content": "payload"}

	reg := newBuiltinRegistry()
	n, err := reg.Invoke(context.Background(), "write_file", params)
	require.NoError(t, err)
	assert.Equal(t, len("payload"), n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	require.NoError(t, reg.Revert(context.Background(), "write_file", params))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteFileToolMissingParam(t *testing.T) {
	reg := newBuiltinRegistry()
	_, err := reg.Invoke(context.Background(), "write_file", map[string]any{"path": "x"})
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidParameters, types.GetErrorCode(err))
}

func TestFileOperations(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	reg := newBuiltinRegistry()
	ctx := context.Background()

	_, err := reg.InvokeOperation(ctx, path, "write", map[string]any{"content": "one"})
	require.NoError(t, err)

	_, err = reg.InvokeOperation(ctx, path, "append", map[string]any{"content": " two"})
	require.NoError(t, err)

	content, err := reg.InvokeOperation(ctx, path, "read", nil)
	require.NoError(t, err)
	assert.Equal(t, "one two", content)

	info, err := reg.InvokeOperation(ctx, path, "stat", nil)
	require.NoError(t, err)
	statMap, ok := info.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "data.txt", statMap["name"])
	assert.Equal(t, int64(len("one two")), statMap["size"])

	sum, err := reg.InvokeOperation(ctx, path, "checksum", nil)
	require.NoError(t, err)
	assert.Len(t, sum, 64)

	_, err = reg.InvokeOperation(ctx, path, "delete", nil)
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestUnknownOperation(t *testing.T) {
	reg := newBuiltinRegistry()
	_, err := reg.InvokeOperation(context.Background(), "f", "compress", nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrOperationNotFound, types.GetErrorCode(err))
}

// End-to-end sanity check: a rollback pipeline over the builtin file tools
// must remove the file written by the committed step.
func TestWorkflowRollbackRemovesWrittenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "staged.txt")

	eng := engine.New(newBuiltinRegistry())
	resp := eng.Process(context.Background(), &engine.Request{
		Mode: engine.ModePipeline,
		Pipeline: []engine.Step{
			{Tool: "write_file", Params: map[string]any{"path": path, "content": "staged"}},
			{Tool: "no_such_tool", OnError: engine.PolicyRollback},
			{Tool: "echo", Params: map[string]any{"message": "after"}},
		},
	})

	require.NotNil(t, resp)
	assert.False(t, resp.Success)
	assert.Equal(t, 2, resp.CompletedSteps)
	assert.Equal(t, 1, resp.FailedSteps)

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "rollback should have removed the staged file")
}

func TestBuildDispatcherChain(t *testing.T) {
	cfg := config.DispatcherConfig{
		RateLimit:      100,
		RateBurst:      10,
		BreakerEnabled: true,
		Breaker:        dispatch.DefaultBreakerConfig(),
	}
	d := buildDispatcher(cfg, nil, nil)
	result, err := d.Invoke(context.Background(), "echo", map[string]any{"message": "ok"})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}
