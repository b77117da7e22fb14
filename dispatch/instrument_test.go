package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInstrumentation_PassesThroughResults(t *testing.T) {
	reg := NewRegistry().
		RegisterTool("echo", func(ctx context.Context, params map[string]any) (any, error) {
			return params["message"], nil
		}).
		RegisterOperation("stat", func(ctx context.Context, filePath string, params map[string]any) (any, error) {
			return filePath, nil
		})

	// nil collector: metrics disabled, logging still works.
	d := WithInstrumentation(reg, zap.NewNop(), nil)
	ctx := context.Background()

	out, err := d.Invoke(ctx, "echo", map[string]any{"message": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", out)

	out, err = d.InvokeOperation(ctx, "a.txt", "stat", nil)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", out)
}

func TestInstrumentation_PassesThroughErrors(t *testing.T) {
	boom := errors.New("boom")
	reg := NewRegistry().
		RegisterTool("bad", func(ctx context.Context, params map[string]any) (any, error) {
			return nil, boom
		})

	d := WithInstrumentation(reg, zap.NewNop(), nil)

	_, err := d.Invoke(context.Background(), "bad", nil)
	assert.ErrorIs(t, err, boom)
}

func TestInstrumentation_ForwardsRevert(t *testing.T) {
	reverted := false
	reg := NewRegistry().
		RegisterUndo("write", func(ctx context.Context, params map[string]any) (any, error) {
			reverted = true
			return nil, nil
		})

	d := WithInstrumentation(reg, zap.NewNop(), nil)

	require.NoError(t, d.Revert(context.Background(), "write", nil))
	assert.True(t, reverted)
}
