package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/BaSui01/workflowproc/types"
)

func countingRegistry(calls *int) *Registry {
	return NewRegistry().
		RegisterTool("echo", func(ctx context.Context, params map[string]any) (any, error) {
			*calls++
			return "ok", nil
		}).
		RegisterOperation("touch", func(ctx context.Context, filePath string, params map[string]any) (any, error) {
			*calls++
			return "ok", nil
		})
}

func TestRateLimit_NilLimiterPassesThrough(t *testing.T) {
	calls := 0
	d := WithRateLimit(countingRegistry(&calls), nil)

	out, err := d.Invoke(context.Background(), "echo", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 1, calls)
}

func TestRateLimit_ThrottlesCalls(t *testing.T) {
	calls := 0
	// 100/s with burst 1: the second call must wait roughly 10ms.
	d := WithRateLimit(countingRegistry(&calls), rate.NewLimiter(rate.Limit(100), 1))
	ctx := context.Background()

	start := time.Now()
	_, err := d.Invoke(ctx, "echo", nil)
	require.NoError(t, err)
	_, err = d.InvokeOperation(ctx, "f.txt", "touch", nil)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
	assert.Equal(t, 2, calls)
}

func TestRateLimit_CanceledWait(t *testing.T) {
	calls := 0
	d := WithRateLimit(countingRegistry(&calls), rate.NewLimiter(rate.Limit(1), 1))

	ctx, cancel := context.WithCancel(context.Background())
	_, err := d.Invoke(ctx, "echo", nil)
	require.NoError(t, err)

	cancel()
	_, err = d.Invoke(ctx, "echo", nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrRateLimited, types.GetErrorCode(err))
	assert.Equal(t, 1, calls)
}
