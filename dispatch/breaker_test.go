package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/workflowproc/types"
)

func testBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold:           3,
		RecoveryTimeout:            20 * time.Millisecond,
		HalfOpenMaxProbes:          2,
		SuccessThresholdInHalfOpen: 2,
	}
}

func flakyRegistry(fail *bool) *Registry {
	return NewRegistry().
		RegisterTool("flaky", func(ctx context.Context, params map[string]any) (any, error) {
			if *fail {
				return nil, errors.New("flaky failure")
			}
			return "ok", nil
		}).
		RegisterTool("stable", func(ctx context.Context, params map[string]any) (any, error) {
			return "stable", nil
		})
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	fail := true
	d := WithBreaker(flakyRegistry(&fail), testBreakerConfig(), zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := d.Invoke(ctx, "flaky", nil)
		require.Error(t, err)
	}
	assert.Equal(t, BreakerOpen, d.State("flaky"))

	// Calls are now rejected without reaching the tool.
	_, err := d.Invoke(ctx, "flaky", nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrCircuitOpen, types.GetErrorCode(err))
}

func TestBreaker_PerToolIsolation(t *testing.T) {
	fail := true
	d := WithBreaker(flakyRegistry(&fail), testBreakerConfig(), zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = d.Invoke(ctx, "flaky", nil)
	}
	require.Equal(t, BreakerOpen, d.State("flaky"))

	// An unrelated tool is unaffected.
	out, err := d.Invoke(ctx, "stable", nil)
	require.NoError(t, err)
	assert.Equal(t, "stable", out)
	assert.Equal(t, BreakerClosed, d.State("stable"))
}

func TestBreaker_RecoversThroughHalfOpen(t *testing.T) {
	fail := true
	d := WithBreaker(flakyRegistry(&fail), testBreakerConfig(), zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = d.Invoke(ctx, "flaky", nil)
	}
	require.Equal(t, BreakerOpen, d.State("flaky"))

	// Wait out the recovery timeout, then succeed twice to close again.
	time.Sleep(25 * time.Millisecond)
	fail = false

	_, err := d.Invoke(ctx, "flaky", nil)
	require.NoError(t, err)
	assert.Equal(t, BreakerHalfOpen, d.State("flaky"))

	_, err = d.Invoke(ctx, "flaky", nil)
	require.NoError(t, err)
	assert.Equal(t, BreakerClosed, d.State("flaky"))
}

func TestBreaker_FailureInHalfOpenReopens(t *testing.T) {
	fail := true
	d := WithBreaker(flakyRegistry(&fail), testBreakerConfig(), zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = d.Invoke(ctx, "flaky", nil)
	}
	time.Sleep(25 * time.Millisecond)

	// Probe fails: straight back to open.
	_, err := d.Invoke(ctx, "flaky", nil)
	require.Error(t, err)
	assert.Equal(t, BreakerOpen, d.State("flaky"))
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	fail := true
	d := WithBreaker(flakyRegistry(&fail), testBreakerConfig(), zap.NewNop())
	ctx := context.Background()

	_, _ = d.Invoke(ctx, "flaky", nil)
	_, _ = d.Invoke(ctx, "flaky", nil)

	fail = false
	_, err := d.Invoke(ctx, "flaky", nil)
	require.NoError(t, err)

	// Two more failures do not reach the threshold of three.
	fail = true
	_, _ = d.Invoke(ctx, "flaky", nil)
	_, _ = d.Invoke(ctx, "flaky", nil)
	assert.Equal(t, BreakerClosed, d.State("flaky"))
}

func TestBreaker_RevertBypassesBreaker(t *testing.T) {
	reverted := false
	reg := NewRegistry().
		RegisterTool("write", func(ctx context.Context, params map[string]any) (any, error) {
			return nil, errors.New("always fails")
		}).
		RegisterUndo("write", func(ctx context.Context, params map[string]any) (any, error) {
			reverted = true
			return nil, nil
		})
	d := WithBreaker(reg, testBreakerConfig(), zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = d.Invoke(ctx, "write", nil)
	}
	require.Equal(t, BreakerOpen, d.State("write"))

	// Compensation still goes through.
	require.NoError(t, d.Revert(ctx, "write", nil))
	assert.True(t, reverted)
}

func TestBreakerState_String(t *testing.T) {
	assert.Equal(t, "closed", BreakerClosed.String())
	assert.Equal(t, "open", BreakerOpen.String())
	assert.Equal(t, "half_open", BreakerHalfOpen.String())
	assert.Equal(t, "unknown", BreakerState(42).String())
}
