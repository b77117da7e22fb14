package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/workflowproc/types"
)

// BreakerState is the state of a per-tool circuit breaker.
type BreakerState int

const (
	// BreakerClosed allows calls through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects all calls.
	BreakerOpen
	// BreakerHalfOpen allows a limited number of probe calls.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures the per-tool circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int `json:"failure_threshold" yaml:"failure_threshold"`
	// RecoveryTimeout is how long the circuit stays open before probing.
	RecoveryTimeout time.Duration `json:"recovery_timeout" yaml:"recovery_timeout"`
	// HalfOpenMaxProbes caps probe calls while half-open.
	HalfOpenMaxProbes int `json:"half_open_max_probes" yaml:"half_open_max_probes"`
	// SuccessThresholdInHalfOpen is the consecutive successes needed to close again.
	SuccessThresholdInHalfOpen int `json:"success_threshold_in_half_open" yaml:"success_threshold_in_half_open"`
}

// DefaultBreakerConfig returns the default breaker configuration.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold:           5,
		RecoveryTimeout:            30 * time.Second,
		HalfOpenMaxProbes:          3,
		SuccessThresholdInHalfOpen: 2,
	}
}

// breaker is the state machine guarding a single tool or operation type.
type breaker struct {
	key             string
	config          BreakerConfig
	state           BreakerState
	failures        int
	successes       int
	probeCount      int
	lastFailureTime time.Time
	logger          *zap.Logger
	mu              sync.Mutex
}

func newBreaker(key string, config BreakerConfig, logger *zap.Logger) *breaker {
	return &breaker{
		key:    key,
		config: config,
		state:  BreakerClosed,
		logger: logger.With(zap.String("breaker_key", key)),
	}
}

// allow reports whether a call may proceed, transitioning open breakers to
// half-open once the recovery timeout has elapsed.
func (b *breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return nil

	case BreakerOpen:
		if time.Since(b.lastFailureTime) >= b.config.RecoveryTimeout {
			b.transitionTo(BreakerHalfOpen, "recovery timeout elapsed")
			b.probeCount = 1
			b.successes = 0
			return nil
		}
		return fmt.Errorf("circuit open for %s: %d consecutive failures, retry after %v",
			b.key, b.failures, b.config.RecoveryTimeout-time.Since(b.lastFailureTime))

	case BreakerHalfOpen:
		if b.probeCount < b.config.HalfOpenMaxProbes {
			b.probeCount++
			return nil
		}
		return fmt.Errorf("circuit half-open for %s: max probes (%d) reached",
			b.key, b.config.HalfOpenMaxProbes)

	default:
		return fmt.Errorf("unknown circuit state: %d", b.state)
	}
}

func (b *breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		b.failures = 0

	case BreakerHalfOpen:
		b.successes++
		if b.successes >= b.config.SuccessThresholdInHalfOpen {
			b.transitionTo(BreakerClosed, fmt.Sprintf("%d consecutive successes in half-open", b.successes))
			b.failures = 0
			b.successes = 0
		}
	}
}

func (b *breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailureTime = time.Now()

	switch b.state {
	case BreakerClosed:
		if b.failures >= b.config.FailureThreshold {
			b.transitionTo(BreakerOpen, fmt.Sprintf("%d consecutive failures", b.failures))
		}

	case BreakerHalfOpen:
		// Any failure while half-open reopens the circuit.
		b.successes = 0
		b.transitionTo(BreakerOpen, "failure in half-open state")
	}
}

func (b *breaker) currentState() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// transitionTo must be called with b.mu held.
func (b *breaker) transitionTo(newState BreakerState, reason string) {
	oldState := b.state
	b.state = newState
	b.logger.Info("circuit breaker state change",
		zap.String("old_state", oldState.String()),
		zap.String("new_state", newState.String()),
		zap.String("reason", reason),
		zap.Int("failures", b.failures))
}

// BreakerDispatcher wraps a Dispatcher with one circuit breaker per tool
// name and per operation type, so a single flaky tool cannot take unrelated
// tools down with it.
type BreakerDispatcher struct {
	next     Dispatcher
	config   BreakerConfig
	logger   *zap.Logger
	breakers map[string]*breaker
	mu       sync.Mutex
}

// WithBreaker wraps next with per-tool circuit breaking.
func WithBreaker(next Dispatcher, config BreakerConfig, logger *zap.Logger) *BreakerDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BreakerDispatcher{
		next:     next,
		config:   config,
		logger:   logger,
		breakers: make(map[string]*breaker),
	}
}

func (d *BreakerDispatcher) breakerFor(key string) *breaker {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.breakers[key]; ok {
		return b
	}
	b := newBreaker(key, d.config, d.logger)
	d.breakers[key] = b
	return b
}

// State returns the breaker state for a tool, for observability.
func (d *BreakerDispatcher) State(tool string) BreakerState {
	return d.breakerFor("tool:" + tool).currentState()
}

// Invoke implements Dispatcher.
func (d *BreakerDispatcher) Invoke(ctx context.Context, tool string, params map[string]any) (any, error) {
	b := d.breakerFor("tool:" + tool)
	if err := b.allow(); err != nil {
		return nil, types.NewError(types.ErrCircuitOpen, "call rejected by circuit breaker").
			WithTool(tool).
			WithRetryable(true).
			WithCause(err)
	}
	out, err := d.next.Invoke(ctx, tool, params)
	if err != nil {
		b.recordFailure()
		return nil, err
	}
	b.recordSuccess()
	return out, nil
}

// InvokeOperation implements Dispatcher.
func (d *BreakerDispatcher) InvokeOperation(ctx context.Context, filePath, operationType string, params map[string]any) (any, error) {
	b := d.breakerFor("op:" + operationType)
	if err := b.allow(); err != nil {
		return nil, types.NewError(types.ErrCircuitOpen, "operation rejected by circuit breaker").
			WithRetryable(true).
			WithCause(err)
	}
	out, err := d.next.InvokeOperation(ctx, filePath, operationType, params)
	if err != nil {
		b.recordFailure()
		return nil, err
	}
	b.recordSuccess()
	return out, nil
}

// Revert implements Reverter by forwarding to the wrapped dispatcher.
// Compensations bypass the breaker: refusing to undo committed work because
// the circuit is open would leave the caller worse off.
func (d *BreakerDispatcher) Revert(ctx context.Context, tool string, params map[string]any) error {
	return revertThrough(ctx, d.next, tool, params)
}
