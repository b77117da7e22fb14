package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector gathers workflow execution metrics. All record methods are
// nil-receiver safe so callers can leave metrics unconfigured.
type Collector struct {
	// Workflow metrics
	workflowsTotal   *prometheus.CounterVec
	workflowDuration *prometheus.HistogramVec

	// Step / operation metrics
	stepsTotal   *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec

	// Batch metrics
	batchInFlight prometheus.Gauge
	breakerTrips  *prometheus.CounterVec

	// Dispatcher metrics
	dispatchTotal *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector creates a metrics collector registered with the default
// Prometheus registerer under the given namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.workflowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflows_total",
			Help:      "Total number of workflow executions",
		},
		[]string{"mode", "status"},
	)

	c.workflowDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_duration_seconds",
			Help:      "Wall-clock duration of whole workflow executions",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	c.stepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Total number of attempted steps and operations",
		},
		[]string{"kind", "status"},
	)

	c.stepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of individual dispatcher calls",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	c.batchInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_operations_in_flight",
			Help:      "Number of batch operations currently running",
		},
	)

	c.breakerTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_trips_total",
			Help:      "Number of times a failure threshold stopped batch submission",
		},
		[]string{"mode"},
	)

	c.dispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_calls_total",
			Help:      "Total dispatcher calls by tool or operation name",
		},
		[]string{"kind", "name", "status"},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// RecordWorkflow records one completed workflow execution.
func (c *Collector) RecordWorkflow(mode string, success bool, duration time.Duration) {
	if c == nil {
		return
	}
	c.workflowsTotal.WithLabelValues(mode, statusLabel(success)).Inc()
	c.workflowDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordStep records one attempted step or batch operation.
func (c *Collector) RecordStep(kind string, success bool, duration time.Duration) {
	if c == nil {
		return
	}
	c.stepsTotal.WithLabelValues(kind, statusLabel(success)).Inc()
	c.stepDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// BatchSlotAcquired marks one batch operation as in flight.
func (c *Collector) BatchSlotAcquired() {
	if c == nil {
		return
	}
	c.batchInFlight.Inc()
}

// BatchSlotReleased marks one batch operation as finished.
func (c *Collector) BatchSlotReleased() {
	if c == nil {
		return
	}
	c.batchInFlight.Dec()
}

// RecordBreakerTrip records a max_failures circuit breaker trip.
func (c *Collector) RecordBreakerTrip(mode string) {
	if c == nil {
		return
	}
	c.breakerTrips.WithLabelValues(mode).Inc()
}

// RecordDispatch records one raw dispatcher call.
func (c *Collector) RecordDispatch(kind, name string, success bool) {
	if c == nil {
		return
	}
	c.dispatchTotal.WithLabelValues(kind, name, statusLabel(success)).Inc()
}
