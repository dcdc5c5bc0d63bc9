package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ledgerchat"

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics groups the engine collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	stateOps      *prometheus.CounterVec
	stateDuration *prometheus.HistogramVec
	steps         *prometheus.CounterVec
	merges        *prometheus.CounterVec
	submits       *prometheus.HistogramVec
	reported      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on a fresh registry,
// alongside the Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stateOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_operations_total",
			Help:      "State store operations by operation and result.",
		}, []string{"op", "result"}),
		stateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "state_operation_duration_seconds",
			Help:      "Duration of state store operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flow_steps_total",
			Help:      "Handled flow steps by flow and outcome.",
		}, []string{"flow", "status"}),
		merges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merges_total",
			Help:      "Upstream response merges by kind and result.",
		}, []string{"kind", "result"}),
		submits: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_submit_duration_seconds",
			Help:      "Duration of upstream submissions by flow.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"flow", "result"}),
		reported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reported_errors_total",
			Help:      "Errors handed to the error reporter by error type.",
		}, []string{"error_type"}),
	}
	m.registry.MustRegister(
		m.stateOps, m.stateDuration, m.steps, m.merges, m.submits, m.reported,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// StateOp records one state store operation.
func (m *Metrics) StateOp(op string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.stateOps.WithLabelValues(op, result(err)).Inc()
	m.stateDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// Step records the outcome of one handled message.
func (m *Metrics) Step(flow, status string) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(flow, status).Inc()
}

// Merge records one merge attempt. kind is "full" or "action".
func (m *Metrics) Merge(kind string, ok bool) {
	if m == nil {
		return
	}
	res := ResultOK
	if !ok {
		res = ResultError
	}
	m.merges.WithLabelValues(kind, res).Inc()
}

// Submit records one upstream submission.
func (m *Metrics) Submit(flow string, d time.Duration, ok bool) {
	if m == nil {
		return
	}
	res := ResultOK
	if !ok {
		res = ResultError
	}
	m.submits.WithLabelValues(flow, res).Observe(d.Seconds())
}

// Reported records one error handed to the reporter.
func (m *Metrics) Reported(errorType string) {
	if m == nil {
		return
	}
	m.reported.WithLabelValues(errorType).Inc()
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
