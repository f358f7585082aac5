package prometheus

import (
	"time"

	"github.com/dissolveproject/dissolve/pkg/errors"
)

// AppMetrics holds every metric Dissolve exposes on /metrics (C14).
type AppMetrics struct {
	// EnergyKernel
	EnergyCallsTotal    CounterVec
	EnergyDuration      HistogramVec

	// Procedure
	ProcedureNodeDuration HistogramVec
	ProcedureNodeErrors   CounterVec

	// Pool
	PoolReductionsTotal    CounterVec
	PoolReductionDuration  HistogramVec

	// Configuration
	ConfigurationContentsVersion GaugeVec

	// Checkpoint / restart / topology / cache / index ambient stack
	CheckpointWritesTotal CounterVec
	CheckpointLoadTotal   CounterVec
	CacheHitsTotal        CounterVec
	CacheMissesTotal      CounterVec
	RunLogIndexedTotal    CounterVec

	// System Health
	ServiceUptime     GaugeVec
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

// Default Buckets
var (
	DefaultEnergyDurationBuckets    = []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1}
	DefaultProcedureDurationBuckets = []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 30}
	DefaultPoolDurationBuckets      = []float64{.0005, .001, .005, .01, .05, .1, .5, 1}
	DefaultDBDurationBuckets        = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
)

// NewAppMetrics registers every metric and returns the populated AppMetrics.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.EnergyCallsTotal = collector.RegisterCounter("energy_calls_total", "Total EnergyKernel evaluations", "method")
	m.EnergyDuration = collector.RegisterHistogram("energy_duration_seconds", "EnergyKernel evaluation duration", DefaultEnergyDurationBuckets, "method")

	m.ProcedureNodeDuration = collector.RegisterHistogram("procedure_node_duration_seconds", "Procedure node execution duration", DefaultProcedureDurationBuckets, "node_kind")
	m.ProcedureNodeErrors = collector.RegisterCounter("procedure_node_errors_total", "Procedure node execution failures", "node_kind", "error_code")

	m.PoolReductionsTotal = collector.RegisterCounter("pool_reductions_total", "Process pool reductions performed", "strategy", "operation")
	m.PoolReductionDuration = collector.RegisterHistogram("pool_reduction_duration_seconds", "Process pool reduction duration", DefaultPoolDurationBuckets, "strategy", "operation")

	m.ConfigurationContentsVersion = collector.RegisterGauge("configuration_contents_version", "Current Configuration contents-version", "run_id")

	m.CheckpointWritesTotal = collector.RegisterCounter("checkpoint_writes_total", "Checkpoint catalog writes", "status")
	m.CheckpointLoadTotal = collector.RegisterCounter("checkpoint_loads_total", "Checkpoint catalog loads", "status")
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Fast cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Fast cache misses", "cache")
	m.RunLogIndexedTotal = collector.RegisterCounter("run_log_indexed_total", "Run log lines indexed", "status")

	m.ServiceUptime = collector.RegisterGauge("service_uptime_seconds", "Service uptime", "service")
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "error_code")

	return m
}

// Helpers

// RecordEnergyCall records one EnergyKernel invocation.
func RecordEnergyCall(metrics *AppMetrics, method string, duration time.Duration) {
	metrics.EnergyCallsTotal.WithLabelValues(method).Inc()
	metrics.EnergyDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordProcedureNode records one Procedure node's execution.
func RecordProcedureNode(metrics *AppMetrics, nodeKind string, duration time.Duration, err error) {
	metrics.ProcedureNodeDuration.WithLabelValues(nodeKind).Observe(duration.Seconds())
	if err != nil {
		metrics.ProcedureNodeErrors.WithLabelValues(nodeKind, errors.GetCode(err).String()).Inc()
	}
}

// RecordPoolReduction records one ProcessPool reduction.
func RecordPoolReduction(metrics *AppMetrics, strategy, operation string, duration time.Duration) {
	metrics.PoolReductionsTotal.WithLabelValues(strategy, operation).Inc()
	metrics.PoolReductionDuration.WithLabelValues(strategy, operation).Observe(duration.Seconds())
}

// RecordCacheAccess records one fast-cache lookup outcome.
func RecordCacheAccess(metrics *AppMetrics, cache string, hit bool) {
	if hit {
		metrics.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		metrics.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

// RecordError increments the generic error counter for a component.
func RecordError(metrics *AppMetrics, component, code string) {
	metrics.ErrorsTotal.WithLabelValues(component, code).Inc()
}

// RecordErrorFromErr increments the generic error counter using the
// component and the ErrorCode carried by err, if any.
func RecordErrorFromErr(metrics *AppMetrics, component string, err error) {
	metrics.ErrorsTotal.WithLabelValues(component, errors.GetCode(err).String()).Inc()
}

// DefaultGRPCDurationBuckets bounds the status service's unary/stream RPCs,
// which are expected to return in low tens of milliseconds.
var DefaultGRPCDurationBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}

// GRPCMetrics instruments the status service's gRPC transport (C21):
// request counts and latencies per service/method/status-code.
type GRPCMetrics struct {
	UnaryRequestsTotal   CounterVec
	UnaryRequestDuration HistogramVec
	StreamRequestsTotal  CounterVec
	StreamRequestDuration HistogramVec
}

// NewGRPCMetrics registers the gRPC transport metrics.
func NewGRPCMetrics(collector MetricsCollector) *GRPCMetrics {
	return &GRPCMetrics{
		UnaryRequestsTotal:    collector.RegisterCounter("grpc_unary_requests_total", "Total unary RPCs served", "service", "method", "code"),
		UnaryRequestDuration:  collector.RegisterHistogram("grpc_unary_request_duration_seconds", "Unary RPC duration", DefaultGRPCDurationBuckets, "service", "method", "code"),
		StreamRequestsTotal:   collector.RegisterCounter("grpc_stream_requests_total", "Total stream RPCs served", "service", "method", "code"),
		StreamRequestDuration: collector.RegisterHistogram("grpc_stream_request_duration_seconds", "Stream RPC duration", DefaultGRPCDurationBuckets, "service", "method", "code"),
	}
}

// RecordUnaryRequest records one completed unary RPC.
func (m *GRPCMetrics) RecordUnaryRequest(service, method, code string, duration time.Duration) {
	if m == nil {
		return
	}
	m.UnaryRequestsTotal.WithLabelValues(service, method, code).Inc()
	m.UnaryRequestDuration.WithLabelValues(service, method, code).Observe(duration.Seconds())
}

// RecordStreamRequest records one completed stream RPC.
func (m *GRPCMetrics) RecordStreamRequest(service, method, code string, duration time.Duration) {
	if m == nil {
		return
	}
	m.StreamRequestsTotal.WithLabelValues(service, method, code).Inc()
	m.StreamRequestDuration.WithLabelValues(service, method, code).Observe(duration.Seconds())
}
