package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	jobRuns         *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	jobSkipped      *prometheus.CounterVec
	snapshotVersion prometheus.Gauge
	alertsTriggered *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	lastPrice       *prometheus.GaugeVec
	latency         *prometheus.HistogramVec
}

// New creates a recorder registered with the default Prometheus registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors with reg. Tests pass a fresh registry.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		jobRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxcockpit_job_runs_total",
				Help: "Scheduled job runs by result (success, error, timeout, panic)",
			},
			[]string{"job", "result"},
		),
		jobDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fxcockpit_job_duration_seconds",
				Help:    "Duration of scheduled job runs in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"job"},
		),
		jobSkipped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxcockpit_job_skipped_total",
				Help: "Ticks skipped because the previous run was still in flight",
			},
			[]string{"job"},
		),
		snapshotVersion: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "fxcockpit_snapshot_version",
				Help: "Version of the latest published snapshot",
			},
		),
		alertsTriggered: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxcockpit_alerts_triggered_total",
				Help: "Alert rules fired",
			},
			[]string{"symbol"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxcockpit_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fxcockpit_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fxcockpit_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordJobRun records one finished job run.
func (r *Recorder) RecordJobRun(job, result string, seconds float64) {
	r.jobRuns.WithLabelValues(job, result).Inc()
	r.jobDuration.WithLabelValues(job).Observe(seconds)
}

func (r *Recorder) RecordJobSkipped(job string) {
	r.jobSkipped.WithLabelValues(job).Inc()
}

func (r *Recorder) RecordSnapshotVersion(version uint64) {
	r.snapshotVersion.Set(float64(version))
}

func (r *Recorder) RecordAlertTriggered(symbol string) {
	r.alertsTriggered.WithLabelValues(symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
