package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TracerMetrics 定义追踪业务监控指标
type TracerMetrics struct {
	LogQueriesTotal   prometheus.Counter
	StateReadsTotal   *prometheus.CounterVec
	ReadRetriesTotal  prometheus.Counter
	ReconnectsTotal   prometheus.Counter
	ChangeEventsTotal prometheus.Counter
	ScanDuration      prometheus.Histogram
}

// Global Metrics Instance
var Tracer *TracerMetrics

// InitTracerMetrics 初始化业务指标
func InitTracerMetrics() {
	Tracer = &TracerMetrics{
		LogQueriesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tracer_log_queries_total",
			Help: "The total number of getLogs sub-range queries issued",
		}),
		StateReadsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tracer_state_reads_total",
			Help: "The total number of historical state reads",
		}, []string{"status"}),
		ReadRetriesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tracer_read_retries_total",
			Help: "The total number of watch-mode read retries",
		}),
		ReconnectsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tracer_reconnects_total",
			Help: "The total number of subscription reconnects",
		}),
		ChangeEventsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tracer_change_events_total",
			Help: "The total number of value-change notifications delivered",
		}),
		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracer_scan_duration_seconds",
			Help:    "Duration of full block-range scans",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
