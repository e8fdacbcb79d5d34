package observability

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the pod-level Prometheus collectors for the main loop,
// mirroring the counter/histogram style of the teacher's metrics.go but
// named for loop iterations and record outcomes rather than HTTP/AI calls.
type Metrics struct {
	LoopIterations  prometheus.Counter
	RecordsRead     prometheus.Counter
	RecordsCommitted prometheus.Counter
	RecordsRetried  prometheus.Counter
	RecordsSkipped  prometheus.Counter
	RecordsFailed   prometheus.Counter
	RecordsDeadLettered prometheus.Counter
	SinkWriteRetries prometheus.Counter
}

// NewMetrics constructs and registers the pod's metrics against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoopIterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pod_loop_iterations_total",
			Help: "Total number of main loop iterations executed.",
		}),
		RecordsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pod_records_read_total",
			Help: "Total number of records read from the source.",
		}),
		RecordsCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pod_records_committed_total",
			Help: "Total number of source records committed upstream.",
		}),
		RecordsRetried: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pod_records_retried_total",
			Help: "Total number of per-record retry outcomes.",
		}),
		RecordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pod_records_skipped_total",
			Help: "Total number of per-record skip outcomes.",
		}),
		RecordsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pod_records_failed_total",
			Help: "Total number of per-record fail outcomes that aborted the loop.",
		}),
		RecordsDeadLettered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pod_records_dead_lettered_total",
			Help: "Total number of records routed to the dead-letter producer.",
		}),
		SinkWriteRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pod_sink_write_retries_total",
			Help: "Total number of sink write retry attempts.",
		}),
	}

	reg.MustRegister(
		m.LoopIterations,
		m.RecordsRead,
		m.RecordsCommitted,
		m.RecordsRetried,
		m.RecordsSkipped,
		m.RecordsFailed,
		m.RecordsDeadLettered,
		m.SinkWriteRetries,
	)
	return m
}
