package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("dqsweep/orchestrator")

var (
	rowsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dqsweep_rows_written_total",
		Help: "Measurement rows appended to the result table",
	})

	combinationsPruned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dqsweep_combinations_pruned_total",
		Help: "Measurements not taken because the metric or error does not apply to the column type",
	}, []string{"stage"})

	resumeSkips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dqsweep_resume_skips_total",
		Help: "Column and metric pairs skipped because an earlier run measured them",
	})

	corruptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dqsweep_corruptions_total",
		Help: "Corrupted columns produced, by error generator",
	}, []string{"error"})

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dqsweep_batch_duration_seconds",
		Help:    "Time to measure and persist one batch",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	})
)
