package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "remedy_engine",
			Name:      "runs_total",
			Help:      "Total number of remediation runs, partitioned by final status.",
		},
		[]string{"status"},
	)

	runDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "remedy_engine",
			Name:      "run_seconds",
			Help:      "End-to-end run latency in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	actionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "remedy_engine",
			Name:      "actions_total",
			Help:      "Executed actions, partitioned by execution status.",
		},
		[]string{"status"},
	)

	stageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "remedy_engine",
			Name:      "stage_seconds",
			Help:      "Per-stage pipeline latency in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"stage"},
	)

	issuesMatched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "remedy_engine",
			Name:      "issues_matched_total",
			Help:      "Issues reported by the pattern matcher.",
		},
	)
)

// Register attaches remedy-engine collectors to the supplied Prometheus
// registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		runsTotal,
		runDurationSeconds,
		actionsTotal,
		stageDurationSeconds,
		issuesMatched,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRun records a finished run with its terminal status.
func ObserveRun(duration time.Duration, status string) {
	runsTotal.WithLabelValues(status).Inc()
	if duration < 0 {
		duration = 0
	}
	runDurationSeconds.Observe(duration.Seconds())
}

// ObserveAction counts one execution outcome.
func ObserveAction(status string) {
	actionsTotal.WithLabelValues(status).Inc()
}

// ObserveStage records one pipeline stage duration.
func ObserveStage(stage string, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	stageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// AddIssuesMatched bumps the matched-issue counter.
func AddIssuesMatched(n int) {
	if n > 0 {
		issuesMatched.Add(float64(n))
	}
}
