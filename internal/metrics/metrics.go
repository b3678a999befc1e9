package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels operations that completed.
	OutcomeSuccess = "success"
	// OutcomeError labels operations that failed (bad input, export or cache issues).
	OutcomeError = "error"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_aiops",
			Name:      "runs_total",
			Help:      "Total number of correlation runs handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	runDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mirador_aiops",
			Name:      "run_seconds",
			Help:      "Correlation run latency in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	rootCauses = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mirador_aiops",
			Name:      "root_causes",
			Help:      "Root-cause nodes flagged by the most recent run.",
		},
	)

	detectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_aiops",
			Name:      "detections_total",
			Help:      "Events scored by the anomaly detector, partitioned by label.",
		},
		[]string{"label"},
	)
)

// Register attaches mirador-aiops collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		runsTotal,
		runDurationSeconds,
		rootCauses,
		detectionsTotal,
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

// ObserveRun records a run duration, outcome label and root-cause count.
func ObserveRun(duration time.Duration, outcome string, roots int) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	runsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	runDurationSeconds.Observe(duration.Seconds())
	if label == OutcomeSuccess {
		rootCauses.Set(float64(roots))
	}
}

// ObserveDetections counts scored events split into normal and anomalous.
func ObserveDetections(total, anomalies int) {
	if anomalies > 0 {
		detectionsTotal.WithLabelValues("anomaly").Add(float64(anomalies))
	}
	if normal := total - anomalies; normal > 0 {
		detectionsTotal.WithLabelValues("normal").Add(float64(normal))
	}
}
