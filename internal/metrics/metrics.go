// Package metrics instruments the batch runner with Prometheus
// collectors. A run can dump them to a node-exporter textfile.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Well outcome labels.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

var (
	WellsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wormtrack_wells_processed_total",
			Help: "Wells processed by the batch runner, by outcome",
		},
		[]string{"status"},
	)

	WellDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wormtrack_well_duration_seconds",
			Help:    "Wall time to load and analyse one well",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8), // 1ms .. ~16s
		},
	)

	SpeedCorrections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wormtrack_speed_corrections_total",
			Help: "Speed spikes replaced by an earlier in-range value",
		},
	)

	BatchesDiscovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wormtrack_batches_discovered_total",
			Help: "Batch directories containing at least one trajectory",
		},
	)

	WellsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wormtrack_wells_in_flight",
			Help: "Wells currently being analysed",
		},
	)
)

// ObserveWell records the outcome of one well.
func ObserveWell(status string, elapsed time.Duration, corrections int) {
	WellsProcessed.WithLabelValues(status).Inc()
	if status != StatusSkipped {
		WellDuration.Observe(elapsed.Seconds())
	}
	if corrections > 0 {
		SpeedCorrections.Add(float64(corrections))
	}
}

// WriteTextfile writes every registered metric in the text exposition
// format, for the node exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
