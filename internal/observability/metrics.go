package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	recordPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "analytics_service",
		Subsystem: "persistence",
		Name:      "last_record_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent daily productivity record persisted to Postgres.",
	})
	rollupCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "analytics_service",
		Subsystem: "rollup",
		Name:      "weekly_rollups_total",
		Help:      "Number of weekly team metrics rollups written.",
	})
	rollupGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "analytics_service",
		Subsystem: "rollup",
		Name:      "last_rollup_timestamp_seconds",
		Help:      "Unix timestamp of the most recent weekly rollup upsert.",
	})
)

func init() {
	prometheus.MustRegister(recordPersistGauge, rollupCounter, rollupGauge)
}

// RecordProductivityPersisted updates the persistence watermark gauge.
func RecordProductivityPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	recordPersistGauge.Set(float64(ts.Unix()))
}

// RecordRollupWritten tracks weekly rollup upserts.
func RecordRollupWritten(ts time.Time) {
	rollupCounter.Inc()
	if !ts.IsZero() {
		rollupGauge.Set(float64(ts.Unix()))
	}
}
