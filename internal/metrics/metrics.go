package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReadingsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floodwatch_readings_ingested_total",
			Help: "Total sensor readings successfully ingested",
		},
		[]string{"node", "flood_status"},
	)

	ReadingsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floodwatch_readings_rejected_total",
			Help: "Total sensor readings rejected at ingest",
		},
		[]string{"reason"},
	)

	IngestLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "floodwatch_ingest_latency_seconds",
			Help:    "Sensor ingest handler latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	AlertsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floodwatch_alerts_recorded_total",
			Help: "Total flood alerts opened",
		},
		[]string{"node", "flood_status"},
	)

	AlertPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "floodwatch_alert_publish_errors_total",
			Help: "Total failures publishing alert events downstream",
		},
	)
)
