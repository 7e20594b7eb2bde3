// Package observability defines the Prometheus collectors of the tracking
// pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "viofeat",
		Name:      "frames_processed_total",
		Help:      "Total number of frames run through the tracker",
	})

	FramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "viofeat",
		Name:      "frames_dropped_total",
		Help:      "Frames discarded by stereo sync or timestamp ordering",
	})

	ActiveLandmarks = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "viofeat",
		Name:      "active_landmarks",
		Help:      "Number of landmarks currently tracked",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "viofeat",
		Name:      "queue_depth",
		Help:      "Number of images buffered ahead of the consumer",
	})

	TrackDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "viofeat",
		Name:      "track_duration_seconds",
		Help:      "Per-frame tracker latency",
		Buckets:   prometheus.ExponentialBuckets(0.002, 2, 10),
	})
)
