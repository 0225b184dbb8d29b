package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the playback pipeline.
type Metrics struct {
	// Ingestion metrics
	ChunksReceived prometheus.Counter
	BytesReceived  prometheus.Counter
	BytesDropped   prometheus.Counter

	// Scheduling metrics
	FramesScheduled  prometheus.Counter
	QueueDepth       prometheus.Gauge
	StreamsCompleted prometheus.Counter
	StreamsStopped   prometheus.Counter

	// Turn metrics
	TurnsCompleted prometheus.Counter
	TurnsDiscarded prometheus.Counter
	TurnBytes      prometheus.Histogram

	// Protocol metrics
	EventsReceived *prometheus.CounterVec

	// Delivery metrics
	DeliveryRequests *prometheus.CounterVec
}

// New creates all pipeline metrics registered against reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ChunksReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxstream_chunks_received_total",
			Help: "Total number of raw PCM chunks submitted to the playback engine",
		}),
		BytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxstream_bytes_received_total",
			Help: "Total number of raw PCM bytes submitted to the playback engine",
		}),
		BytesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxstream_bytes_dropped_total",
			Help: "Total number of torn trailing bytes dropped during PCM decode",
		}),
		FramesScheduled: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxstream_frames_scheduled_total",
			Help: "Total number of audio frames committed to the output device",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voxstream_playback_queue_depth",
			Help: "Current number of frames waiting to be scheduled",
		}),
		StreamsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxstream_streams_completed_total",
			Help: "Total number of playback streams that drained to completion",
		}),
		StreamsStopped: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxstream_streams_stopped_total",
			Help: "Total number of playback streams cancelled by stop",
		}),
		TurnsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxstream_turns_completed_total",
			Help: "Total number of turns flushed to the delivery collaborator",
		}),
		TurnsDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxstream_turns_discarded_total",
			Help: "Total number of in-flight turns discarded on interruption",
		}),
		TurnBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "voxstream_turn_bytes",
			Help:    "Decoded PCM payload size of completed turns in bytes",
			Buckets: prometheus.ExponentialBuckets(4_096, 4, 8),
		}),
		EventsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voxstream_events_received_total",
			Help: "Total number of classified protocol events by kind",
		}, []string{"kind"}),
		DeliveryRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voxstream_delivery_requests_total",
			Help: "Total number of playback-device requests by operation and outcome",
		}, []string{"operation", "outcome"}),
	}
}
