package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Entities is the number of live entities in the cache, by entity type.
	Entities = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "airdash_entities",
			Help: "Number of entities currently held in the entity cache.",
		},
		[]string{"type"},
	)

	EntityUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airdash_entity_updates_total",
			Help: "Total number of updates merged into the entity cache.",
		},
		[]string{"type"},
	)

	SourceErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airdash_source_errors_total",
			Help: "Total number of errors reported by data sources.",
		},
		[]string{"source_type"}, // VESSEL or AIRCRAFT
	)

	DecodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airdash_decode_errors_total",
			Help: "Total number of messages dropped because they failed to decode or validate.",
		},
		[]string{"protocol"},
	)

	SourceReconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "airdash_source_reconnects_total",
			Help: "Total number of reconnect attempts made by streaming data sources.",
		},
	)

	Polls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airdash_polls_total",
			Help: "Total number of ADS-B poll cycles.",
		},
		[]string{"result"}, // success or failure
	)

	PollDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "airdash_poll_duration_seconds",
			Help:    "Duration of ADS-B poll requests.",
			Buckets: prometheus.DefBuckets,
		},
	)

	ForwardDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "airdash_forward_dropped_total",
			Help: "Total number of entity updates dropped because the Loki forward queue was full.",
		},
	)
)

func init() {
	prometheus.MustRegister(Entities)
	prometheus.MustRegister(EntityUpdates)
	prometheus.MustRegister(SourceErrors)
	prometheus.MustRegister(DecodeErrors)
	prometheus.MustRegister(SourceReconnects)
	prometheus.MustRegister(Polls)
	prometheus.MustRegister(PollDuration)
	prometheus.MustRegister(ForwardDropped)
}
