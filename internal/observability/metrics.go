package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors exported on /metrics. All collectors are
// registered on Registry rather than the global default registry.
type Metrics struct {
	Registry *prometheus.Registry

	Summons             *prometheus.CounterVec
	EventParticipations *prometheus.CounterVec
	GroupEvents         *prometheus.CounterVec
	LevelUps            prometheus.Counter
	RestoreSweeps       prometheus.Counter
	RestoreUpdated      prometheus.Counter
	RestoreFailures     prometheus.Counter
	RestoreDuration     prometheus.Histogram
	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
}

// NewMetrics builds a fresh registry with process and Go runtime collectors
// plus the application collectors.
//
// Postcondition: Returns a Metrics whose collectors are all registered on Registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Summons: f.NewCounterVec(prometheus.CounterOpts{
			Name: "waifu_summons_total",
			Help: "Total number of summons by rarity and mode.",
		}, []string{"rarity", "mode"}),
		EventParticipations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "waifu_event_participations_total",
			Help: "Total number of event participation attempts by result.",
		}, []string{"event", "result"}),
		GroupEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "waifu_group_events_total",
			Help: "Total number of finalized group events by outcome.",
		}, []string{"outcome"}),
		LevelUps: f.NewCounter(prometheus.CounterOpts{
			Name: "waifu_level_ups_total",
			Help: "Total number of character level-up transitions.",
		}),
		RestoreSweeps: f.NewCounter(prometheus.CounterOpts{
			Name: "waifu_restore_sweeps_total",
			Help: "Total number of completed restoration sweeps.",
		}),
		RestoreUpdated: f.NewCounter(prometheus.CounterOpts{
			Name: "waifu_restore_characters_updated_total",
			Help: "Total number of characters updated by restoration sweeps.",
		}),
		RestoreFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "waifu_restore_character_failures_total",
			Help: "Total number of per-character failures during restoration sweeps.",
		}),
		RestoreDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "waifu_restore_sweep_duration_seconds",
			Help:    "Duration of restoration sweeps.",
			Buckets: prometheus.DefBuckets,
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "waifu_http_requests_total",
			Help: "Total number of HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "waifu_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}
