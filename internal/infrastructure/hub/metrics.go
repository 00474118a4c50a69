package hub

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the hub's Prometheus collectors. A nil *Metrics disables
// instrumentation, which tests use.
type Metrics struct {
	OpenConnections prometheus.Gauge
	Registrations   prometheus.Counter
	LimitRejections prometheus.Counter
	Evictions       prometheus.Counter
	Reaped          *prometheus.CounterVec
	EventsDelivered *prometheus.CounterVec
	EventsFailed    *prometheus.CounterVec
}

// NewMetrics creates and registers the hub metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OpenConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tableback_hub_open_connections",
			Help: "Number of currently open push connections",
		}),
		Registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tableback_hub_registrations_total",
			Help: "Total number of accepted connection registrations",
		}),
		LimitRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tableback_hub_limit_rejections_total",
			Help: "Total number of registrations rejected by the tenant cap",
		}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tableback_hub_evictions_total",
			Help: "Total number of oldest-connection evictions under the subject cap",
		}),
		Reaped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tableback_hub_reaped_total",
				Help: "Total number of connections closed by the reaper, by reason",
			},
			[]string{"reason"},
		),
		EventsDelivered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tableback_hub_events_delivered_total",
				Help: "Total number of per-connection event deliveries, by event type",
			},
			[]string{"type"},
		),
		EventsFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tableback_hub_events_failed_total",
				Help: "Total number of per-connection delivery failures, by event type",
			},
			[]string{"type"},
		),
	}

	reg.MustRegister(
		m.OpenConnections,
		m.Registrations,
		m.LimitRejections,
		m.Evictions,
		m.Reaped,
		m.EventsDelivered,
		m.EventsFailed,
	)

	return m
}
