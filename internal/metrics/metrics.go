// Package metrics exposes the server's health and query-throughput
// counters as prometheus instruments, collected independently of the
// wire protocol so the debug listener of internal/debugsrv can serve
// them without the protocol ever depending on an observability surface.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the server's prometheus instruments, registered on a
// private registry so a process embedding queryserverd's library code
// does not collide with its own default registry.
type Metrics struct {
	ConnectionsAccepted prometheus.Counter
	ActivePairs         prometheus.Gauge
	QueriesRun          prometheus.Counter
	QueriesCancelled    prometheus.Counter
	QueriesTimedOut     prometheus.Counter

	Registry *prometheus.Registry
}

// New constructs and registers the full instrument set.
func New() *Metrics {
	m := &Metrics{
		ConnectionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queryserverd_connections_accepted_total",
			Help: "Connections accepted by the listener.",
		}),
		ActivePairs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queryserverd_active_pairs",
			Help: "Connection pairs currently registered with the supervisor.",
		}),
		QueriesRun: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queryserverd_queries_run_total",
			Help: "Goal-worker queries dispatched, across run and run_async.",
		}),
		QueriesCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queryserverd_queries_cancelled_total",
			Help: "Queries whose terminal result was cancel_goal.",
		}),
		QueriesTimedOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queryserverd_queries_timed_out_total",
			Help: "Queries whose terminal result was time_limit_exceeded.",
		}),
		Registry: prometheus.NewRegistry(),
	}

	m.Registry.MustRegister(
		m.ConnectionsAccepted,
		m.ActivePairs,
		m.QueriesRun,
		m.QueriesCancelled,
		m.QueriesTimedOut,
	)
	return m
}
