// Package metrics holds the Prometheus collectors describing server activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hashdelivery"

// Metrics groups the collectors updated by the TCP server.
type Metrics struct {
	ConnectionsAccepted prometheus.Counter
	ConnectionsActive   prometheus.Gauge
	Requests            *prometheus.CounterVec
	ConnectionErrors    *prometheus.CounterVec
}

// New creates the collectors and registers them, together with a gauge
// reporting storeSize, on reg.
func New(reg prometheus.Registerer, storeSize func() int) (*Metrics, error) {
	m := &Metrics{
		ConnectionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_accepted_total",
			Help:      "Number of accepted client connections.",
		}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Number of connections currently being served.",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests served, by request type and response status.",
		}, []string{"type", "status"}),
		ConnectionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_errors_total",
			Help:      "Errors that ended a connection or an accept, by kind.",
		}, []string{"kind"}),
	}

	keys := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "store_keys",
		Help:      "Approximate number of keys in the store.",
	}, func() float64 { return float64(storeSize()) })

	for _, c := range []prometheus.Collector{
		m.ConnectionsAccepted,
		m.ConnectionsActive,
		m.Requests,
		m.ConnectionErrors,
		keys,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Discard returns collectors that are not registered anywhere.
func Discard() *Metrics {
	m, _ := New(prometheus.NewRegistry(), func() int { return 0 })
	return m
}
