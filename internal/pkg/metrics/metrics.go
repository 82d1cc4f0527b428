// Package metrics exposes the eshop prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OrdersPlaced        *prometheus.CounterVec
	ShipmentTransitions *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. Use prometheus.NewRegistry() in tests
// to avoid clashing with the default registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		OrdersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eshop",
			Name:      "orders_placed_total",
			Help:      "Order placements by result (placed, rejected, failed).",
		}, []string{"result"}),
		ShipmentTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eshop",
			Name:      "shipment_transitions_total",
			Help:      "Shipment status changes by target status.",
		}, []string{"to"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "eshop",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		gatherer: reg,
	}
	reg.MustRegister(m.OrdersPlaced, m.ShipmentTransitions, m.RequestDuration)
	return m
}

func (m *Metrics) OrderPlaced(result string) {
	m.OrdersPlaced.WithLabelValues(result).Inc()
}

func (m *Metrics) ShipmentTransition(status string) {
	m.ShipmentTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	m.RequestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
