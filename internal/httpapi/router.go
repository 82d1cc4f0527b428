package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jcmexdev/eshop/internal/httpapi/middlewares"
	"github.com/jcmexdev/eshop/internal/pkg/metrics"
)

// NewRouter wires the routes. m may be nil, in which case neither request
// latency nor /metrics are exposed.
func NewRouter(handler *Handler, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachRequestMetadata)
	r.Use(middlewares.Trace)
	r.Use(middlewares.Logger(handler.logger))
	if m != nil {
		r.Use(middlewares.Metrics(m))
	}
	r.Use(middleware.Recoverer)

	r.Get("/health", handler.Health)
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Get("/products", handler.ListProducts)
	r.Get("/shipping-types", handler.ListShippingTypes)
	r.Post("/orders", handler.PlaceOrder)
	r.Get("/shipments/{id}", handler.GetShipment)
	r.Post("/shipments/{id}/process", handler.ProcessShipment)
	return r
}
