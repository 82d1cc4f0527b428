// Package httpapi exposes the catalog, order placement and shipment status
// over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/eshop/internal/cart"
	"github.com/jcmexdev/eshop/internal/catalog"
	"github.com/jcmexdev/eshop/internal/coordinator/sagalog"
	"github.com/jcmexdev/eshop/internal/httpapi/middlewares"
	"github.com/jcmexdev/eshop/internal/order"
	"github.com/jcmexdev/eshop/internal/pkg/cache"
	"github.com/jcmexdev/eshop/internal/shipping"
)

const (
	idempotencyTTL         = 24 * time.Hour
	placeOrderCacheOp      = "place_order"
	HeaderIdempotentReplay = "Idempotent-Replay"
)

// ShippingService is what the handler needs from shipping.Service.
type ShippingService interface {
	order.ShippingService
	ListAvailableShippingType() []string
	GetShipping(ctx context.Context, shippingID string) (*shipping.Shipment, error)
	ProcessShipping(ctx context.Context, shippingID string) (shipping.Status, error)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	catalog  *catalog.Catalog
	shipping ShippingService
	log      sagalog.Repository // nil: placements are not logged
	cache    cache.Cache        // nil: Idempotency-Key is ignored
	metrics  order.Metrics      // nil: placements are not counted
	checks   map[string]HealthCheck
	logger   *slog.Logger
}

type Option func(*Handler)

func WithPlacementLog(repo sagalog.Repository) Option { return func(h *Handler) { h.log = repo } }

func WithCache(c cache.Cache) Option { return func(h *Handler) { h.cache = c } }

func WithOrderMetrics(m order.Metrics) Option { return func(h *Handler) { h.metrics = m } }

func WithLogger(l *slog.Logger) Option { return func(h *Handler) { h.logger = l } }

// WithHealthCheck adds a named dependency check to GET /health.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(h *Handler) { h.checks[name] = check }
}

func NewHandler(c *catalog.Catalog, svc ShippingService, opts ...Option) *Handler {
	h := &Handler{
		catalog:  c,
		shipping: svc,
		checks:   make(map[string]HealthCheck),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	report := map[string]string{}
	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			report[name] = err.Error()
			continue
		}
		report[name] = "ok"
	}
	writeJSON(w, status, map[string]any{"status": http.StatusText(status), "checks": report})
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products := h.catalog.List()
	out := make([]ProductResponse, len(products))
	for i, p := range products {
		out[i] = ProductResponse{Name: p.Name(), Price: p.Price(), Available: p.Available()}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) ListShippingTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.shipping.ListAvailableShippingType())
}

// PlaceOrder builds a cart from the request and places it. A repeated
// Idempotency-Key replays the first successful response.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	idempKey := middlewares.IdempotencyKey(ctx)

	if h.cache != nil && idempKey != "" {
		cached, err := h.cache.Get(ctx, h.cache.GenerateKey(placeOrderCacheOp, idempKey))
		if err != nil {
			h.logger.WarnContext(ctx, "idempotency lookup failed", "error", err)
		}
		if cached != "" {
			w.Header().Set(HeaderIdempotentReplay, "true")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(cached))
			return
		}
	}

	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "items are required")
		return
	}

	c := cart.New()
	seen := make(map[string]bool, len(req.Items))
	for _, it := range req.Items {
		if strings.TrimSpace(it.Product) == "" || it.Quantity <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_item", "product and a positive quantity are required")
			return
		}
		if seen[it.Product] {
			writeError(w, http.StatusBadRequest, "invalid_item", fmt.Sprintf("product %q is listed more than once", it.Product))
			return
		}
		seen[it.Product] = true
		p, err := h.catalog.Get(it.Product)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if err := c.AddProduct(p, it.Quantity); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	total := c.CalculateTotal()

	opts := []order.Option{order.WithLogger(h.logger)}
	if h.log != nil {
		opts = append(opts, order.WithPlacementLog(h.log))
	}
	if h.metrics != nil {
		opts = append(opts, order.WithMetrics(h.metrics))
	}
	o := order.New(c, h.shipping, opts...)

	h.logger.InfoContext(ctx, "placing order",
		"request_id", middlewares.RequestID(ctx), "order_id", o.ID(), "items", len(req.Items))

	shippingID, err := o.PlaceOrder(ctx, req.ShippingType, req.DueDate)
	if err != nil {
		h.logger.WarnContext(ctx, "order placement failed", "order_id", o.ID(), "error", err)
		writeDomainError(w, err)
		return
	}

	resp := PlaceOrderResponse{
		OrderID:    o.ID(),
		ShippingID: shippingID,
		ProductIDs: o.ProductIDs(),
		Total:      total,
	}
	if h.cache != nil && idempKey != "" {
		if body, err := json.Marshal(resp); err == nil {
			if err := h.cache.Set(ctx, h.cache.GenerateKey(placeOrderCacheOp, idempKey), string(body), idempotencyTTL); err != nil {
				h.logger.WarnContext(ctx, "idempotency store failed", "order_id", o.ID(), "error", err)
			}
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) GetShipment(w http.ResponseWriter, r *http.Request) {
	shipment, err := h.shipping.GetShipping(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shipment)
}

func (h *Handler) ProcessShipment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status, err := h.shipping.ProcessShipping(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ShipmentStatusResponse{ShippingID: id, Status: status.String()})
}

// writeDomainError maps sentinel errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shipping.ErrInvalidShippingType):
		writeError(w, http.StatusBadRequest, "invalid_shipping_type", err.Error())
	case errors.Is(err, shipping.ErrInvalidDueDate):
		writeError(w, http.StatusBadRequest, "invalid_due_date", err.Error())
	case errors.Is(err, catalog.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "invalid_amount", err.Error())
	case errors.Is(err, catalog.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "product_not_found", err.Error())
	case errors.Is(err, shipping.ErrShipmentNotFound):
		writeError(w, http.StatusNotFound, "shipment_not_found", err.Error())
	case errors.Is(err, catalog.ErrInsufficientStock):
		writeError(w, http.StatusConflict, "insufficient_stock", err.Error())
	case errors.Is(err, shipping.ErrShipmentExists), errors.Is(err, order.ErrAlreadyPlaced):
		writeError(w, http.StatusConflict, "already_placed", err.Error())
	case errors.Is(err, shipping.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
