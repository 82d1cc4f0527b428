// Package order places a shopping cart as an order: the cart is submitted and
// a shipment is created for it, with the stock put back if shipping fails.
package order

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jcmexdev/eshop/internal/cart"
	"github.com/jcmexdev/eshop/internal/coordinator"
	"github.com/jcmexdev/eshop/internal/coordinator/sagalog"
	"github.com/jcmexdev/eshop/internal/shipping"
)

// DefaultDueDelay is added to the current time when no due date is given.
const DefaultDueDelay = 3 * time.Second

var ErrAlreadyPlaced = errors.New("order already placed")

// ShippingService is the part of shipping.Service an order needs.
type ShippingService interface {
	ValidateRequest(shippingType string, dueDate time.Time) error
	CreateShipping(ctx context.Context, shippingType string, productIDs []string, orderID string, dueDate time.Time) (string, error)
	CheckStatus(ctx context.Context, shippingID string) (shipping.Status, error)
}

// Metrics counts placement outcomes.
type Metrics interface {
	OrderPlaced(result string)
}

type nopMetrics struct{}

func (nopMetrics) OrderPlaced(string) {}

type Order struct {
	id       string
	cart     *cart.ShoppingCart
	shipping ShippingService
	log      sagalog.Repository
	logger   *slog.Logger
	metrics  Metrics
	now      func() time.Time

	mu         sync.Mutex
	placed     bool
	productIDs []string
	shippingID string
}

type Option func(*Order)

// WithID overrides the generated order id.
func WithID(id string) Option { return func(o *Order) { o.id = id } }

// WithPlacementLog records each placement step in repo.
func WithPlacementLog(repo sagalog.Repository) Option { return func(o *Order) { o.log = repo } }

func WithLogger(l *slog.Logger) Option { return func(o *Order) { o.logger = l } }

func WithMetrics(m Metrics) Option { return func(o *Order) { o.metrics = m } }

func WithClock(now func() time.Time) Option { return func(o *Order) { o.now = now } }

// New creates an order with a fresh id for every call.
func New(c *cart.ShoppingCart, svc ShippingService, opts ...Option) *Order {
	o := &Order{
		id:       uuid.NewString(),
		cart:     c,
		shipping: svc,
		logger:   slog.Default(),
		metrics:  nopMetrics{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Order) ID() string { return o.id }

// ProductIDs returns the products the placed order was submitted with.
func (o *Order) ProductIDs() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.productIDs))
	copy(out, o.productIDs)
	return out
}

// PlaceOrder submits the cart and creates a shipment for it, returning the
// shipping id. dueDate defaults to now plus DefaultDueDelay.
//
// The shipping type and due date are checked before any stock is taken. If
// the shipment cannot be created after the cart was submitted, the stock is
// restored. Errors are returned exactly as the failing component produced
// them. A request rejected by validation may be retried; once the placement
// has run, further calls return ErrAlreadyPlaced.
func (o *Order) PlaceOrder(ctx context.Context, shippingType string, dueDate *time.Time) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.placed {
		return "", ErrAlreadyPlaced
	}

	due := o.now().Add(DefaultDueDelay)
	if dueDate != nil {
		due = *dueDate
	}

	if err := o.shipping.ValidateRequest(shippingType, due); err != nil {
		o.metrics.OrderPlaced("rejected")
		return "", err
	}
	o.placed = true

	p := &placement{orderID: o.id, shippingType: shippingType, dueDate: due}
	steps := []coordinator.Step{
		&SubmitCartStep{cart: o.cart, placement: p},
		&CreateShippingStep{svc: o.shipping, placement: p},
	}
	orch := coordinator.NewOrchestrator(o.id, steps, o.log,
		coordinator.WithLogger(o.logger),
		coordinator.WithPayload(o.payload(ctx, shippingType, due)),
	)
	if err := orch.Start(ctx); err != nil {
		o.metrics.OrderPlaced("failed")
		return "", err
	}

	o.productIDs = p.productIDs
	o.shippingID = p.shippingID
	o.metrics.OrderPlaced("placed")
	o.logger.InfoContext(ctx, "order placed",
		"order_id", o.id, "shipping_id", p.shippingID, "products", len(p.productIDs))
	return p.shippingID, nil
}

// Shipment returns a handle on the shipment of a placed order.
func (o *Order) Shipment() (*Shipment, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.shippingID == "" {
		return nil, false
	}
	return NewShipment(o.shippingID, o.shipping), true
}

// payload is the request recorded on the STARTED placement log row.
func (o *Order) payload(ctx context.Context, shippingType string, due time.Time) string {
	type item struct {
		Product  string `json:"product"`
		Quantity int    `json:"quantity"`
	}
	lines := o.cart.Lines()
	items := make([]item, len(lines))
	for i, l := range lines {
		items[i] = item{Product: l.Product.Name(), Quantity: l.Quantity}
	}
	b, err := json.Marshal(struct {
		OrderID      string    `json:"order_id"`
		ShippingType string    `json:"shipping_type"`
		DueDate      time.Time `json:"due_date"`
		Items        []item    `json:"items"`
	}{o.id, shippingType, due.UTC(), items})
	if err != nil {
		o.logger.ErrorContext(ctx, "encode placement payload", "order_id", o.id, "error", err)
		return ""
	}
	return string(b)
}
