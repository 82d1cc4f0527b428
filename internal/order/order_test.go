package order_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/eshop/internal/cart"
	"github.com/jcmexdev/eshop/internal/catalog"
	"github.com/jcmexdev/eshop/internal/coordinator/sagalog"
	"github.com/jcmexdev/eshop/internal/order"
	"github.com/jcmexdev/eshop/internal/shipping"
	"github.com/jcmexdev/eshop/internal/shipping/adapters/memory"
)

var errBroker = errors.New("broker unavailable")

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string) error { return errBroker }

type memLog struct{ rows []sagalog.SagaLog }

func (m *memLog) Save(_ context.Context, e *sagalog.SagaLog) error {
	m.rows = append(m.rows, *e)
	return nil
}

type counter map[string]int

func (c counter) OrderPlaced(result string) { c[result]++ }

type fixture struct {
	cart    *cart.ShoppingCart
	widget  *catalog.Product
	gadget  *catalog.Product
	svc     *shipping.Service
	repo    *memory.Repository
	queue   *memory.Queue
	nextDay time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	widget, err := catalog.NewProduct("Widget", 10, 10)
	require.NoError(t, err)
	gadget, err := catalog.NewProduct("Gadget", 2.5, 4)
	require.NoError(t, err)

	c := cart.New()
	require.NoError(t, c.AddProduct(widget, 3))
	require.NoError(t, c.AddProduct(gadget, 4))

	repo := memory.NewRepository()
	queue := memory.NewQueue()
	return &fixture{
		cart:    c,
		widget:  widget,
		gadget:  gadget,
		svc:     shipping.NewService(repo, queue),
		repo:    repo,
		queue:   queue,
		nextDay: time.Now().Add(24 * time.Hour),
	}
}

func TestPlaceOrder_Valid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := order.New(f.cart, f.svc, order.WithID("order-1"))

	shippingID, err := o.PlaceOrder(ctx, "Нова Пошта", &f.nextDay)
	require.NoError(t, err)
	require.NotEmpty(t, shippingID)

	assert.Equal(t, 7, f.widget.Available())
	assert.Equal(t, 0, f.gadget.Available())
	assert.Equal(t, 0, f.cart.Len())
	assert.Equal(t, []string{"Widget", "Gadget"}, o.ProductIDs())

	stored, err := f.repo.Get(ctx, shippingID)
	require.NoError(t, err)
	assert.Equal(t, "order-1", stored.OrderID)
	assert.Equal(t, shipping.StatusCreated, stored.Status)

	published, err := f.queue.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{shippingID}, published)
}

func TestPlaceOrder_DefaultDueDate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := shipping.NewService(f.repo, f.queue, shipping.WithClock(func() time.Time { return now }))
	o := order.New(f.cart, svc, order.WithClock(func() time.Time { return now }))

	shippingID, err := o.PlaceOrder(ctx, "Самовивіз", nil)
	require.NoError(t, err)

	stored, err := f.repo.Get(ctx, shippingID)
	require.NoError(t, err)
	assert.True(t, stored.DueDate.Equal(now.Add(order.DefaultDueDelay)))
}

func TestPlaceOrder_InvalidShippingTypeKeepsStock(t *testing.T) {
	f := newFixture(t)
	o := order.New(f.cart, f.svc)

	shippingID, err := o.PlaceOrder(context.Background(), "Carrier Pigeon", &f.nextDay)
	assert.ErrorIs(t, err, shipping.ErrInvalidShippingType)
	assert.Empty(t, shippingID)

	assert.Equal(t, 10, f.widget.Available())
	assert.Equal(t, 4, f.gadget.Available())
	assert.Equal(t, 2, f.cart.Len())
	assert.Equal(t, 0, f.queue.Len())
}

func TestPlaceOrder_PastDueDateKeepsStock(t *testing.T) {
	f := newFixture(t)
	o := order.New(f.cart, f.svc)
	past := time.Now().Add(-time.Hour)

	_, err := o.PlaceOrder(context.Background(), "Укр Пошта", &past)
	assert.ErrorIs(t, err, shipping.ErrInvalidDueDate)
	assert.Equal(t, 10, f.widget.Available())
	assert.Equal(t, 4, f.gadget.Available())
}

func TestPlaceOrder_RejectedRequestCanBeRetried(t *testing.T) {
	f := newFixture(t)
	o := order.New(f.cart, f.svc)

	_, err := o.PlaceOrder(context.Background(), "nope", &f.nextDay)
	require.ErrorIs(t, err, shipping.ErrInvalidShippingType)

	_, err = o.PlaceOrder(context.Background(), "Meest Express", &f.nextDay)
	assert.NoError(t, err)
}

func TestPlaceOrder_PublishFailureRestoresStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := memory.NewRepository()
	svc := shipping.NewService(repo, failingPublisher{},
		shipping.WithIDGenerator(func() string { return "ship-1" }))
	log := &memLog{}
	o := order.New(f.cart, svc, order.WithPlacementLog(log))

	_, err := o.PlaceOrder(ctx, "Нова Пошта", &f.nextDay)
	assert.ErrorIs(t, err, errBroker)

	assert.Equal(t, 10, f.widget.Available())
	assert.Equal(t, 4, f.gadget.Available())

	// Restocked goods must not also be shippable.
	_, err = repo.Get(ctx, "ship-1")
	assert.ErrorIs(t, err, shipping.ErrShipmentNotFound)
	_, err = svc.ProcessShipping(ctx, "ship-1")
	assert.ErrorIs(t, err, shipping.ErrShipmentNotFound)
	_, ok := o.Shipment()
	assert.False(t, ok)

	require.NotEmpty(t, log.rows)
	last := log.rows[len(log.rows)-1]
	assert.Equal(t, sagalog.StatusFailed, last.Status)
	assert.Equal(t, "create_shipping", last.CurrentStep)
}

func TestPlaceOrder_DuplicateShipmentRestoresStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.CreateShipping(ctx, "Нова Пошта", nil, "order-1", f.nextDay)
	require.NoError(t, err)

	o := order.New(f.cart, f.svc, order.WithID("order-1"))
	_, err = o.PlaceOrder(ctx, "Нова Пошта", &f.nextDay)
	assert.ErrorIs(t, err, shipping.ErrShipmentExists)
	assert.Equal(t, 10, f.widget.Available())
	assert.Equal(t, 4, f.gadget.Available())
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.gadget.Buy(1))
	o := order.New(f.cart, f.svc)

	_, err := o.PlaceOrder(context.Background(), "Нова Пошта", &f.nextDay)
	assert.ErrorIs(t, err, catalog.ErrInsufficientStock)
	assert.Equal(t, 10, f.widget.Available())
	assert.Equal(t, 3, f.gadget.Available())
	assert.Equal(t, 0, f.queue.Len())
}

func TestPlaceOrder_OnlyOnce(t *testing.T) {
	f := newFixture(t)
	o := order.New(f.cart, f.svc)

	_, err := o.PlaceOrder(context.Background(), "Нова Пошта", &f.nextDay)
	require.NoError(t, err)
	_, err = o.PlaceOrder(context.Background(), "Нова Пошта", &f.nextDay)
	assert.ErrorIs(t, err, order.ErrAlreadyPlaced)
}

func TestPlaceOrder_PlacementLogAndMetrics(t *testing.T) {
	f := newFixture(t)
	log := &memLog{}
	placed := counter{}
	o := order.New(f.cart, f.svc, order.WithID("order-7"), order.WithPlacementLog(log), order.WithMetrics(placed))

	_, err := o.PlaceOrder(context.Background(), "Укр Пошта", &f.nextDay)
	require.NoError(t, err)

	statuses := make([]sagalog.Status, len(log.rows))
	for i, r := range log.rows {
		statuses[i] = r.Status
	}
	assert.Equal(t, []sagalog.Status{
		sagalog.StatusStarted, sagalog.StatusStepDone, sagalog.StatusStepDone, sagalog.StatusCompleted,
	}, statuses)
	assert.Contains(t, log.rows[0].Payload, `"order_id":"order-7"`)
	assert.Contains(t, log.rows[0].Payload, `"product":"Widget"`)
	assert.Equal(t, 1, placed["placed"])
}

func TestPlaceOrder_UnencodablePayloadIsLogged(t *testing.T) {
	f := newFixture(t)
	log := &memLog{}
	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&out, nil))
	o := order.New(f.cart, f.svc, order.WithPlacementLog(log), order.WithLogger(logger))

	// encoding/json rejects years past 9999.
	far := time.Date(10001, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := o.PlaceOrder(context.Background(), "Нова Пошта", &far)
	require.NoError(t, err)

	require.NotEmpty(t, log.rows)
	assert.Equal(t, sagalog.StatusStarted, log.rows[0].Status)
	assert.Empty(t, log.rows[0].Payload)
	assert.Contains(t, out.String(), "encode placement payload")
}

func TestNew_DistinctIDs(t *testing.T) {
	f := newFixture(t)
	seen := map[string]bool{}
	for range 100 {
		id := order.New(cart.New(), f.svc).ID()
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestShipment_CheckShippingStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := order.New(f.cart, f.svc)

	_, ok := o.Shipment()
	assert.False(t, ok)

	_, err := o.PlaceOrder(ctx, "Нова Пошта", &f.nextDay)
	require.NoError(t, err)
	sh, ok := o.Shipment()
	require.True(t, ok)

	status, err := sh.CheckShippingStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, shipping.StatusCreated, status)

	_, err = f.svc.ProcessShipping(ctx, sh.ShippingID)
	require.NoError(t, err)
	status, err = sh.CheckShippingStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, shipping.StatusInProgress, status)

	_, err = order.NewShipment("missing", f.svc).CheckShippingStatus(ctx)
	assert.ErrorIs(t, err, shipping.ErrShipmentNotFound)
}
