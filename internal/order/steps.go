package order

import (
	"context"
	"time"

	"github.com/jcmexdev/eshop/internal/cart"
)

// placement is the state the steps of one PlaceOrder call share.
type placement struct {
	orderID      string
	shippingType string
	dueDate      time.Time

	submitted  []cart.Line
	productIDs []string
	shippingID string
}

// --- SubmitCartStep ---

type SubmitCartStep struct {
	cart      *cart.ShoppingCart
	placement *placement
}

func (s *SubmitCartStep) Name() string { return "submit_cart" }

func (s *SubmitCartStep) Execute(ctx context.Context) error {
	lines := s.cart.Lines()
	ids, err := s.cart.SubmitCartOrder()
	if err != nil {
		return err
	}
	s.placement.submitted = lines
	s.placement.productIDs = ids
	return nil
}

// Compensate puts the submitted quantities back into stock.
func (s *SubmitCartStep) Compensate(ctx context.Context) error {
	cart.Restore(s.placement.submitted)
	s.placement.submitted = nil
	return nil
}

// --- CreateShippingStep ---

type CreateShippingStep struct {
	svc       ShippingService
	placement *placement
}

func (s *CreateShippingStep) Name() string { return "create_shipping" }

func (s *CreateShippingStep) Execute(ctx context.Context) error {
	p := s.placement
	id, err := s.svc.CreateShipping(ctx, p.shippingType, p.productIDs, p.orderID, p.dueDate)
	if err != nil {
		return err
	}
	p.shippingID = id
	return nil
}

// Compensate is a no-op; a created shipment is never rolled back.
func (s *CreateShippingStep) Compensate(ctx context.Context) error { return nil }
