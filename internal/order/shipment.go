package order

import (
	"context"

	"github.com/jcmexdev/eshop/internal/shipping"
)

type StatusChecker interface {
	CheckStatus(ctx context.Context, shippingID string) (shipping.Status, error)
}

// Shipment tracks the shipping status of a placed order.
type Shipment struct {
	ShippingID string
	svc        StatusChecker
}

func NewShipment(shippingID string, svc StatusChecker) *Shipment {
	return &Shipment{ShippingID: shippingID, svc: svc}
}

func (s *Shipment) CheckShippingStatus(ctx context.Context) (shipping.Status, error) {
	return s.svc.CheckStatus(ctx, s.ShippingID)
}
