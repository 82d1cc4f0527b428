package shipping

import "context"

// Repository is the port for persisting shipments. Implementations must
// return ErrShipmentNotFound for unknown ids, ErrShipmentExists when an order
// already has a shipment, and ErrInvalidTransition when an update would not
// move the status strictly forward. Delete only removes a shipment that is
// still CREATED; otherwise it returns ErrInvalidTransition.
type Repository interface {
	Create(ctx context.Context, s *Shipment) error
	Get(ctx context.Context, shippingID string) (*Shipment, error)
	UpdateStatus(ctx context.Context, shippingID string, status Status) error
	Delete(ctx context.Context, shippingID string) error
}

// Publisher announces newly created shipments.
type Publisher interface {
	Publish(ctx context.Context, shippingID string) error
}

// Consumer is the processing side of the notification channel. Poll returns
// the shipping ids that arrived since the last call, oldest first. Ids
// returned together with an error were received and must still be handled.
type Consumer interface {
	Poll(ctx context.Context) ([]string, error)
}

// Metrics receives lifecycle events. The prometheus recorder in
// internal/pkg/metrics satisfies it.
type Metrics interface {
	ShipmentTransition(status string)
}

type nopMetrics struct{}

func (nopMetrics) ShipmentTransition(string) {}
