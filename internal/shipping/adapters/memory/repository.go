// Package memory holds in-process shipping adapters used by tests and by the
// single binary mode when no broker is configured.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jcmexdev/eshop/internal/shipping"
)

type Repository struct {
	mu      sync.RWMutex
	byID    map[string]shipping.Shipment
	byOrder map[string]string
	now     func() time.Time
}

func NewRepository() *Repository {
	return &Repository{
		byID:    make(map[string]shipping.Shipment),
		byOrder: make(map[string]string),
		now:     time.Now,
	}
}

func (r *Repository) Create(_ context.Context, s *shipping.Shipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[s.ShippingID]; ok {
		return fmt.Errorf("%w: shipping id %s", shipping.ErrShipmentExists, s.ShippingID)
	}
	if _, ok := r.byOrder[s.OrderID]; ok {
		return fmt.Errorf("%w: %s", shipping.ErrShipmentExists, s.OrderID)
	}
	stored := *s
	stored.ProductIDs = slices.Clone(s.ProductIDs)
	r.byID[s.ShippingID] = stored
	r.byOrder[s.OrderID] = s.ShippingID
	return nil
}

func (r *Repository) Get(_ context.Context, shippingID string) (*shipping.Shipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[shippingID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shipping.ErrShipmentNotFound, shippingID)
	}
	s.ProductIDs = slices.Clone(s.ProductIDs)
	return &s, nil
}

func (r *Repository) UpdateStatus(_ context.Context, shippingID string, status shipping.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byID[shippingID]
	if !ok {
		return fmt.Errorf("%w: %s", shipping.ErrShipmentNotFound, shippingID)
	}
	if !s.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s -> %s", shipping.ErrInvalidTransition, s.Status, status)
	}
	s.Status = status
	s.UpdatedAt = r.now().UTC()
	r.byID[shippingID] = s
	return nil
}

func (r *Repository) Delete(_ context.Context, shippingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byID[shippingID]
	if !ok {
		return fmt.Errorf("%w: %s", shipping.ErrShipmentNotFound, shippingID)
	}
	if s.Status != shipping.StatusCreated {
		return fmt.Errorf("%w: cannot delete %s shipment %s", shipping.ErrInvalidTransition, s.Status, shippingID)
	}
	delete(r.byID, shippingID)
	delete(r.byOrder, s.OrderID)
	return nil
}
