// Package shipping creates shipments for placed orders, persists them and
// announces them on a notification channel so a downstream processor can move
// them through their lifecycle.
package shipping

import (
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of a shipment.
type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

var (
	ErrInvalidShippingType = errors.New("shipping type is not available")
	ErrInvalidDueDate      = errors.New("shipping due datetime must be greater than datetime now")
	ErrShipmentNotFound    = errors.New("shipment not found")
	ErrShipmentExists      = errors.New("shipment already exists for order")
	ErrInvalidTransition   = errors.New("invalid shipment status transition")
	ErrUnknownStatus       = errors.New("unknown shipment status")
)

var statusRank = map[Status]int{
	StatusCreated:    0,
	StatusInProgress: 1,
	StatusCompleted:  2,
}

// ParseStatus converts a stored status string.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := statusRank[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

func (s Status) String() string { return string(s) }

// Terminal reports whether no further transition is defined.
func (s Status) Terminal() bool { return s == StatusCompleted }

// Next returns the state that follows s. The terminal state is its own next.
func (s Status) Next() Status {
	switch s {
	case StatusCreated:
		return StatusInProgress
	case StatusInProgress:
		return StatusCompleted
	default:
		return s
	}
}

// CanTransitionTo reports whether moving from s to next goes strictly forward.
func (s Status) CanTransitionTo(next Status) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// Shipment is one persisted shipping record.
type Shipment struct {
	ShippingID   string    `json:"shipping_id"`
	OrderID      string    `json:"order_id"`
	ProductIDs   []string  `json:"product_ids"`
	ShippingType string    `json:"shipping_type"`
	Status       Status    `json:"status"`
	DueDate      time.Time `json:"due_date"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
