// Package catalog holds the products an order can be placed for, together
// with their stock levels.
//
// A Product is identified by its name alone: two products with the same name
// are the same catalog entry even if their price or stock differ. The name is
// also the identifier that ends up in a shipment's product list.
package catalog

import (
	"fmt"
	"math"
	"sync"
)

const minNameLength = 3

// Product is an inventory line item. The available amount is the only mutable
// field and it is guarded by mu, so a Product can be shared between carts.
type Product struct {
	name  string
	price float64

	mu        sync.Mutex
	available int
}

// NewProduct validates the attributes and returns a new Product.
func NewProduct(name string, price float64, available int) (*Product, error) {
	if len([]rune(name)) < minNameLength {
		return nil, fmt.Errorf("%w: name %q must be at least %d characters", ErrInvalidProduct, name, minNameLength)
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return nil, fmt.Errorf("%w: price must be more than zero, got %v", ErrInvalidProduct, price)
	}
	if available < 0 {
		return nil, fmt.Errorf("%w: available amount must be non-negative, got %d", ErrInvalidProduct, available)
	}
	return &Product{name: name, price: price, available: available}, nil
}

func (p *Product) Name() string   { return p.name }
func (p *Product) Price() float64 { return p.price }
func (p *Product) String() string { return p.name }

// Available returns the current stock.
func (p *Product) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available
}

// IsAvailable reports whether the requested amount is in stock right now.
// The answer is advisory: another buyer may take the stock before Buy runs.
func (p *Product) IsAvailable(requested int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available >= requested
}

// Buy removes the requested amount from stock. The availability check and the
// decrement happen under a single lock, so concurrent buyers can never drive
// the stock below zero.
func (p *Product) Buy(requested int) error {
	if requested <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, requested)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.available < requested {
		return fmt.Errorf("%w: product %s has only %d items, requested %d",
			ErrInsufficientStock, p.name, p.available, requested)
	}
	p.available -= requested
	return nil
}

// Restock puts stock back. It is the compensation for Buy.
func (p *Product) Restock(amount int) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.available += amount
	return nil
}

// Same reports whether both products are the same catalog entry.
func (p *Product) Same(other *Product) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.name == other.name
}
