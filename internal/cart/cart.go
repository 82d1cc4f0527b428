// Package cart accumulates purchase intent before an order is placed.
package cart

import (
	"fmt"

	"github.com/jcmexdev/eshop/internal/catalog"
)

// Line is one cart entry.
type Line struct {
	Product  *catalog.Product
	Quantity int
}

// ShoppingCart maps products to requested quantities and remembers the order
// in which products were first added. It is not safe for concurrent use; the
// products it points to are.
type ShoppingCart struct {
	lines []Line
	index map[string]int // product name → position in lines
}

func New() *ShoppingCart {
	return &ShoppingCart{index: make(map[string]int)}
}

func (c *ShoppingCart) ContainsProduct(p *catalog.Product) bool {
	_, ok := c.index[p.Name()]
	return ok
}

// Quantity returns the requested quantity for p, or 0 if p is not in the cart.
func (c *ShoppingCart) Quantity(p *catalog.Product) int {
	i, ok := c.index[p.Name()]
	if !ok {
		return 0
	}
	return c.lines[i].Quantity
}

func (c *ShoppingCart) Len() int { return len(c.lines) }

// Lines returns a copy of the entries in insertion order.
func (c *ShoppingCart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *ShoppingCart) CalculateTotal() float64 {
	var total float64
	for _, l := range c.lines {
		total += l.Product.Price() * float64(l.Quantity)
	}
	return total
}

// AddProduct sets the requested quantity for p. Adding a product that is
// already in the cart replaces its quantity instead of adding to it.
func (c *ShoppingCart) AddProduct(p *catalog.Product, amount int) error {
	if !p.IsAvailable(amount) {
		return fmt.Errorf("%w: product %s has only %d items", catalog.ErrInsufficientStock, p, p.Available())
	}
	if i, ok := c.index[p.Name()]; ok {
		c.lines[i].Quantity = amount
		return nil
	}
	c.index[p.Name()] = len(c.lines)
	c.lines = append(c.lines, Line{Product: p, Quantity: amount})
	return nil
}

// RemoveProduct drops p from the cart. Removing an absent product is a no-op.
func (c *ShoppingCart) RemoveProduct(p *catalog.Product) {
	i, ok := c.index[p.Name()]
	if !ok {
		return
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	delete(c.index, p.Name())
	for j := i; j < len(c.lines); j++ {
		c.index[c.lines[j].Product.Name()] = j
	}
}

// SubmitCartOrder buys every line and returns the product identifiers in
// insertion order, then empties the cart.
//
// All lines are checked before any stock is touched. If a concurrent buyer
// takes stock between the check and the purchase, the lines bought so far are
// restocked and the cart is left as it was.
func (c *ShoppingCart) SubmitCartOrder() ([]string, error) {
	for _, l := range c.lines {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("%w: %d of %s", catalog.ErrInvalidAmount, l.Quantity, l.Product)
		}
		if !l.Product.IsAvailable(l.Quantity) {
			return nil, fmt.Errorf("%w: product %s has only %d items, requested %d",
				catalog.ErrInsufficientStock, l.Product, l.Product.Available(), l.Quantity)
		}
	}

	bought := make([]Line, 0, len(c.lines))
	for _, l := range c.lines {
		if err := l.Product.Buy(l.Quantity); err != nil {
			Restore(bought)
			return nil, err
		}
		bought = append(bought, l)
	}

	ids := make([]string, len(c.lines))
	for i, l := range c.lines {
		ids[i] = l.Product.Name()
	}
	c.clear()
	return ids, nil
}

func (c *ShoppingCart) clear() {
	c.lines = nil
	c.index = make(map[string]int)
}

// Restore puts the stock of already submitted lines back.
func Restore(lines []Line) {
	for _, l := range lines {
		// Quantities were positive when bought, so Restock cannot fail.
		_ = l.Product.Restock(l.Quantity)
	}
}
