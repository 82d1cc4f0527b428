package cart_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/eshop/internal/cart"
	"github.com/jcmexdev/eshop/internal/catalog"
)

func newProduct(t *testing.T, name string, price float64, available int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(name, price, available)
	require.NoError(t, err)
	return p
}

func TestShoppingCart_AddAvailableAmount(t *testing.T) {
	p := newProduct(t, "Test", 100, 21)
	c := cart.New()

	require.NoError(t, c.AddProduct(p, 11))
	assert.True(t, c.ContainsProduct(p))
	assert.Equal(t, 11, c.Quantity(p))
}

func TestShoppingCart_AddNonAvailableAmount(t *testing.T) {
	widget := newProduct(t, "Widget", 10.0, 5)
	c := cart.New()

	err := c.AddProduct(widget, 10)
	assert.ErrorIs(t, err, catalog.ErrInsufficientStock)
	assert.False(t, c.ContainsProduct(widget))
	assert.Equal(t, 5, widget.Available())
}

func TestShoppingCart_ReAddOverwrites(t *testing.T) {
	widget := newProduct(t, "Widget", 10.0, 10)
	gadget := newProduct(t, "Gadget", 1.0, 10)
	c := cart.New()

	require.NoError(t, c.AddProduct(widget, 3))
	require.NoError(t, c.AddProduct(gadget, 1))
	require.NoError(t, c.AddProduct(widget, 5))

	assert.Equal(t, 5, c.Quantity(widget))
	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "Widget", lines[0].Product.Name(), "re-add keeps the original position")
}

func TestShoppingCart_SameNameIsSameEntry(t *testing.T) {
	cheap := newProduct(t, "Widget", 1.0, 10)
	pricey := newProduct(t, "Widget", 100.0, 10)
	c := cart.New()

	require.NoError(t, c.AddProduct(cheap, 2))
	assert.True(t, c.ContainsProduct(pricey))
	require.NoError(t, c.AddProduct(pricey, 4))
	assert.Equal(t, 1, c.Len())
}

func TestShoppingCart_CalculateTotal(t *testing.T) {
	widget := newProduct(t, "Widget", 10.0, 5)
	c := cart.New()

	require.NoError(t, c.AddProduct(widget, 3))
	assert.Equal(t, 30.0, c.CalculateTotal())

	other := newProduct(t, "Test", 100, 21)
	require.NoError(t, c.AddProduct(other, 5))
	assert.Equal(t, 530.0, c.CalculateTotal())
}

func TestShoppingCart_RemoveProduct(t *testing.T) {
	a := newProduct(t, "Alpha", 1, 10)
	b := newProduct(t, "Bravo", 1, 10)
	d := newProduct(t, "Delta", 1, 10)
	c := cart.New()
	require.NoError(t, c.AddProduct(a, 1))
	require.NoError(t, c.AddProduct(b, 2))
	require.NoError(t, c.AddProduct(d, 3))

	c.RemoveProduct(b)
	assert.False(t, c.ContainsProduct(b))
	assert.Equal(t, 3, c.Quantity(d))

	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "Alpha", lines[0].Product.Name())
	assert.Equal(t, "Delta", lines[1].Product.Name())
}

func TestShoppingCart_RemoveAbsentIsNoop(t *testing.T) {
	c := cart.New()
	c.RemoveProduct(newProduct(t, "Ghost", 1, 1))
	assert.Equal(t, 0, c.Len())
}

func TestShoppingCart_SubmitCartOrder(t *testing.T) {
	p1 := newProduct(t, "First", 2, 10)
	p2 := newProduct(t, "Second", 3, 4)
	c := cart.New()
	require.NoError(t, c.AddProduct(p1, 7))
	require.NoError(t, c.AddProduct(p2, 4))

	ids, err := c.SubmitCartOrder()
	require.NoError(t, err)

	assert.Equal(t, []string{"First", "Second"}, ids)
	assert.Equal(t, 3, p1.Available())
	assert.Equal(t, 0, p2.Available())
	assert.False(t, c.ContainsProduct(p1))
	assert.False(t, c.ContainsProduct(p2))
	assert.Equal(t, 0, c.Len())
}

func TestShoppingCart_SubmitIsAllOrNothing(t *testing.T) {
	p1 := newProduct(t, "First", 2, 10)
	p2 := newProduct(t, "Second", 3, 4)
	c := cart.New()
	require.NoError(t, c.AddProduct(p1, 7))
	require.NoError(t, c.AddProduct(p2, 4))

	// Someone else buys the second product after it was added to the cart.
	require.NoError(t, p2.Buy(2))

	ids, err := c.SubmitCartOrder()
	assert.ErrorIs(t, err, catalog.ErrInsufficientStock)
	assert.Nil(t, ids)
	assert.Equal(t, 10, p1.Available(), "first line must not be bought")
	assert.Equal(t, 2, c.Len(), "cart stays intact on failure")
}

func TestShoppingCart_SubmitRejectsZeroQuantity(t *testing.T) {
	p := newProduct(t, "Widget", 1, 5)
	c := cart.New()
	require.NoError(t, c.AddProduct(p, 0))

	_, err := c.SubmitCartOrder()
	assert.ErrorIs(t, err, catalog.ErrInvalidAmount)
	assert.Equal(t, 5, p.Available())
}

func TestShoppingCart_SubmitEmpty(t *testing.T) {
	ids, err := cart.New().SubmitCartOrder()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRestore(t *testing.T) {
	p := newProduct(t, "Widget", 1, 5)
	c := cart.New()
	require.NoError(t, c.AddProduct(p, 3))
	lines := c.Lines()

	_, err := c.SubmitCartOrder()
	require.NoError(t, err)
	assert.Equal(t, 2, p.Available())

	cart.Restore(lines)
	assert.Equal(t, 5, p.Available())
}
