package catalog

import "errors"

var (
	ErrInvalidProduct    = errors.New("invalid product")
	ErrInvalidAmount     = errors.New("invalid amount to buy")
	ErrInsufficientStock = errors.New("not enough stock available")
	ErrProductNotFound   = errors.New("product not found")
	ErrDuplicateProduct  = errors.New("product already in catalog")
)
