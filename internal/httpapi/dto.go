package httpapi

import "time"

type PlaceOrderRequest struct {
	Items        []OrderItemDTO `json:"items"`
	ShippingType string         `json:"shipping_type"`
	// DueDate defaults to a few seconds from now when omitted.
	DueDate *time.Time `json:"due_date,omitempty"`
}

type OrderItemDTO struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}

type PlaceOrderResponse struct {
	OrderID    string   `json:"order_id"`
	ShippingID string   `json:"shipping_id"`
	ProductIDs []string `json:"product_ids"`
	Total      float64  `json:"total"`
}

type ProductResponse struct {
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Available int     `json:"available"`
}

type ShipmentStatusResponse struct {
	ShippingID string `json:"shipping_id"`
	Status     string `json:"status"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
