package models

// AddToCartRequest adds one unit of a product to the session cart
type AddToCartRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}

// CheckoutRequest submits the session cart. IdempotencyKey may also arrive
// in the Idempotency-Key header.
type CheckoutRequest struct {
	CustomerName   string `json:"customer_name"`
	IdempotencyKey string `json:"idempotency_key"`
}
