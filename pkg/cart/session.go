package cart

import "context"

// SessionStore keeps the cart of each kiosk session between requests.
// Carts are session state only: an unknown or expired session loads as an
// empty cart.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*Cart, error)
	Save(ctx context.Context, sessionID string, c *Cart) error
	Delete(ctx context.Context, sessionID string) error
}
