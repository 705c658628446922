package checkout

import "fmt"

// Kind classifies a checkout failure.
type Kind string

const (
	KindInvalidInput       Kind = "invalid_input"
	KindBackendUnavailable Kind = "backend_unavailable"
	KindInsufficientStock  Kind = "insufficient_stock"
	KindOrderCreateFailed  Kind = "order_create_failed"
	KindOrderLinesFailed   Kind = "order_lines_failed"
	KindStockUpdateFailed  Kind = "stock_update_failed"
	KindInProgress         Kind = "checkout_in_progress"
)

// Error is the only error type Submit returns. Product and Available are set
// for KindInsufficientStock, Field for KindInvalidInput.
type Error struct {
	Kind      Kind
	Field     string
	Product   string
	Available int
	Err       error
}

// Sentinels for errors.Is. Matching is by Kind only.
var (
	ErrInvalidInput       = &Error{Kind: KindInvalidInput}
	ErrBackendUnavailable = &Error{Kind: KindBackendUnavailable}
	ErrInsufficientStock  = &Error{Kind: KindInsufficientStock}
	ErrOrderCreateFailed  = &Error{Kind: KindOrderCreateFailed}
	ErrOrderLinesFailed   = &Error{Kind: KindOrderLinesFailed}
	ErrStockUpdateFailed  = &Error{Kind: KindStockUpdateFailed}
	ErrInProgress         = &Error{Kind: KindInProgress}
)

func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidInput:
		if e.Field == fieldCart {
			return "cart is empty"
		}
		return "customer name is required"
	case KindInsufficientStock:
		return fmt.Sprintf("insufficient stock for %s: %d available", e.Product, e.Available)
	case KindInProgress:
		return "a checkout is already in progress for this session"
	case KindBackendUnavailable:
		return wrapMessage("backend unavailable", e.Err)
	case KindOrderCreateFailed:
		return wrapMessage("failed to create order", e.Err)
	case KindOrderLinesFailed:
		return wrapMessage("failed to write order lines", e.Err)
	case KindStockUpdateFailed:
		return wrapMessage("failed to update stock", e.Err)
	default:
		return wrapMessage(string(e.Kind), e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func wrapMessage(msg string, err error) string {
	if err == nil {
		return msg
	}
	return msg + ": " + err.Error()
}

const (
	fieldCustomerName = "customer_name"
	fieldCart         = "cart"
)

func invalidInput(field string) *Error {
	return &Error{Kind: KindInvalidInput, Field: field}
}

func insufficientStock(product string, available int) *Error {
	return &Error{Kind: KindInsufficientStock, Product: product, Available: available}
}

func failure(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
