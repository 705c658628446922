package router

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"ejc.kiosk/go-api/pkg/auth"
	"ejc.kiosk/go-api/pkg/checkout"
	"ejc.kiosk/go-api/pkg/global"
	"ejc.kiosk/go-api/pkg/inventory"
	"ejc.kiosk/go-api/pkg/kitchen"
	"ejc.kiosk/go-api/pkg/store"
)

var checkoutStatus = map[checkout.Kind]int{
	checkout.KindInvalidInput:       http.StatusBadRequest,
	checkout.KindInsufficientStock:  http.StatusConflict,
	checkout.KindInProgress:         http.StatusConflict,
	checkout.KindBackendUnavailable: http.StatusServiceUnavailable,
	checkout.KindOrderCreateFailed:  http.StatusInternalServerError,
	checkout.KindOrderLinesFailed:   http.StatusInternalServerError,
	checkout.KindStockUpdateFailed:  http.StatusInternalServerError,
}

var authStatus = []struct {
	err    error
	status int
	code   string
}{
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{auth.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{auth.ErrInvalidInviteCode, http.StatusForbidden, "invalid_invite_code"},
	{auth.ErrEmailTaken, http.StatusConflict, "duplicate"},
	{auth.ErrWeakPassword, http.StatusBadRequest, "weak_password"},
	{auth.ErrInvalidEmail, http.StatusBadRequest, "required"},
	{auth.ErrSigningDisabled, http.StatusServiceUnavailable, "auth_unavailable"},
}

// respondError maps a service error onto the API envelope. Unknown errors are
// logged and reported as 500 without details.
func (h *handler) respondError(c *gin.Context, action string, err error) {
	var (
		checkoutErr *checkout.Error
		invalidErr  *inventory.InvalidError
		negativeErr *inventory.NegativeStockError
	)

	switch {
	case errors.As(err, &checkoutErr):
		field := checkoutErr.Field
		if checkoutErr.Kind == checkout.KindInsufficientStock {
			field = checkoutErr.Product
		}
		status := checkoutStatus[checkoutErr.Kind]
		if status >= http.StatusInternalServerError {
			h.logger.Error(action, zap.Error(err))
		}
		c.JSON(status, global.ErrorResponse(checkoutErr.Error(), global.FieldError(field, checkoutErr.Error(), string(checkoutErr.Kind))))
		return
	case errors.As(err, &invalidErr):
		c.JSON(http.StatusBadRequest, global.ErrorResponse("Invalid request data", global.FieldError(invalidErr.Field, invalidErr.Message, "validation_error")))
		return
	case errors.As(err, &negativeErr):
		c.JSON(http.StatusUnprocessableEntity, global.ErrorResponse(negativeErr.Error(), global.FieldError("delta", negativeErr.Error(), "negative_stock")))
		return
	case errors.Is(err, kitchen.ErrCustomerNameRequired):
		c.JSON(http.StatusBadRequest, global.ErrorResponse("Invalid request data", global.FieldError("customer_name", err.Error(), "required")))
		return
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, global.ErrorResponse("Not found", global.FieldError("id", "no record exists with this id", "not_found")))
		return
	}

	for _, m := range authStatus {
		if errors.Is(err, m.err) {
			c.JSON(m.status, global.ErrorResponse(err.Error(), global.FieldError("auth", err.Error(), m.code)))
			return
		}
	}

	h.logger.Error(action, zap.Error(err))
	c.JSON(http.StatusInternalServerError, global.ErrorResponse(action, nil))
}

func badRequest(c *gin.Context, field string, err error) {
	c.JSON(http.StatusBadRequest, global.ErrorResponse("Invalid request data", global.FieldError(field, err.Error(), "validation_error")))
}

// objectIDParam parses the :id path parameter, answering 400 when invalid.
func objectIDParam(c *gin.Context) (bson.ObjectID, bool) {
	id, err := bson.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, global.ErrorResponse("Invalid id format", global.FieldError("id", "id must be a 24 character hex string", "invalid_format")))
		return bson.ObjectID{}, false
	}
	return id, true
}
