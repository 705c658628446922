package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ejc.kiosk/go-api/pkg/global"
	"ejc.kiosk/go-api/pkg/models"
)

type signInResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

func (h *handler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "request", err)
		return
	}
	user, err := h.svc.Auth.SignUp(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, "Failed to sign up", err)
		return
	}
	c.JSON(http.StatusCreated, global.SuccessResponse(user))
}

func (h *handler) SignIn(c *gin.Context) {
	var req models.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "request", err)
		return
	}
	token, user, err := h.svc.Auth.SignIn(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, "Failed to sign in", err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(signInResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.svc.Config.TokenTTL),
		User:      user,
	}))
}

func (h *handler) SignOut(c *gin.Context) {
	if err := h.svc.Auth.SignOut(c.Request.Context(), c.GetString(tokenKey)); err != nil {
		h.respondError(c, "Failed to sign out", err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(map[string]string{"message": "Signed out"}))
}

func (h *handler) Me(c *gin.Context) {
	user, err := h.svc.Auth.CurrentUser(c.Request.Context(), c.GetString(tokenKey))
	if err != nil {
		h.respondError(c, "Failed to load account", err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(user))
}

// GetAllProducts lists every product, unavailable and sold out included.
func (h *handler) GetAllProducts(c *gin.Context) {
	products, err := h.svc.Inventory.ListProducts(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to get products", err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(products))
}

func (h *handler) CreateProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "request", err)
		return
	}
	product, err := h.svc.Inventory.CreateProduct(c.Request.Context(), req, performedBy(c))
	if err != nil {
		h.respondError(c, "Failed to create product", err)
		return
	}
	c.JSON(http.StatusCreated, global.SuccessResponse(product))
}

func (h *handler) ToggleProduct(c *gin.Context) {
	id, ok := objectIDParam(c)
	if !ok {
		return
	}
	product, err := h.svc.Inventory.ToggleAvailability(c.Request.Context(), id, performedBy(c))
	if err != nil {
		h.respondError(c, "Failed to toggle product", err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(product))
}

// AdjustStock applies a signed delta; a delta that would leave negative
// stock is rejected with 422 and the stock unchanged.
func (h *handler) AdjustStock(c *gin.Context) {
	id, ok := objectIDParam(c)
	if !ok {
		return
	}
	var req models.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "delta", err)
		return
	}
	product, err := h.svc.Inventory.AdjustStock(c.Request.Context(), id, req.Delta, performedBy(c))
	if err != nil {
		h.respondError(c, "Failed to adjust stock", err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(product))
}

