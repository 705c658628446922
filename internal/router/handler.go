package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"ejc.kiosk/go-api/pkg/cart"
	"ejc.kiosk/go-api/pkg/global"
	"ejc.kiosk/go-api/pkg/models"
)

const idempotencyHeader = "Idempotency-Key"

func (h *handler) HealthCheck(c *gin.Context) {
	ctx, cancel := global.GetDefaultTimerFrom(c.Request.Context())
	defer cancel()

	if err := h.svc.Store.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, global.ErrorResponse("Database connection failed", nil))
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(map[string]string{
		"status":   "OK",
		"database": "Connected",
		"driver":   h.svc.Config.StoreDriver,
	}))
}

// GetCatalog lists purchasable products, reporting cache use in X-Cache.
func (h *handler) GetCatalog(c *gin.Context) {
	products, hit, err := h.svc.Catalog.ListPurchasable(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to get catalog", err)
		return
	}
	if hit {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	c.JSON(http.StatusOK, global.SuccessResponse(products))
}

type checkoutResponse struct {
	OrderID      bson.ObjectID `json:"order_id"`
	CustomerName string        `json:"customer_name"`
	Total        string        `json:"total"`
	ItemCount    int           `json:"item_count"`
}

func (h *handler) loadCart(c *gin.Context) (*cart.Cart, bool) {
	sc, err := h.svc.Carts.Load(c.Request.Context(), sessionID(c))
	if err != nil {
		h.respondError(c, "Failed to load cart", err)
		return nil, false
	}
	return sc, true
}

func (h *handler) saveCart(c *gin.Context, sc *cart.Cart, status int) {
	if err := h.svc.Carts.Save(c.Request.Context(), sessionID(c), sc); err != nil {
		h.respondError(c, "Failed to save cart", err)
		return
	}
	c.JSON(status, global.SuccessResponse(sc.View()))
}

func (h *handler) GetCart(c *gin.Context) {
	sc, ok := h.loadCart(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(sc.View()))
}

// AddToCart captures the product's current name and price on the line.
// Stock is not checked here, only at checkout.
func (h *handler) AddToCart(c *gin.Context) {
	var req models.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "product_id", err)
		return
	}
	id, err := bson.ObjectIDFromHex(req.ProductID)
	if err != nil {
		badRequest(c, "product_id", err)
		return
	}

	product, err := h.svc.Store.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "Failed to add to cart", err)
		return
	}
	if !product.IsPurchasable() {
		c.JSON(http.StatusConflict, global.ErrorResponse("Product is not available", global.FieldError("product_id", product.Name+" is not on sale", "unavailable")))
		return
	}

	sc, ok := h.loadCart(c)
	if !ok {
		return
	}
	sc.AddItem(product.ID, product.Name, product.Price)
	h.saveCart(c, sc, http.StatusOK)
}

func (h *handler) IncrementCartItem(c *gin.Context) {
	h.updateCartLine(c, (*cart.Cart).Increment)
}

func (h *handler) DecrementCartItem(c *gin.Context) {
	h.updateCartLine(c, (*cart.Cart).Decrement)
}

func (h *handler) RemoveFromCart(c *gin.Context) {
	h.updateCartLine(c, (*cart.Cart).Remove)
}

func (h *handler) updateCartLine(c *gin.Context, apply func(*cart.Cart, bson.ObjectID) bool) {
	id, ok := objectIDParam(c)
	if !ok {
		return
	}
	sc, ok := h.loadCart(c)
	if !ok {
		return
	}
	if !apply(sc, id) {
		c.JSON(http.StatusNotFound, global.ErrorResponse("Item not in cart", global.FieldError("id", "the cart has no line for this product", "not_found")))
		return
	}
	h.saveCart(c, sc, http.StatusOK)
}

func (h *handler) ClearCart(c *gin.Context) {
	if err := h.svc.Carts.Delete(c.Request.Context(), sessionID(c)); err != nil {
		h.respondError(c, "Failed to clear cart", err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(cart.New().View()))
}

// Checkout submits the session cart. On success the emptied cart is saved;
// on failure the cart is left untouched so the customer can adjust it.
func (h *handler) Checkout(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader(idempotencyHeader)
	}

	sc, ok := h.loadCart(c)
	if !ok {
		return
	}
	total, items := sc.Total(), sc.ItemCount()

	order, err := h.svc.Checkout.Submit(c.Request.Context(), sessionID(c), req.CustomerName, sc, req.IdempotencyKey)
	if err != nil {
		h.respondError(c, "Checkout failed", err)
		return
	}

	if err := h.svc.Carts.Save(c.Request.Context(), sessionID(c), sc); err != nil {
		h.logger.Warn("failed to clear cart after checkout", zap.String("order_id", order.ID.Hex()), zap.Error(err))
	}
	// a keyed submit may be a replay; report the stored order, not the cart
	if order.IdempotencyKey != "" {
		detail, err := h.svc.Store.GetOrderDetail(c.Request.Context(), order.ID)
		if err != nil {
			h.respondError(c, "Checkout failed", err)
			return
		}
		total, items = detail.GetTotal(), detail.GetItemCount()
	}
	c.JSON(http.StatusCreated, global.SuccessResponse(checkoutResponse{
		OrderID:      order.ID,
		CustomerName: order.CustomerName,
		Total:        total.StringFixed(2),
		ItemCount:    items,
	}))
}
