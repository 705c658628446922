package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ejc.kiosk/go-api/pkg/global"
	"ejc.kiosk/go-api/pkg/kitchen"
	"ejc.kiosk/go-api/pkg/models"
)

// GetPendingOrders returns the queue oldest first.
func (h *handler) GetPendingOrders(c *gin.Context) {
	orders, err := h.svc.Kitchen.Pending(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to get pending orders", err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(orders))
}

// StreamPendingOrders pushes the whole queue as a server-sent "queue" event,
// once on connect and again after every order change.
func (h *handler) StreamPendingOrders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ctx := c.Request.Context()
	err := h.svc.Kitchen.Feed(ctx, h.svc.Changes, func(snapshot kitchen.Snapshot) error {
		c.SSEvent("queue", snapshot)
		c.Writer.Flush()
		return ctx.Err()
	})
	if err != nil && ctx.Err() == nil {
		h.logger.Warn("kitchen stream ended", zap.Error(err))
	}
}

func (h *handler) DeliverOrder(c *gin.Context) {
	id, ok := objectIDParam(c)
	if !ok {
		return
	}
	if err := h.svc.Kitchen.MarkDelivered(c.Request.Context(), id); err != nil {
		h.respondError(c, "Failed to deliver order", err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(map[string]string{"id": id.Hex(), "status": "delivered"}))
}

func (h *handler) RenameOrder(c *gin.Context) {
	id, ok := objectIDParam(c)
	if !ok {
		return
	}
	var req models.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "customer_name", err)
		return
	}
	if err := h.svc.Kitchen.Rename(c.Request.Context(), id, req.CustomerName); err != nil {
		h.respondError(c, "Failed to rename order", err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(map[string]string{"id": id.Hex()}))
}

// DeleteOrder removes the order and its lines. Stock is not restored.
func (h *handler) DeleteOrder(c *gin.Context) {
	id, ok := objectIDParam(c)
	if !ok {
		return
	}
	if err := h.svc.Kitchen.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, "Failed to delete order", err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(map[string]string{"id": id.Hex(), "message": "Order deleted"}))
}

// GetHistory returns delivered orders newest first.
func (h *handler) GetHistory(c *gin.Context) {
	orders, err := h.svc.Kitchen.History(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to get order history", err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(orders))
}
