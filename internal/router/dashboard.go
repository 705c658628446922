package router

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"ejc.kiosk/go-api/pkg/global"
)

func (h *handler) GetDashboard(c *gin.Context) {
	summary, err := h.svc.Reports.Summary(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to build dashboard", err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(summary))
}

// ExportCSV renders the whole report before answering so that a failed
// query still gets a proper error response.
func (h *handler) ExportCSV(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.svc.Reports.WriteCSV(c.Request.Context(), &buf); err != nil {
		h.respondError(c, "Failed to export orders", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+h.svc.Reports.ExportFilename()+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// GetInsights narrates the dashboard with AI when configured, and falls back
// to the raw summary otherwise.
func (h *handler) GetInsights(c *gin.Context) {
	ctx := c.Request.Context()
	summary, err := h.svc.Reports.Summary(ctx)
	if err != nil {
		h.respondError(c, "Failed to build dashboard", err)
		return
	}
	products, err := h.svc.Inventory.ListProducts(ctx)
	if err != nil {
		h.respondError(c, "Failed to get products", err)
		return
	}
	c.JSON(http.StatusOK, h.svc.AI.DashboardInsights(ctx, summary, products))
}
