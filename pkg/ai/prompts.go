package ai

import (
	"fmt"
	"strings"

	"ejc.kiosk/go-api/pkg/models"
	"ejc.kiosk/go-api/pkg/report"
)

const lowStockThreshold = 5

const DashboardSystemPrompt = `You are helping the volunteers who run the snack kiosk of a weekend church youth retreat.
Read the sales figures and stock levels and reply in Brazilian Portuguese with:
- what sold best and when the queue is busiest
- which products should be restocked or prepared before the next peak
- one or two practical suggestions for the kitchen team
Keep it to two short paragraphs, plain text, no tables.`

// formatDashboardPrompt renders the summary and current stock as plain text
// for the model.
func formatDashboardPrompt(summary *report.Summary, products []models.Product) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Delivered orders: %d\n", summary.DeliveredOrders)
	fmt.Fprintf(&b, "Items sold: %d\n", summary.ItemsSold)
	fmt.Fprintf(&b, "Revenue: %s\n", summary.RevenueLabel)

	b.WriteString("\nBest sellers:\n")
	if len(summary.BestSellers) == 0 {
		b.WriteString("- none yet\n")
	}
	for _, s := range summary.BestSellers {
		fmt.Fprintf(&b, "- %s: %d units\n", s.ProductName, s.TotalSold)
	}

	b.WriteString("\nOrders per hour (busiest first):\n")
	if len(summary.PeakHours) == 0 {
		b.WriteString("- none yet\n")
	}
	for _, h := range summary.PeakHours {
		fmt.Fprintf(&b, "- %s: %d orders\n", h.Label, h.Orders)
	}

	b.WriteString("\nCurrent stock:\n")
	for _, p := range products {
		status := "on sale"
		switch {
		case !p.Available:
			status = "hidden"
		case p.Stock == 0:
			status = "sold out"
		case p.Stock <= lowStockThreshold:
			status = "low"
		}
		fmt.Fprintf(&b, "- %s: %d (%s)\n", p.Name, p.Stock, status)
	}
	return b.String()
}
