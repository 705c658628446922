package ai

import (
	"context"
	"time"

	"ejc.kiosk/go-api/pkg/models"
	"ejc.kiosk/go-api/pkg/report"
)

// AIReportResponse represents the structure of AI-generated reports
type AIReportResponse struct {
	Status      string     `json:"status"`
	Data        ReportData `json:"data"`
	GeneratedAt time.Time  `json:"generated_at"`
	AIEnabled   bool       `json:"ai_enabled"`
}

type ReportData struct {
	RawData    *report.Summary `json:"raw_data"`
	AIInsights string          `json:"ai_insights,omitempty"`
	Summary    string          `json:"summary"`
	Error      string          `json:"error,omitempty"`
}

// DashboardInsights narrates the dashboard summary. Without AI, or when the
// model call fails, the raw summary is still returned.
func (c *Client) DashboardInsights(ctx context.Context, summary *report.Summary, products []models.Product) *AIReportResponse {
	response := &AIReportResponse{
		Status:      "success",
		GeneratedAt: time.Now(),
		AIEnabled:   c.IsEnabled(),
		Data: ReportData{
			RawData: summary,
			Summary: "Raw dashboard data (AI insights unavailable)",
		},
	}
	if !c.IsEnabled() {
		return response
	}

	insights, err := c.generateCompletion(ctx, DashboardSystemPrompt, formatDashboardPrompt(summary, products))
	if err != nil {
		response.Data.Error = "AI analysis failed: " + err.Error()
		return response
	}
	response.Data.AIInsights = insights
	response.Data.Summary = "AI-generated dashboard insights"
	return response
}
