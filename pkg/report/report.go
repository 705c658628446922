// Package report computes the sales dashboard. Every figure is derived from
// delivered orders; lines whose product has been removed are skipped.
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ejc.kiosk/go-api/pkg/global"
	"ejc.kiosk/go-api/pkg/models"
	"ejc.kiosk/go-api/pkg/store"
)

const bestSellersLimit = 10

type HourCount struct {
	Hour   int    `json:"hour"`
	Label  string `json:"label"`
	Orders int    `json:"orders"`
}

type Summary struct {
	Revenue         decimal.Decimal     `json:"revenue"`
	RevenueLabel    string              `json:"revenue_label"`
	DeliveredOrders int                 `json:"delivered_orders"`
	ItemsSold       int                 `json:"items_sold"`
	SkippedLines    int                 `json:"skipped_lines"`
	BestSellers     []models.BestSeller `json:"best_sellers"`
	PeakHours       []HourCount         `json:"peak_hours"`
	GeneratedAt     time.Time           `json:"generated_at"`
}

type Service struct {
	orders store.Orders
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewService builds the reporter. Hours and dates are read in loc.
func NewService(orders store.Orders, loc *time.Location, logger *zap.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{orders: orders, loc: loc, logger: global.OrNop(logger), now: time.Now}
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	delivered, err := s.orders.ListOrderDetails(ctx, models.OrderStatusDelivered, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load delivered orders: %w", err)
	}
	bestSellers, err := s.orders.BestSellers(ctx, bestSellersLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load best sellers: %w", err)
	}

	summary := &Summary{
		Revenue:         decimal.Zero,
		DeliveredOrders: len(delivered),
		BestSellers:     bestSellers,
		PeakHours:       peakHours(delivered, s.loc),
		GeneratedAt:     s.now(),
	}
	for i := range delivered {
		for j := range delivered[i].Lines {
			subtotal, ok := delivered[i].Lines[j].Subtotal()
			if !ok {
				summary.SkippedLines++
				continue
			}
			summary.Revenue = summary.Revenue.Add(subtotal)
			summary.ItemsSold += delivered[i].Lines[j].Quantity
		}
	}
	summary.RevenueLabel = "R$ " + FormatAmount(summary.Revenue)

	if summary.SkippedLines > 0 {
		s.logger.Info("dashboard skipped lines of removed products", zap.Int("lines", summary.SkippedLines))
	}
	return summary, nil
}

// peakHours counts orders per hour of day, busiest first, ties by hour.
func peakHours(orders []models.OrderDetail, loc *time.Location) []HourCount {
	counts := make(map[int]int)
	for _, o := range orders {
		counts[o.CreatedAt.In(loc).Hour()]++
	}

	out := make([]HourCount, 0, len(counts))
	for hour, n := range counts {
		out = append(out, HourCount{
			Hour:   hour,
			Label:  fmt.Sprintf("%02d:00 - %02d:00", hour, hour+1),
			Orders: n,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Orders != out[j].Orders {
			return out[i].Orders > out[j].Orders
		}
		return out[i].Hour < out[j].Hour
	})
	return out
}

// FormatAmount renders a money value with two places and a decimal comma,
// without grouping: 1234.5 becomes "1234,50".
func FormatAmount(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1)
}
