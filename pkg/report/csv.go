package report

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"ejc.kiosk/go-api/pkg/models"
)

const (
	csvSeparator = ";"
	csvHeader    = "Data;Hora;Comprador;Produto;Quantidade;Preco Unitario;Subtotal"
	dateLayout   = "02/01/2006"
	timeLayout   = "15:04:05"
)

// WriteCSV writes one row per delivered order line, oldest order first.
// Names are always quoted so spreadsheets keep them as text.
func (s *Service) WriteCSV(ctx context.Context, w io.Writer) error {
	delivered, err := s.orders.ListOrderDetails(ctx, models.OrderStatusDelivered, true)
	if err != nil {
		return fmt.Errorf("failed to load delivered orders: %w", err)
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(csvHeader + "\n"); err != nil {
		return err
	}
	for i := range delivered {
		order := &delivered[i]
		createdAt := order.CreatedAt.In(s.loc)
		for j := range order.Lines {
			line := &order.Lines[j]
			subtotal, ok := line.Subtotal()
			if !ok {
				continue
			}
			row := []string{
				createdAt.Format(dateLayout),
				createdAt.Format(timeLayout),
				quote(order.CustomerName),
				quote(line.Product.Name),
				strconv.Itoa(line.Quantity),
				FormatAmount(line.Product.Price),
				FormatAmount(subtotal),
			}
			if _, err := bw.WriteString(strings.Join(row, csvSeparator) + "\n"); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// ExportFilename names a report generated now.
func (s *Service) ExportFilename() string {
	return "relatorio_pedidos_ejc_" + s.now().In(s.loc).Format("2006-01-02") + ".csv"
}

// quote also prefixes a leading formula character with ' so spreadsheets
// never evaluate a name.
func quote(value string) string {
	value = norm.NFC.String(value)
	if value != "" && strings.ContainsRune("=+-@\t\r", rune(value[0])) {
		value = "'" + value
	}
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
