package view

import (
	"strings"
	"time"

	"lightning_go/internal/domain"
	"lightning_go/internal/service"
)

// TickerRow pairs a product with its latest ticker.
type TickerRow struct {
	Product domain.Product
	State   service.TickerState
}

// RenderTicker draws one line per product in registration order.
func RenderTicker(rows []TickerRow, now time.Time) string {
	var b strings.Builder

	b.WriteString(header("Exchange", "bitFlyer Lightning", TitleStyle) + "\n")
	b.WriteString(header("Last Update", now.Local().Format("15:04:05"), NeutralStyle) + "\n\n")

	b.WriteString(LabelStyle.Render(padRight("Code", 12) + padLeft("Price", 10) + padLeft("B/A", 8) + padLeft("Volume", 16)))
	b.WriteString("\n" + separator() + "\n")

	for _, r := range rows {
		b.WriteString(padRight(r.Product.Code, 12))
		b.WriteString(trendStyle(r.State.Price.Cmp(r.State.PriceOld)).Render(padLeft(r.Product.FormatPrice(r.State.Price), 10)))
		b.WriteString(trendStyle(compareFloat(r.State.Ratio, 1.0)).Render(padLeft(formatRatio(r.State.Ratio), 8)))
		b.WriteString(padLeft(r.Product.FormatVolume(r.State.Volume), 16))
		b.WriteString("\n")
	}

	b.WriteString(separator() + "\n")
	return PanelStyle.Render(b.String())
}
