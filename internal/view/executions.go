package view

import (
	"strings"

	"lightning_go/internal/domain"
	"lightning_go/internal/service"
)

// ExecutionsScreen is everything the execution tape screen shows.
type ExecutionsScreen struct {
	Product domain.Product
	Stats   service.TapeStats
	Entries []domain.Execution // oldest first
}

// RenderExecutions draws the tape newest first under its buy/sell summary.
func RenderExecutions(s ExecutionsScreen) string {
	var b strings.Builder

	b.WriteString(header("Product", s.Product.Name, TitleStyle) + "\n")
	b.WriteString(header("Buy", s.Product.FormatVolume(s.Stats.BuyVolume), BuyStyle) + "\n")
	b.WriteString(header("Sell", s.Product.FormatVolume(s.Stats.SellVolume), SellStyle) + "\n")
	b.WriteString(header("Buy/Sell Ratio", formatRatio(s.Stats.Ratio), trendStyle(compareFloat(s.Stats.Ratio, 1.0))) + "\n")
	b.WriteString(separator() + "\n")

	for i := len(s.Entries) - 1; i >= 0; i-- {
		row := s.Entries[i]
		style := SellStyle
		if row.Side == domain.SideBuy {
			style = BuyStyle
		}
		b.WriteString(LabelStyle.Render(padRight(row.Time.Local().Format("15:04:05"), 14)))
		b.WriteString(style.Render(padRight(row.Side, 4) + padLeft(s.Product.FormatPrice(row.Price), 10)))
		b.WriteString(padLeft(s.Product.FormatVolume(row.Size), 16))
		b.WriteString("\n")
	}

	b.WriteString(separator() + "\n")
	return PanelStyle.Render(b.String())
}

func compareFloat(a, b float64) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}
