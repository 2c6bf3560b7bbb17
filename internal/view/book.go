package view

import (
	"strings"

	"lightning_go/internal/domain"
	"lightning_go/internal/service"
)

// BookScreen is everything the order book screen shows.
type BookScreen struct {
	Product domain.Product
	Ticker  service.TickerState
	Asks    []domain.PriceLevel
	Bids    []domain.PriceLevel
	Health  domain.HealthPayload
}

// RenderBook draws asks above bids, both highest price first.
func RenderBook(s BookScreen) string {
	var b strings.Builder

	b.WriteString(header("Product", s.Product.Name, TitleStyle) + "\n")
	b.WriteString(header("Last Price", s.Product.FormatPrice(s.Ticker.Price), trendStyle(s.Ticker.Price.Cmp(s.Ticker.PriceOld))) + "\n")
	b.WriteString(header("Bid/Ask Ratio", formatRatio(s.Ticker.Ratio), ratioStyle(s.Ticker.Ratio)) + "\n")
	b.WriteString(header("24H Volume", s.Product.FormatVolume(s.Ticker.Volume), NeutralStyle) + "\n")
	b.WriteString(separator() + "\n")

	for _, row := range s.Asks {
		b.WriteString(padLeft(s.Product.FormatVolume(row.Size), 16))
		b.WriteString(" " + SellStyle.Render(padLeft(s.Product.FormatPrice(row.Price), 12)) + " ")
		b.WriteString("\n")
	}
	for _, row := range s.Bids {
		b.WriteString(strings.Repeat(" ", 16))
		b.WriteString(" " + BuyStyle.Render(padLeft(s.Product.FormatPrice(row.Price), 12)) + " ")
		b.WriteString(padLeft(s.Product.FormatVolume(row.Size), 16))
		b.WriteString("\n")
	}

	b.WriteString(separator() + "\n")
	b.WriteString(FooterStyle.Render("Service) "+orDash(s.Health.Health)+"    Market) "+orDash(s.Health.State)) + "\n")

	return PanelStyle.Render(b.String())
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
