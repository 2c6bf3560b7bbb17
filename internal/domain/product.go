package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Product describes a tradable instrument and how its numbers are displayed.
type Product struct {
	Code            string `gorm:"primaryKey" json:"product_code"`
	Name            string `json:"name"`
	PricePrecision  int32  `json:"price_precision"`
	VolumePrecision int32  `json:"volume_precision"`
	Alias           string `json:"alias,omitempty"`
}

// FormatPrice renders a price with the product's fixed precision.
func (p Product) FormatPrice(d decimal.Decimal) string {
	return d.StringFixed(p.PricePrecision)
}

// FormatVolume renders a size or volume with the product's fixed precision.
func (p Product) FormatVolume(d decimal.Decimal) string {
	return d.StringFixed(p.VolumePrecision)
}

// BuiltinProducts are the spot and FX products known without a catalog lookup.
var BuiltinProducts = []Product{
	{Code: "BTC_JPY", Name: "BTC/JPY", PricePrecision: 0, VolumePrecision: 8},
	{Code: "ETH_BTC", Name: "ETH/BTC", PricePrecision: 5, VolumePrecision: 7},
	{Code: "BCH_BTC", Name: "BCH/BTC", PricePrecision: 5, VolumePrecision: 8},
	{Code: "FX_BTC_JPY", Name: "BTC-FX/JPY", PricePrecision: 0, VolumePrecision: 8},
}

// LookupProduct resolves a product code (case-insensitive). Dated futures
// (BTCJPY28MAR2025 etc.) are derived from their underlying's precision.
func LookupProduct(code string) (Product, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, p := range BuiltinProducts {
		if p.Code == code {
			return p, nil
		}
	}

	switch {
	case strings.HasPrefix(code, "BTCJPY"):
		return Product{Code: code, Name: code, PricePrecision: 0, VolumePrecision: 8}, nil
	case strings.HasPrefix(code, "ETHBTC"):
		return Product{Code: code, Name: code, PricePrecision: 5, VolumePrecision: 7}, nil
	}

	return Product{}, fmt.Errorf("%w: '%s' isn't supported, use BTC_JPY, ETH_BTC, BCH_BTC or FX_BTC_JPY", ErrInvalidProductCode, code)
}
