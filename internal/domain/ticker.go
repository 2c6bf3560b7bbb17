package domain

import "github.com/shopspring/decimal"

// TickerPayload is the ticker shape shared by GET /v1/getticker and the
// lightning_ticker_<code> channel.
type TickerPayload struct {
	ProductCode     string          `json:"product_code"`
	Timestamp       string          `json:"timestamp"`
	LastPrice       decimal.Decimal `json:"ltp"`
	BestBid         decimal.Decimal `json:"best_bid"`
	BestAsk         decimal.Decimal `json:"best_ask"`
	TotalBidDepth   decimal.Decimal `json:"total_bid_depth"`
	TotalAskDepth   decimal.Decimal `json:"total_ask_depth"`
	Volume          decimal.Decimal `json:"volume"`
	VolumeByProduct decimal.Decimal `json:"volume_by_product"`
}

// HealthPayload is the response of GET /v1/getboardstate.
type HealthPayload struct {
	Health string `json:"health"`
	State  string `json:"state"`
}
