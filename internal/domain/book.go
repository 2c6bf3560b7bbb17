package domain

import "github.com/shopspring/decimal"

// PriceLevel is resting liquidity at one price.
type PriceLevel struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// BoardEntry is one price/size row of a board snapshot or delta as it arrives
// on the wire. A nil field means the exchange omitted it.
type BoardEntry struct {
	Price *decimal.Decimal `json:"price"`
	Size  *decimal.Decimal `json:"size"`
}

// Valid reports whether both price and size are present.
func (e BoardEntry) Valid() bool {
	return e.Price != nil && e.Size != nil
}

// BoardPayload is the shape shared by the board snapshot (GET /v1/getboard)
// and the lightning_board_<code> delta channel. In a delta, size 0 deletes the level.
type BoardPayload struct {
	MidPrice *decimal.Decimal `json:"mid_price,omitempty"`
	Bids     []BoardEntry     `json:"bids"`
	Asks     []BoardEntry     `json:"asks"`
}
