package service

import (
	"sync"
	"time"

	"lightning_go/internal/domain"

	"github.com/shopspring/decimal"
)

// TickerState is the latest ticker of one product with one step of price memory.
type TickerState struct {
	Code      string          `json:"code"`
	Price     decimal.Decimal `json:"price"`
	PriceOld  decimal.Decimal `json:"price_old"`
	Ratio     float64         `json:"ratio"` // total bid depth / total ask depth
	Volume    decimal.Decimal `json:"volume"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Update applies a self-contained ticker payload. The ratio is a plain
// float64 quotient: a zero ask depth yields +Inf (or NaN with zero bids).
func (s *TickerState) Update(p domain.TickerPayload) {
	s.PriceOld = s.Price
	s.Price = p.LastPrice
	s.Ratio = p.TotalBidDepth.InexactFloat64() / p.TotalAskDepth.InexactFloat64()
	s.Volume = p.VolumeByProduct
	s.UpdatedAt = time.Now()
}

// TickerBoard tracks TickerState for many products.
type TickerBoard struct {
	mu       sync.RWMutex
	tickers  map[string]*TickerState
	order    []string
	onChange func()
}

// NewTickerBoard creates a board, pre-registering codes so they list in that order.
func NewTickerBoard(codes ...string) *TickerBoard {
	b := &TickerBoard{tickers: make(map[string]*TickerState)}
	for _, c := range codes {
		b.entry(c)
	}
	return b
}

// OnChange registers the state-changed notification.
func (b *TickerBoard) OnChange(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

// entry returns the state for code, creating it. Must be called with lock held.
func (b *TickerBoard) entry(code string) *TickerState {
	st, ok := b.tickers[code]
	if !ok {
		st = &TickerState{Code: code}
		b.tickers[code] = st
		b.order = append(b.order, code)
	}
	return st
}

// Update routes a payload to the state of code, creating it on first use.
func (b *TickerBoard) Update(code string, p domain.TickerPayload) {
	b.mu.Lock()
	b.entry(code).Update(p)
	fn := b.onChange
	b.mu.Unlock()

	notify(fn)
}

// Get returns a copy of the state for code.
func (b *TickerBoard) Get(code string) (TickerState, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	st, ok := b.tickers[code]
	if !ok {
		return TickerState{}, false
	}
	return *st, true
}

// Codes returns product codes in registration order.
func (b *TickerBoard) Codes() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.order...)
}

// Snapshot returns copies of every state in registration order.
func (b *TickerBoard) Snapshot() []TickerState {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]TickerState, 0, len(b.order))
	for _, code := range b.order {
		out = append(out, *b.tickers[code])
	}
	return out
}
