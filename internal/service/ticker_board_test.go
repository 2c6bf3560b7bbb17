package service

import (
	"math"
	"testing"

	"lightning_go/internal/domain"
)

func tick(ltp, bid, ask, vol string) domain.TickerPayload {
	return domain.TickerPayload{
		LastPrice:       d(ltp),
		TotalBidDepth:   d(bid),
		TotalAskDepth:   d(ask),
		VolumeByProduct: d(vol),
	}
}

func TestTickerState_Update(t *testing.T) {
	var st TickerState

	st.Update(tick("100", "30", "10", "5"))
	st.Update(tick("101", "10", "20", "6"))

	if !st.PriceOld.Equal(d("100")) || !st.Price.Equal(d("101")) {
		t.Errorf("price/old = %s/%s, want 101/100", st.Price, st.PriceOld)
	}
	if st.Ratio != 0.5 {
		t.Errorf("Ratio = %v, want 0.5", st.Ratio)
	}
	if !st.Volume.Equal(d("6")) {
		t.Errorf("Volume = %s, want 6", st.Volume)
	}

	t.Run("zero ask depth", func(t *testing.T) {
		st.Update(tick("101", "1", "0", "6"))
		if !math.IsInf(st.Ratio, 1) {
			t.Errorf("Ratio = %v, want +Inf", st.Ratio)
		}
	})
}

func TestTickerBoard(t *testing.T) {
	b := NewTickerBoard("BTC_JPY", "ETH_BTC")
	changes := 0
	b.OnChange(func() { changes++ })

	b.Update("FX_BTC_JPY", tick("200", "1", "1", "1"))
	b.Update("BTC_JPY", tick("100", "1", "1", "1"))

	if got := b.Codes(); len(got) != 3 || got[0] != "BTC_JPY" || got[2] != "FX_BTC_JPY" {
		t.Errorf("Codes = %v", got)
	}

	st, ok := b.Get("FX_BTC_JPY")
	if !ok || !st.Price.Equal(d("200")) {
		t.Errorf("lazily created entry not updated: %+v", st)
	}
	if _, ok := b.Get("BCH_BTC"); ok {
		t.Error("unknown code should not exist")
	}
	if changes != 2 {
		t.Errorf("expected 2 change notifications, got %d", changes)
	}
	if snap := b.Snapshot(); len(snap) != 3 || !snap[1].Price.IsZero() {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}
