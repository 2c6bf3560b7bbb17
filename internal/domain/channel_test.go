package domain

import "testing"

func TestChannelNames(t *testing.T) {
	if got := BoardChannel("FX_BTC_JPY"); got != "lightning_board_FX_BTC_JPY" {
		t.Errorf("BoardChannel = %q", got)
	}
	if got := TickerChannel("BTC_JPY"); got != "lightning_ticker_BTC_JPY" {
		t.Errorf("TickerChannel = %q", got)
	}
	if got := ExecutionsChannel("ETH_BTC"); got != "lightning_executions_ETH_BTC" {
		t.Errorf("ExecutionsChannel = %q", got)
	}
}

func TestParseChannel(t *testing.T) {
	tests := []struct {
		channel  string
		wantKind string
		wantCode string
		wantOK   bool
	}{
		{"lightning_board_FX_BTC_JPY", KindBoard, "FX_BTC_JPY", true},
		{"lightning_ticker_BTC_JPY", KindTicker, "BTC_JPY", true},
		{"lightning_executions_ETH_BTC", KindExecutions, "ETH_BTC", true},
		{"lightning_board_", "", "", false},
		{"unknown_BTC_JPY", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.channel, func(t *testing.T) {
			kind, code, ok := ParseChannel(tt.channel)
			if kind != tt.wantKind || code != tt.wantCode || ok != tt.wantOK {
				t.Errorf("ParseChannel(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.channel, kind, code, ok, tt.wantKind, tt.wantCode, tt.wantOK)
			}
		})
	}
}
