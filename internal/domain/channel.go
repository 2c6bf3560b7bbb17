package domain

import "strings"

// Channel kinds published by the realtime API. A channel name is
// "<kind>_<product_code>".
const (
	KindBoard      = "lightning_board"
	KindTicker     = "lightning_ticker"
	KindExecutions = "lightning_executions"
)

func BoardChannel(code string) string      { return KindBoard + "_" + code }
func TickerChannel(code string) string     { return KindTicker + "_" + code }
func ExecutionsChannel(code string) string { return KindExecutions + "_" + code }

// ParseChannel splits a channel name into its kind and product code.
// Product codes themselves contain underscores (FX_BTC_JPY), so the kind is
// matched by prefix rather than by splitting.
func ParseChannel(channel string) (kind, code string, ok bool) {
	for _, k := range []string{KindExecutions, KindBoard, KindTicker} {
		if rest, found := strings.CutPrefix(channel, k+"_"); found && rest != "" {
			return k, rest, true
		}
	}
	return "", "", false
}
