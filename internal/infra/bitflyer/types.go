package bitflyer

import "encoding/json"

// Market is one entry of GET /v1/getmarkets.
type Market struct {
	ProductCode string `json:"product_code"`
	Alias       string `json:"alias,omitempty"`
	MarketType  string `json:"market_type,omitempty"`
}

// rpcRequest is an outbound JSON-RPC 2.0 call on the realtime endpoint.
type rpcRequest struct {
	Version string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  rpcChannelParam `json:"params"`
	ID      string          `json:"id,omitempty"`
}

type rpcChannelParam struct {
	Channel string `json:"channel"`
}

// rpcInbound covers both responses to our calls and channelMessage
// notifications.
type rpcInbound struct {
	Method string          `json:"method"`
	Params *rpcChannelData `json:"params"`
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcChannelData struct {
	Channel string          `json:"channel"`
	Message json.RawMessage `json:"message"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	rpcVersion         = "2.0"
	methodSubscribe    = "subscribe"
	methodUnsubscribe  = "unsubscribe"
	methodChannelEvent = "channelMessage"
)
