package event

import "encoding/json"

// ChannelMessage is one inbound realtime event as handed from the transport
// to the sequencer.
type ChannelMessage struct {
	Seq        uint64          `json:"seq"`
	ReceivedAt int64           `json:"received_at"` // Unix microseconds
	Channel    string          `json:"channel"`
	Payload    json.RawMessage `json:"payload"`
}
