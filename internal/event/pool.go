package event

import (
	"sync"
)

// messagePool provides sync.Pool for inbound channel messages.
// Use this to reduce GC pressure on the realtime read path.
//
// Usage:
//
//	msg := AcquireChannelMessage()
//	msg.Channel = "lightning_board_BTC_JPY"
//	// ... dispatch ...
//	ReleaseChannelMessage(msg)  // Return to pool after processing
var messagePool = sync.Pool{
	New: func() interface{} {
		return &ChannelMessage{}
	},
}

// AcquireChannelMessage gets a ChannelMessage from the pool.
// The returned message has zero values and must be initialized.
func AcquireChannelMessage() *ChannelMessage {
	return messagePool.Get().(*ChannelMessage)
}

// ReleaseChannelMessage returns a ChannelMessage to the pool.
// The message is reset to zero values before being pooled.
func ReleaseChannelMessage(msg *ChannelMessage) {
	if msg == nil {
		return
	}
	msg.Seq = 0
	msg.ReceivedAt = 0
	msg.Channel = ""
	msg.Payload = nil

	messagePool.Put(msg)
}

// Warmup pre-allocates n messages so the first burst after connecting does
// not allocate. n <= 0 is a no-op.
func Warmup(n int) {
	msgs := make([]*ChannelMessage, 0, max(n, 0))
	for i := 0; i < n; i++ {
		msgs = append(msgs, AcquireChannelMessage())
	}
	for _, msg := range msgs {
		ReleaseChannelMessage(msg)
	}
}
