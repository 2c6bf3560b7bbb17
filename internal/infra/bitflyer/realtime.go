package bitflyer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"lightning_go/internal/domain"
	"lightning_go/internal/infra"
)

var (
	_ domain.ChannelTransport = (*Realtime)(nil)
	_ infra.StreamHandler     = (*Realtime)(nil)
)

// MessageHandler receives one channelMessage notification.
type MessageHandler func(ctx context.Context, channel string, payload json.RawMessage)

// Realtime is the JSON-RPC websocket transport. It only sends control
// messages; routing state lives in the caller, which resubscribes from
// OnReconnect.
type Realtime struct {
	url     string
	worker  *infra.StreamWorker
	handler MessageHandler

	mu          sync.Mutex
	onReconnect func()

	logger *slog.Logger
}

// NewRealtime creates a transport for url. handler is called on the read
// goroutine for every channel event.
func NewRealtime(url string, handler MessageHandler) *Realtime {
	r := &Realtime{
		url:     url,
		handler: handler,
		logger:  slog.Default().With("module", "bitflyer_realtime"),
	}
	r.worker = infra.NewStreamWorker("bitflyer", r)
	return r
}

// OnReconnect registers fn to run after every connection but the first.
func (r *Realtime) OnReconnect(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onReconnect = fn
}

// Start begins the connect loop.
func (r *Realtime) Start(ctx context.Context) {
	r.worker.Start(ctx)
}

// Stop closes the connection and waits for the loop to exit.
func (r *Realtime) Stop() {
	r.worker.Stop()
}

// WaitReady blocks until the first connection is open.
func (r *Realtime) WaitReady(ctx context.Context) error {
	return r.worker.WaitReady(ctx)
}

// Opened returns how many connections have been opened so far.
func (r *Realtime) Opened() uint64 {
	return r.worker.Opened()
}

// Subscribe sends a subscribe call for channel.
func (r *Realtime) Subscribe(ctx context.Context, channel string) error {
	return r.call(ctx, methodSubscribe, channel)
}

// Unsubscribe sends an unsubscribe call for channel.
func (r *Realtime) Unsubscribe(ctx context.Context, channel string) error {
	return r.call(ctx, methodUnsubscribe, channel)
}

func (r *Realtime) call(ctx context.Context, method, channel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req := rpcRequest{
		Version: rpcVersion,
		Method:  method,
		Params:  rpcChannelParam{Channel: channel},
		ID:      uuid.NewString(),
	}
	if err := r.worker.WriteJSON(req); err != nil {
		return fmt.Errorf("%s %s: %w", method, channel, err)
	}
	return nil
}

// Endpoint implements infra.StreamHandler.
func (r *Realtime) Endpoint() string { return r.url }

// OnOpen implements infra.StreamHandler.
func (r *Realtime) OnOpen(ctx context.Context, reconnect bool) error {
	if !reconnect {
		return nil
	}

	r.mu.Lock()
	fn := r.onReconnect
	r.mu.Unlock()

	r.logger.Info("Reconnected")
	if fn != nil {
		// fn resubscribes and refetches over REST; frames must keep being
		// read meanwhile, so it cannot run on the read goroutine.
		go fn()
	}
	return nil
}

// OnFrame implements infra.StreamHandler.
func (r *Realtime) OnFrame(ctx context.Context, frame []byte) {
	var in rpcInbound
	if err := json.Unmarshal(frame, &in); err != nil {
		infra.GlobalMetrics.RecordDropped()
		r.logger.Debug("Unparseable frame", slog.Any("error", err))
		return
	}

	if in.Error != nil {
		infra.GlobalMetrics.RecordError()
		r.logger.Warn("RPC error", slog.String("id", in.ID), slog.Int("code", in.Error.Code), slog.String("message", in.Error.Message))
		return
	}

	if in.Method != methodChannelEvent || in.Params == nil {
		return
	}
	if r.handler != nil {
		r.handler(ctx, in.Params.Channel, in.Params.Message)
	}
}
