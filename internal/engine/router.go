package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"lightning_go/internal/domain"
	"lightning_go/internal/infra"
)

// Listener receives every dispatched event together with its channel name
// and filters for itself.
type Listener interface {
	Notify(channel string, payload json.RawMessage)
}

// ListenerFunc adapts a plain function to Listener.
type ListenerFunc func(channel string, payload json.RawMessage)

func (f ListenerFunc) Notify(channel string, payload json.RawMessage) { f(channel, payload) }

// Attachment is the handle returned by Attach and used to Detach.
type Attachment struct {
	listener Listener
	detached atomic.Bool
}

// Router subscribes to named channels over a transport and fans every
// inbound event out to the attached listeners in attachment order.
//
// Dispatch iterates over a snapshot of the listener list, so Attach and
// Detach may be called from inside a listener. A listener detached during a
// pass is skipped for the rest of that pass; one attached during a pass
// receives events from the next pass on.
type Router struct {
	transport domain.ChannelTransport

	subMu sync.Mutex // serializes subscribe/unsubscribe round trips

	mu        sync.RWMutex
	channels  map[string]struct{}
	order     []string
	listeners []*Attachment

	metrics *infra.Metrics
	logger  *slog.Logger
}

// NewRouter creates a router over transport.
func NewRouter(transport domain.ChannelTransport) *Router {
	return &Router{
		transport: transport,
		channels:  make(map[string]struct{}),
		metrics:   infra.GlobalMetrics,
		logger:    slog.Default().With("module", "router"),
	}
}

// Subscribe sends a subscribe request for every channel not yet tracked.
// Channels that fail are left untracked and their errors are joined.
func (r *Router) Subscribe(ctx context.Context, channels ...string) error {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	var errs []error
	for _, ch := range channels {
		if !r.track(ch) {
			continue
		}
		// Tracked before the request goes out so the first event is not
		// mistaken for an unknown channel.
		if err := r.transport.Subscribe(ctx, ch); err != nil {
			r.untrack(ch)
			errs = append(errs, fmt.Errorf("subscribe %s: %w", ch, err))
			continue
		}
		r.logger.Info("Subscribed", slog.String("channel", ch))
	}
	return errors.Join(errs...)
}

// Unsubscribe releases every tracked channel and clears routing state.
// Listeners stay attached.
func (r *Router) Unsubscribe(ctx context.Context) error {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	r.mu.Lock()
	channels := r.order
	r.channels = make(map[string]struct{})
	r.order = nil
	r.mu.Unlock()

	var errs []error
	for _, ch := range channels {
		if err := r.transport.Unsubscribe(ctx, ch); err != nil {
			errs = append(errs, fmt.Errorf("unsubscribe %s: %w", ch, err))
		}
	}
	return errors.Join(errs...)
}

// Resubscribe re-sends subscribe for every tracked channel, e.g. after the
// transport reconnected.
func (r *Router) Resubscribe(ctx context.Context) error {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	var errs []error
	for _, ch := range r.Channels() {
		if err := r.transport.Subscribe(ctx, ch); err != nil {
			errs = append(errs, fmt.Errorf("resubscribe %s: %w", ch, err))
		}
	}
	return errors.Join(errs...)
}

// Channels returns the tracked channels in subscription order.
func (r *Router) Channels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// track adds ch and reports whether it was new.
func (r *Router) track(ch string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.channels[ch]; ok {
		return false
	}
	r.channels[ch] = struct{}{}
	r.order = append(r.order, ch)
	return true
}

func (r *Router) untrack(ch string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.channels, ch)
	for i, c := range r.order {
		if c == ch {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
}

// Attach registers a listener. It stays attached across subscribe cycles
// until detached.
func (r *Router) Attach(l Listener) *Attachment {
	a := &Attachment{listener: l}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, a)
	return a
}

// Detach removes a listener. Detaching twice or a nil handle is a no-op.
func (r *Router) Detach(a *Attachment) {
	if a == nil {
		return
	}
	a.detached.Store(true)

	r.mu.Lock()
	defer r.mu.Unlock()
	kept := make([]*Attachment, 0, len(r.listeners))
	for _, l := range r.listeners {
		if l != a {
			kept = append(kept, l)
		}
	}
	r.listeners = kept
}

// Dispatch delivers one inbound event. Events without a payload are
// keep-alives and are dropped, as are events for untracked channels.
func (r *Router) Dispatch(channel string, payload json.RawMessage) {
	if isEmptyPayload(payload) {
		r.metrics.RecordDropped()
		return
	}

	r.mu.RLock()
	_, ok := r.channels[channel]
	listeners := r.listeners
	r.mu.RUnlock()

	if !ok {
		r.metrics.RecordDropped()
		return
	}

	for _, a := range listeners {
		if a.detached.Load() {
			continue
		}
		a.listener.Notify(channel, payload)
	}
}

func isEmptyPayload(p json.RawMessage) bool {
	p = bytes.TrimSpace(p)
	return len(p) == 0 || bytes.Equal(p, []byte("null"))
}
