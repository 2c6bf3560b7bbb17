package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"lightning_go/internal/engine"
	"lightning_go/internal/event"
	"lightning_go/internal/infra"
	"lightning_go/internal/infra/bitflyer"
)

const (
	inboxSize      = 1024
	connectTimeout = 15 * time.Second
	releaseTimeout = 3 * time.Second
)

// pipeline wires transport -> sequencer -> router and the render coalescer
// shared by every screen.
type pipeline struct {
	realtime  *bitflyer.Realtime
	router    *engine.Router
	sequencer *engine.Sequencer
	coalescer *engine.Coalescer
	out       io.Writer
}

func newPipeline(cfg *infra.Config, out io.Writer, render func() string) *pipeline {
	p := &pipeline{out: out}

	p.realtime = bitflyer.NewRealtime(cfg.API.WSURL, func(ctx context.Context, channel string, payload json.RawMessage) {
		if err := p.sequencer.Submit(ctx, channel, payload); err != nil && ctx.Err() == nil {
			slog.Warn("Dropped inbound message", slog.String("channel", channel), slog.Any("error", err))
		}
	})
	p.router = engine.NewRouter(p.realtime)
	p.sequencer = engine.NewSequencer(inboxSize, p.router)
	p.sequencer.SetDumpPath(filepath.Join(cfg.Logging.Dir, "panic_dump.json"))
	event.Warmup(inboxSize)
	p.coalescer = engine.NewCoalescer(cfg.RenderInterval(), func() {
		fmt.Fprint(p.out, render())
	})
	return p
}

// start runs the dispatch loop and the renderer, connects, and returns once
// the first connection is open.
func (p *pipeline) start(ctx context.Context) error {
	go p.sequencer.Run(ctx)
	go p.coalescer.Run(ctx)
	p.realtime.Start(ctx)

	waitCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := p.realtime.WaitReady(waitCtx); err != nil {
		return fmt.Errorf("realtime connect: %w", err)
	}
	return nil
}

// onReconnect resubscribes every tracked channel and then runs resync.
func (p *pipeline) onReconnect(ctx context.Context, resync func(context.Context) error) {
	p.realtime.OnReconnect(func() {
		if err := p.router.Resubscribe(ctx); err != nil {
			slog.Warn("Resubscribe failed", slog.Any("error", err))
		}
		if resync == nil {
			return
		}
		if err := resync(ctx); err != nil {
			infra.GlobalMetrics.RecordError()
			slog.Warn("Resync after reconnect failed", slog.Any("error", err))
		}
	})
}

// stop unsubscribes with a short grace period and closes the transport.
func (p *pipeline) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := p.router.Unsubscribe(ctx); err != nil {
		slog.Debug("Unsubscribe on shutdown failed", slog.Any("error", err))
	}
	p.realtime.Stop()

	m := infra.GlobalMetrics.Snapshot()
	slog.Info("Pipeline stopped",
		slog.Uint64("dispatched", m.EventsDispatched),
		slog.Uint64("dropped", m.EventsDropped),
		slog.Uint64("buffered", m.DeltasBuffered),
		slog.Uint64("connections", p.realtime.Opened()),
		slog.Uint64("reconnects", m.Reconnects),
		slog.Uint64("errors", m.ErrorsTotal),
	)
}
