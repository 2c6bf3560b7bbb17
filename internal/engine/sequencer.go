package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"lightning_go/internal/event"
	"lightning_go/internal/infra"
)

// Sequencer serializes every inbound realtime event onto a single goroutine
// before it reaches the router. Listener callbacks therefore never run
// concurrently with each other.
type Sequencer struct {
	inbox   chan *event.ChannelMessage
	router  *Router
	nextSeq uint64

	submitMu  sync.Mutex
	submitSeq uint64

	// Last sequence seen per channel, for post-mortem dumps.
	lastSeq map[string]uint64

	dumpPath string
	metrics  *infra.Metrics
}

// NewSequencer creates a sequencer feeding router.
func NewSequencer(inboxSize int, router *Router) *Sequencer {
	return &Sequencer{
		inbox:    make(chan *event.ChannelMessage, inboxSize),
		router:   router,
		nextSeq:  1,
		lastSeq:  make(map[string]uint64),
		dumpPath: "panic_dump.json",
		metrics:  infra.GlobalMetrics,
	}
}

// SetDumpPath overrides where DumpState writes on a panic.
func (s *Sequencer) SetDumpPath(path string) {
	s.dumpPath = path
}

// Submit stamps the event with the next sequence number and queues it.
// It blocks while the inbox is full.
func (s *Sequencer) Submit(ctx context.Context, channel string, payload json.RawMessage) error {
	msg := event.AcquireChannelMessage()
	msg.Channel = channel
	msg.Payload = payload
	msg.ReceivedAt = time.Now().UnixMicro()

	// Holding the lock across the send keeps inbox order equal to seq order.
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	s.submitSeq++
	msg.Seq = s.submitSeq

	select {
	case s.inbox <- msg:
		return nil
	case <-ctx.Done():
		s.submitSeq--
		event.ReleaseChannelMessage(msg)
		return ctx.Err()
	}
}

// Run starts the main event loop. This MUST be run in a single goroutine.
func (s *Sequencer) Run(ctx context.Context) {
	slog.Info("Sequencer started")

	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			s.DumpState(s.dumpPath)
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Sequencer stopping...")
			return
		case msg := <-s.inbox:
			s.process(msg)
		}
	}
}

func (s *Sequencer) process(msg *event.ChannelMessage) {
	defer event.ReleaseChannelMessage(msg)

	if msg.Seq != s.nextSeq {
		panic(fmt.Sprintf("SEQUENCE_GAP_DETECTED: expected %d, got %d", s.nextSeq, msg.Seq))
	}
	s.lastSeq[msg.Channel] = msg.Seq
	s.nextSeq++

	s.router.Dispatch(msg.Channel, msg.Payload)
	s.metrics.RecordDispatch((time.Now().UnixMicro() - msg.ReceivedAt) * 1000)
}

// DumpState writes the loop state to a file (for post-mortem).
func (s *Sequencer) DumpState(filename string) {
	slog.Info("Dumping internal state...", slog.String("file", filename))

	data := struct {
		NextSeq  uint64                `json:"next_seq"`
		LastSeq  map[string]uint64     `json:"last_seq"`
		Channels []string              `json:"channels"`
		Metrics  infra.MetricsSnapshot `json:"metrics"`
	}{
		NextSeq:  s.nextSeq,
		LastSeq:  s.lastSeq,
		Channels: s.router.Channels(),
		Metrics:  s.metrics.Snapshot(),
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
