package engine

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"lightning_go/internal/event"
)

func TestSequencer_DispatchInOrder(t *testing.T) {
	r := NewRouter(&fakeTransport{})
	_ = r.Subscribe(context.Background(), "board")

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})
	r.Attach(ListenerFunc(func(_ string, p json.RawMessage) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, string(p))
		if len(got) == 3 {
			close(done)
		}
	}))

	seq := NewSequencer(10, r)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go seq.Run(ctx)

	for _, p := range []string{`1`, `2`, `3`} {
		if err := seq.Submit(ctx, "board", json.RawMessage(p)); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dispatch")
	}

	mu.Lock()
	defer mu.Unlock()
	if got[0] != "1" || got[1] != "2" || got[2] != "3" {
		t.Errorf("expected in-order delivery, got %v", got)
	}
}

func TestSequencer_SubmitCancelled(t *testing.T) {
	seq := NewSequencer(0, NewRouter(&fakeTransport{}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := seq.Submit(ctx, "board", json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected context error on full inbox")
	}
	if seq.submitSeq != 0 {
		t.Errorf("expected sequence rollback, got %d", seq.submitSeq)
	}
}

func TestSequencer_GapDetection(t *testing.T) {
	seq := NewSequencer(10, NewRouter(&fakeTransport{}))
	seq.SetDumpPath(filepath.Join(t.TempDir(), "dump.json"))

	defer func() {
		if r := recover(); r == nil {
			t.Error("Sequencer should have panicked on sequence gap")
		}
	}()

	msg := event.AcquireChannelMessage()
	msg.Seq = 2
	msg.Channel = "board"
	seq.process(msg)
}

func TestCoalescer(t *testing.T) {
	t.Run("burst renders once", func(t *testing.T) {
		renders := 0
		c := NewCoalescer(time.Hour, func() { renders++ })
		for i := 0; i < 100; i++ {
			c.Notify()
		}
		c.Flush()
		c.Flush()
		if renders != 1 {
			t.Errorf("expected 1 render, got %d", renders)
		}
	})

	t.Run("run flushes on tick", func(t *testing.T) {
		rendered := make(chan struct{}, 1)
		c := NewCoalescer(10*time.Millisecond, func() {
			select {
			case rendered <- struct{}{}:
			default:
			}
		})
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go c.Run(ctx)

		c.Notify()
		select {
		case <-rendered:
		case <-time.After(time.Second):
			t.Fatal("expected render after notify")
		}
	})
}
