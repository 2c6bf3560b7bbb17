package engine

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"
)

type fakeTransport struct {
	mu           sync.Mutex
	subscribed   []string
	unsubscribed []string
	fail         map[string]error
}

func (f *fakeTransport) Subscribe(_ context.Context, ch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[ch]; err != nil {
		return err
	}
	f.subscribed = append(f.subscribed, ch)
	return nil
}

func (f *fakeTransport) Unsubscribe(_ context.Context, ch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = append(f.unsubscribed, ch)
	return nil
}

type recorder struct {
	name string
	log  *[]string
}

func (r recorder) Notify(channel string, _ json.RawMessage) {
	*r.log = append(*r.log, r.name+":"+channel)
}

func TestRouter_Subscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("dedups tracked channels", func(t *testing.T) {
		tr := &fakeTransport{}
		r := NewRouter(tr)
		if err := r.Subscribe(ctx, "a", "b", "a"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := r.Subscribe(ctx, "b"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(tr.subscribed, []string{"a", "b"}) {
			t.Errorf("expected one request per channel, got %v", tr.subscribed)
		}
		if !reflect.DeepEqual(r.Channels(), []string{"a", "b"}) {
			t.Errorf("unexpected channels %v", r.Channels())
		}
	})

	t.Run("failed channel stays untracked", func(t *testing.T) {
		boom := errors.New("boom")
		tr := &fakeTransport{fail: map[string]error{"b": boom}}
		r := NewRouter(tr)
		err := r.Subscribe(ctx, "a", "b")
		if !errors.Is(err, boom) {
			t.Fatalf("expected joined error, got %v", err)
		}
		if !reflect.DeepEqual(r.Channels(), []string{"a"}) {
			t.Errorf("unexpected channels %v", r.Channels())
		}
	})

	t.Run("unsubscribe clears and resubscribe resends", func(t *testing.T) {
		tr := &fakeTransport{}
		r := NewRouter(tr)
		_ = r.Subscribe(ctx, "a", "b")
		if err := r.Resubscribe(ctx); err != nil {
			t.Fatal(err)
		}
		if len(tr.subscribed) != 4 {
			t.Errorf("expected resubscribe to resend both, got %v", tr.subscribed)
		}
		if err := r.Unsubscribe(ctx); err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(tr.unsubscribed, []string{"a", "b"}) {
			t.Errorf("unexpected unsubscribes %v", tr.unsubscribed)
		}
		if len(r.Channels()) != 0 {
			t.Errorf("expected no tracked channels, got %v", r.Channels())
		}
	})
}

func TestRouter_Dispatch(t *testing.T) {
	ctx := context.Background()
	payload := json.RawMessage(`{"x":1}`)

	t.Run("all listeners in attachment order", func(t *testing.T) {
		r := NewRouter(&fakeTransport{})
		_ = r.Subscribe(ctx, "board", "ticker")
		var log []string
		r.Attach(recorder{"A", &log})
		r.Attach(recorder{"B", &log})

		r.Dispatch("board", payload)
		r.Dispatch("ticker", payload)

		want := []string{"A:board", "B:board", "A:ticker", "B:ticker"}
		if !reflect.DeepEqual(log, want) {
			t.Errorf("expected %v, got %v", want, log)
		}
	})

	t.Run("keep-alive and untracked dropped", func(t *testing.T) {
		r := NewRouter(&fakeTransport{})
		_ = r.Subscribe(ctx, "board")
		var log []string
		r.Attach(recorder{"A", &log})

		r.Dispatch("board", nil)
		r.Dispatch("board", json.RawMessage(""))
		r.Dispatch("board", json.RawMessage(" null "))
		r.Dispatch("other", payload)

		if len(log) != 0 {
			t.Errorf("expected nothing delivered, got %v", log)
		}
	})

	t.Run("no delivery after unsubscribe", func(t *testing.T) {
		r := NewRouter(&fakeTransport{})
		_ = r.Subscribe(ctx, "board")
		var log []string
		r.Attach(recorder{"A", &log})
		_ = r.Unsubscribe(ctx)

		r.Dispatch("board", payload)
		if len(log) != 0 {
			t.Errorf("expected nothing delivered, got %v", log)
		}
	})

	t.Run("detach inside callback", func(t *testing.T) {
		r := NewRouter(&fakeTransport{})
		_ = r.Subscribe(ctx, "board")
		var log []string
		var b *Attachment
		r.Attach(ListenerFunc(func(ch string, _ json.RawMessage) {
			log = append(log, "A:"+ch)
			r.Detach(b)
		}))
		b = r.Attach(recorder{"B", &log})

		r.Dispatch("board", payload)
		r.Dispatch("board", payload)

		want := []string{"A:board", "A:board"}
		if !reflect.DeepEqual(log, want) {
			t.Errorf("expected %v, got %v", want, log)
		}
	})

	t.Run("attach inside callback takes effect next event", func(t *testing.T) {
		r := NewRouter(&fakeTransport{})
		_ = r.Subscribe(ctx, "board")
		var log []string
		attached := false
		r.Attach(ListenerFunc(func(ch string, _ json.RawMessage) {
			log = append(log, "A:"+ch)
			if !attached {
				attached = true
				r.Attach(recorder{"B", &log})
			}
		}))

		r.Dispatch("board", payload)
		r.Dispatch("board", payload)

		want := []string{"A:board", "A:board", "B:board"}
		if !reflect.DeepEqual(log, want) {
			t.Errorf("expected %v, got %v", want, log)
		}
	})

	t.Run("detach twice is a no-op", func(t *testing.T) {
		r := NewRouter(&fakeTransport{})
		var log []string
		a := r.Attach(recorder{"A", &log})
		r.Detach(a)
		r.Detach(a)
		r.Detach(nil)
	})
}
