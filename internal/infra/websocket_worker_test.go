package infra

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"lightning_go/internal/domain"
)

// streamRecorder implements StreamHandler for testing
type streamRecorder struct {
	url string

	mu     sync.Mutex
	opens  []bool
	openAt []time.Time
	frames [][]byte
}

func (s *streamRecorder) Endpoint() string { return s.url }

func (s *streamRecorder) OnOpen(ctx context.Context, reconnect bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens = append(s.opens, reconnect)
	s.openAt = append(s.openAt, time.Now())
	return nil
}

func (s *streamRecorder) OnFrame(ctx context.Context, frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frame)
}

func (s *streamRecorder) snapshot() (opens []bool, openAt []time.Time, frames int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.opens...), append([]time.Time(nil), s.openAt...), len(s.frames)
}

// createMockWSServer creates a test WebSocket server
func createMockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(server.Close)
	return server
}

// httpToWS converts http:// URL to ws://
func httpToWS(url string) string {
	return strings.Replace(url, "http://", "ws://", 1)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestStreamWorker_OpenAndReceive(t *testing.T) {
	server := createMockWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"method":"channelMessage"}`))
		time.Sleep(300 * time.Millisecond)
	})

	rec := &streamRecorder{url: httpToWS(server.URL)}
	worker := NewStreamWorker("test", rec)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	worker.Start(ctx)
	defer worker.Stop()

	if err := worker.WaitReady(ctx); err != nil {
		t.Fatalf("WaitReady failed: %v", err)
	}
	if !waitFor(t, time.Second, func() bool { _, _, n := rec.snapshot(); return n > 0 }) {
		t.Fatal("no frame delivered")
	}

	opens, _, _ := rec.snapshot()
	if len(opens) != 1 || opens[0] {
		t.Errorf("expected one first-time open, got %v", opens)
	}
	if worker.Opened() != 1 {
		t.Errorf("expected 1 opened connection, got %d", worker.Opened())
	}
}

func TestStreamWorker_Reconnect(t *testing.T) {
	var conns atomic.Int32
	server := createMockWSServer(t, func(conn *websocket.Conn) {
		if conns.Add(1) == 1 {
			return
		}
		time.Sleep(time.Second)
	})

	rec := &streamRecorder{url: httpToWS(server.URL)}
	worker := NewStreamWorker("test", rec)
	worker.Backoff = Backoff{Base: 20 * time.Millisecond, Max: 100 * time.Millisecond}

	before := GlobalMetrics.Snapshot().Reconnects
	worker.Start(context.Background())
	defer worker.Stop()

	if !waitFor(t, 2*time.Second, func() bool { return worker.Opened() >= 2 }) {
		t.Fatalf("expected a reconnect, got %d opens", worker.Opened())
	}

	opens, _, _ := rec.snapshot()
	if opens[0] || !opens[1] {
		t.Errorf("expected reconnect flag only on the second open, got %v", opens)
	}
	if GlobalMetrics.Snapshot().Reconnects <= before {
		t.Error("expected the reconnect to be counted")
	}
}

func TestStreamWorker_ShortLivedConnectionBacksOff(t *testing.T) {
	// Every connection is dropped by the peer at once.
	server := createMockWSServer(t, func(conn *websocket.Conn) {})

	rec := &streamRecorder{url: httpToWS(server.URL)}
	worker := NewStreamWorker("test", rec)
	worker.Backoff = Backoff{Base: 150 * time.Millisecond, Max: time.Second}

	worker.Start(context.Background())
	defer worker.Stop()

	if !waitFor(t, 2*time.Second, func() bool { return worker.Opened() >= 2 }) {
		t.Fatalf("expected a second open, got %d", worker.Opened())
	}

	_, openAt, _ := rec.snapshot()
	if gap := openAt[1].Sub(openAt[0]); gap < 100*time.Millisecond {
		t.Errorf("expected redial to wait for backoff, gap was %s", gap)
	}
}

func TestStreamWorker_Ping(t *testing.T) {
	pinged := make(chan struct{}, 1)
	server := createMockWSServer(t, func(conn *websocket.Conn) {
		conn.SetPingHandler(func(data string) error {
			select {
			case pinged <- struct{}{}:
			default:
			}
			return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	worker := NewStreamWorker("test", &streamRecorder{url: httpToWS(server.URL)})
	worker.PingInterval = 20 * time.Millisecond

	worker.Start(context.Background())
	defer worker.Stop()

	select {
	case <-pinged:
	case <-time.After(2 * time.Second):
		t.Error("server was not pinged")
	}
}

func TestStreamWorker_GracefulShutdown(t *testing.T) {
	serverClosed := make(chan struct{})
	server := createMockWSServer(t, func(conn *websocket.Conn) {
		<-serverClosed
	})
	defer close(serverClosed)

	worker := NewStreamWorker("test", &streamRecorder{url: httpToWS(server.URL)})
	worker.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := worker.WaitReady(ctx); err != nil {
		t.Fatalf("WaitReady failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		worker.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Stop did not return within timeout")
	}
}

func TestStreamWorker_WriteJSON(t *testing.T) {
	receivedMsg := make(chan []byte, 1)
	server := createMockWSServer(t, func(conn *websocket.Conn) {
		_, msg, err := conn.ReadMessage()
		if err == nil {
			receivedMsg <- msg
		}
		time.Sleep(100 * time.Millisecond)
	})

	worker := NewStreamWorker("test", &streamRecorder{url: httpToWS(server.URL)})
	worker.Start(context.Background())
	defer worker.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := worker.WaitReady(ctx); err != nil {
		t.Fatalf("WaitReady failed: %v", err)
	}

	if err := worker.WriteJSON(map[string]string{"method": "subscribe"}); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	select {
	case msg := <-receivedMsg:
		if string(msg) != `{"method":"subscribe"}` {
			t.Errorf("unexpected frame %s", msg)
		}
	case <-time.After(time.Second):
		t.Error("server did not receive message")
	}
}

func TestStreamWorker_WriteNotConnected(t *testing.T) {
	worker := NewStreamWorker("test", &streamRecorder{})
	err := worker.WriteJSON(map[string]int{"x": 1})
	if !errors.Is(err, domain.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}
