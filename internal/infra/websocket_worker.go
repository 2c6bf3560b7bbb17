package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"lightning_go/internal/domain"
)

const pingWriteTimeout = 5 * time.Second

// StreamHandler is the protocol side of a StreamWorker.
type StreamHandler interface {
	Endpoint() string
	// OnOpen runs on every new connection before any frame is read; writes
	// through the worker already reach the new connection. reconnect is
	// false only for the first connection.
	OnOpen(ctx context.Context, reconnect bool) error
	OnFrame(ctx context.Context, frame []byte)
}

// StreamWorker keeps one websocket open for a StreamHandler, redialing with
// backoff and pinging the peer while the connection is idle.
type StreamWorker struct {
	handler StreamHandler
	logger  *slog.Logger

	mu      sync.RWMutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	opened    atomic.Uint64
	ready     chan struct{}
	readyOnce sync.Once

	cancel context.CancelFunc
	wg     sync.WaitGroup

	Backoff          Backoff
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	PingInterval     time.Duration
	UserAgent        string
}

// NewStreamWorker creates a worker; name only labels its log lines.
func NewStreamWorker(name string, handler StreamHandler) *StreamWorker {
	return &StreamWorker{
		handler:          handler,
		logger:           slog.Default().With("module", "stream", "stream", name),
		ready:            make(chan struct{}),
		Backoff:          DefaultBackoff,
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      60 * time.Second,
		PingInterval:     30 * time.Second,
		UserAgent:        DefaultUserAgent,
	}
}

// Start begins the dial loop.
func (w *StreamWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop closes the connection and waits for the loop to exit.
func (w *StreamWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.drop(nil)
	w.wg.Wait()
}

// WaitReady blocks until the first connection has opened.
func (w *StreamWorker) WaitReady(ctx context.Context) error {
	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Opened returns how many connections have been opened so far.
func (w *StreamWorker) Opened() uint64 {
	return w.opened.Load()
}

// WriteJSON sends v as one text frame on the current connection.
func (w *StreamWorker) WriteJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	w.mu.RLock()
	c := w.conn
	w.mu.RUnlock()
	if c == nil {
		return domain.ErrNotConnected
	}

	if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
		return domain.NewNetworkError("write", err)
	}
	return nil
}

func (w *StreamWorker) run(ctx context.Context) {
	defer w.wg.Done()

	attempt := 0
	for ctx.Err() == nil {
		uptime, err := w.session(ctx)
		if ctx.Err() != nil {
			return
		}
		// A connection that stays up resets the backoff; one the peer drops
		// at once is retried like a failed dial.
		if err == nil && uptime >= w.Backoff.Base {
			attempt = 0
			continue
		}

		delay := w.Backoff.Delay(attempt)
		attempt++
		if err != nil {
			GlobalMetrics.RecordError()
			w.logger.Warn("Stream connect failed", slog.Any("error", err), slog.Int("attempt", attempt), slog.Duration("retry_in", delay))
		} else {
			w.logger.Warn("Stream dropped right after opening", slog.Int("attempt", attempt), slog.Duration("retry_in", delay))
		}
		if !sleepCtx(ctx, delay) {
			return
		}
	}
}

// session runs one connection until it drops and reports how long it was up.
func (w *StreamWorker) session(ctx context.Context) (time.Duration, error) {
	conn, err := w.dial(ctx)
	if err != nil {
		return 0, err
	}
	start := time.Now()

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()

	connCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		<-connCtx.Done()
		w.drop(conn)
	}()

	reconnect := w.opened.Load() > 0
	if err := w.handler.OnOpen(ctx, reconnect); err != nil {
		return 0, fmt.Errorf("open: %w", err)
	}
	w.opened.Add(1)
	if reconnect {
		GlobalMetrics.RecordReconnect()
	}
	w.readyOnce.Do(func() { close(w.ready) })
	w.logger.Info("Stream connected", slog.Bool("reconnect", reconnect))

	GlobalMetrics.IncrementConnections()
	defer GlobalMetrics.DecrementConnections()

	if w.PingInterval > 0 {
		go w.keepAlive(connCtx, conn)
	}

	w.read(ctx, conn)
	return time.Since(start), nil
}

func (w *StreamWorker) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: w.HandshakeTimeout,
	}
	header := make(http.Header)
	if w.UserAgent != "" {
		header.Set("User-Agent", w.UserAgent)
	}

	conn, _, err := dialer.DialContext(ctx, w.handler.Endpoint(), header)
	if err != nil {
		return nil, domain.NewNetworkError("dial", err)
	}
	return conn, nil
}

func (w *StreamWorker) read(ctx context.Context, conn *websocket.Conn) {
	if w.ReadTimeout > 0 {
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(w.ReadTimeout))
		})
	}

	for {
		if w.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(w.ReadTimeout))
		}
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				w.logger.Warn("Stream read failed", slog.Any("error", err))
			}
			return
		}
		w.handler.OnFrame(ctx, frame)
	}
}

// keepAlive pings conn until ctx ends; a failed ping closes conn so the
// read side returns.
func (w *StreamWorker) keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(w.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(pingWriteTimeout))
			if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				w.logger.Warn("Stream ping failed", slog.Any("error", err))
				w.drop(conn)
				return
			}
		}
	}
}

// drop closes conn if it is still the current connection. A nil conn closes
// whatever is current.
func (w *StreamWorker) drop(conn *websocket.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil || (conn != nil && w.conn != conn) {
		return
	}
	w.conn.Close()
	w.conn = nil
}
