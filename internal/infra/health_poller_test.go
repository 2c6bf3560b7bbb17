package infra

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"lightning_go/internal/domain"
)

type stubSource struct {
	calls atomic.Int32
	err   error
}

func (s *stubSource) GetBoard(context.Context, string) (*domain.BoardPayload, error) {
	return nil, errors.New("unused")
}

func (s *stubSource) GetExecutions(context.Context, string, int) ([]domain.ExecutionPayload, error) {
	return nil, errors.New("unused")
}

func (s *stubSource) GetTicker(context.Context, string) (*domain.TickerPayload, error) {
	return nil, errors.New("unused")
}

func (s *stubSource) GetBoardState(_ context.Context, code string) (*domain.HealthPayload, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &domain.HealthPayload{Health: "NORMAL", State: "RUNNING"}, nil
}

func TestHealthPoller(t *testing.T) {
	t.Run("fetches on start and on tick", func(t *testing.T) {
		src := &stubSource{}
		updates := make(chan domain.HealthPayload, 10)
		p := NewHealthPoller(src, "BTC_JPY", 20*time.Millisecond, func(h domain.HealthPayload) {
			updates <- h
		})

		p.Start(context.Background())
		defer p.Stop()

		for i := 0; i < 2; i++ {
			select {
			case h := <-updates:
				if h.Health != "NORMAL" {
					t.Errorf("unexpected health %q", h.Health)
				}
			case <-time.After(time.Second):
				t.Fatalf("expected update %d", i+1)
			}
		}
	})

	t.Run("failure does not retry immediately", func(t *testing.T) {
		src := &stubSource{err: errors.New("down")}
		p := NewHealthPoller(src, "BTC_JPY", time.Hour, nil)

		p.Start(context.Background())
		time.Sleep(50 * time.Millisecond)
		p.Stop()

		if n := src.calls.Load(); n != 1 {
			t.Errorf("expected exactly 1 call, got %d", n)
		}
	})
}
