package infra

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"lightning_go/internal/domain"
)

// DefaultHealthPollInterval matches the exchange's board-state refresh cadence.
const DefaultHealthPollInterval = 60 * time.Second

// HealthPoller fetches the board state of one product on a fixed interval.
// A failed fetch is logged and left for the next tick.
type HealthPoller struct {
	source       domain.MarketDataSource
	productCode  string
	onUpdate     func(domain.HealthPayload)
	pollInterval time.Duration
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	logger       *slog.Logger
}

// NewHealthPoller creates a poller. A non-positive interval falls back to
// DefaultHealthPollInterval.
func NewHealthPoller(source domain.MarketDataSource, productCode string, interval time.Duration, onUpdate func(domain.HealthPayload)) *HealthPoller {
	if interval <= 0 {
		interval = DefaultHealthPollInterval
	}
	return &HealthPoller{
		source:       source,
		productCode:  productCode,
		onUpdate:     onUpdate,
		pollInterval: interval,
		logger:       slog.Default().With("module", "health_poller"),
	}
}

// Start fetches once and then keeps polling until ctx is done or Stop is called.
func (p *HealthPoller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	if err := p.fetch(ctx); err != nil {
		p.logger.Warn("Initial board state fetch failed", slog.Any("error", err))
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Health polling panic recovered", slog.Any("panic", r))
			}
		}()

		ticker := time.NewTicker(p.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Info("Health polling stopped")
				return
			case <-ticker.C:
				if err := p.fetch(ctx); err != nil {
					p.logger.Warn("Board state fetch failed", slog.Any("error", err))
				}
			}
		}
	}()
}

func (p *HealthPoller) fetch(ctx context.Context) error {
	state, err := p.source.GetBoardState(ctx, p.productCode)
	if err != nil {
		GlobalMetrics.RecordError()
		return err
	}
	if p.onUpdate != nil {
		p.onUpdate(*state)
	}
	return nil
}

// Stop stops the polling
func (p *HealthPoller) Stop() {
	if p.cancel != nil {
		p.cancel()
		p.wg.Wait()
	}
}
