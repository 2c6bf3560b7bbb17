package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"lightning_go/internal/domain"
	"lightning_go/internal/engine"
	"lightning_go/internal/infra"
	"lightning_go/internal/service"
	"lightning_go/internal/view"
)

// maxSeedRequests bounds concurrent ticker seeding calls.
const maxSeedRequests = 4

// RunTicker shows the live ticker of several products until ctx is done.
func RunTicker(ctx context.Context, b *Bootstrap, codes []string, out io.Writer) error {
	if len(codes) == 0 {
		return &domain.ConfigError{Field: "product", Err: errors.New("at least one product is required")}
	}

	products := make([]domain.Product, 0, len(codes))
	seen := make(map[string]bool)
	for _, c := range codes {
		p, err := b.ResolveProduct(c)
		if err != nil {
			return err
		}
		if seen[p.Code] {
			continue
		}
		seen[p.Code] = true
		products = append(products, p)
	}

	ordered := make([]string, 0, len(products))
	for _, p := range products {
		ordered = append(ordered, p.Code)
	}
	board := service.NewTickerBoard(ordered...)

	p := newPipeline(b.Config, out, func() string {
		rows := make([]view.TickerRow, 0, len(products))
		for _, prod := range products {
			st, _ := board.Get(prod.Code)
			rows = append(rows, view.TickerRow{Product: prod, State: st})
		}
		return view.ClearScreen + view.RenderTicker(rows, time.Now())
	})
	board.OnChange(p.coalescer.Notify)

	p.router.Attach(engine.ListenerFunc(func(channel string, payload json.RawMessage) {
		kind, code, ok := domain.ParseChannel(channel)
		if !ok || kind != domain.KindTicker || !seen[code] {
			return
		}
		var t domain.TickerPayload
		if err := json.Unmarshal(payload, &t); err != nil {
			infra.GlobalMetrics.RecordDropped()
			return
		}
		board.Update(code, t)
	}))

	if err := seedTickers(ctx, b.Session.Client, board, ordered); err != nil {
		return fmt.Errorf("ticker seed: %w", err)
	}

	p.onReconnect(ctx, nil)
	if err := p.start(ctx); err != nil {
		return err
	}
	defer p.stop()

	subs := make([]string, 0, len(ordered))
	for _, c := range ordered {
		subs = append(subs, domain.TickerChannel(c))
	}
	if err := p.router.Subscribe(ctx, subs...); err != nil {
		return err
	}

	slog.Info("Ticker running", slog.Any("products", ordered))
	<-ctx.Done()
	return nil
}

// seedTickers fetches every product's ticker once before subscribing.
func seedTickers(ctx context.Context, src domain.MarketDataSource, board *service.TickerBoard, codes []string) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	semaphore := make(chan struct{}, maxSeedRequests)

	for _, code := range codes {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			t, err := src.GetTicker(ctx, code)
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", code, err))
				mu.Unlock()
				return
			}
			board.Update(code, *t)
		}(code)
	}

	wg.Wait()
	return errors.Join(errs...)
}
