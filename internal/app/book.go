package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/shopspring/decimal"

	"lightning_go/internal/domain"
	"lightning_go/internal/engine"
	"lightning_go/internal/infra"
	"lightning_go/internal/service"
	"lightning_go/internal/view"
)

// BookOptions selects what the order book screen shows.
type BookOptions struct {
	ProductCode string
	Rows        int
	Group       decimal.Decimal
}

// RunBook shows the live order book of one product until ctx is done.
func RunBook(ctx context.Context, b *Bootstrap, opts BookOptions, out io.Writer) error {
	product, err := b.ResolveProduct(opts.ProductCode)
	if err != nil {
		return err
	}
	if opts.Group.IsNegative() {
		return &domain.ConfigError{Field: "group", Err: fmt.Errorf("must not be negative")}
	}

	client := b.Session.Client
	boardCh := domain.BoardChannel(product.Code)
	tickerCh := domain.TickerChannel(product.Code)

	book := service.NewBookStore()
	book.SetDisplayDepth(opts.Rows)
	book.SetGroupingFactor(opts.Group)
	book.Lock()

	tickers := service.NewTickerBoard(product.Code)
	health := service.NewHealthState()

	p := newPipeline(b.Config, out, func() string {
		st, _ := tickers.Get(product.Code)
		h, _ := health.Get()
		return view.ClearScreen + view.RenderBook(view.BookScreen{
			Product: product,
			Ticker:  st,
			Asks:    book.Asks(),
			Bids:    book.Bids(),
			Health:  h,
		})
	})
	book.OnChange(p.coalescer.Notify)
	tickers.OnChange(p.coalescer.Notify)
	health.OnChange(p.coalescer.Notify)

	p.router.Attach(engine.ListenerFunc(func(channel string, payload json.RawMessage) {
		switch channel {
		case boardCh:
			var delta domain.BoardPayload
			if err := json.Unmarshal(payload, &delta); err != nil {
				infra.GlobalMetrics.RecordDropped()
				slog.Debug("Malformed board delta", slog.Any("error", err))
				return
			}
			if book.ApplyDelta(&delta) {
				infra.GlobalMetrics.RecordBuffered()
			}
		case tickerCh:
			var t domain.TickerPayload
			if err := json.Unmarshal(payload, &t); err != nil {
				infra.GlobalMetrics.RecordDropped()
				return
			}
			tickers.Update(product.Code, t)
		}
	}))

	resync := func(ctx context.Context) error {
		book.Lock()
		snap, err := client.GetBoard(ctx, product.Code)
		if err != nil {
			// Replay what was buffered rather than freezing the screen.
			book.Unlock()
			return err
		}
		book.SetSnapshot(snap)
		book.Unlock()
		infra.GlobalMetrics.RecordSnapshot()
		return nil
	}
	p.onReconnect(ctx, resync)

	if err := p.start(ctx); err != nil {
		return err
	}
	defer p.stop()

	if err := p.router.Subscribe(ctx, boardCh, tickerCh); err != nil {
		return err
	}

	// Seed the ticker so the header is populated before the first event.
	if t, err := client.GetTicker(ctx, product.Code); err == nil {
		tickers.Update(product.Code, *t)
	}

	snap, err := client.GetBoard(ctx, product.Code)
	if err != nil {
		return fmt.Errorf("board snapshot: %w", err)
	}
	book.SetSnapshot(snap)
	book.Unlock()
	infra.GlobalMetrics.RecordSnapshot()

	poller := infra.NewHealthPoller(client, product.Code, b.Config.HealthPollInterval(), health.Update)
	poller.Start(ctx)
	defer poller.Stop()

	slog.Info("Order book running", slog.String("product", product.Code), slog.Int("rows", opts.Rows), slog.String("group", opts.Group.String()))
	<-ctx.Done()

	b.SaveViewPrefs("board", product.Code, opts.Rows, opts.Group)
	return nil
}
