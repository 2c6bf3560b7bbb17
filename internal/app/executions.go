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

// ExecutionsOptions selects what the execution tape screen shows.
type ExecutionsOptions struct {
	ProductCode string
	Rows        int
}

// RunExecutions shows the live execution tape of one product until ctx is done.
func RunExecutions(ctx context.Context, b *Bootstrap, opts ExecutionsOptions, out io.Writer) error {
	product, err := b.ResolveProduct(opts.ProductCode)
	if err != nil {
		return err
	}

	client := b.Session.Client
	execCh := domain.ExecutionsChannel(product.Code)

	tape := service.NewExecutionTape(opts.Rows)
	tape.Lock()

	p := newPipeline(b.Config, out, func() string {
		return view.ClearScreen + view.RenderExecutions(view.ExecutionsScreen{
			Product: product,
			Stats:   tape.Stats(),
			Entries: tape.Entries(),
		})
	})
	tape.OnChange(p.coalescer.Notify)

	p.router.Attach(engine.ListenerFunc(func(channel string, payload json.RawMessage) {
		if channel != execCh {
			return
		}
		batch, err := domain.ParseExecutions(payload)
		if err != nil {
			infra.GlobalMetrics.RecordDropped()
			slog.Debug("Malformed executions", slog.Any("error", err))
			return
		}
		if tape.Add(batch...) {
			infra.GlobalMetrics.RecordBuffered()
		}
	}))

	load := func(ctx context.Context) error {
		history, err := client.GetExecutions(ctx, product.Code, tape.Capacity())
		if err != nil {
			return err
		}
		tape.Set(history)
		infra.GlobalMetrics.RecordSnapshot()
		return nil
	}
	p.onReconnect(ctx, func(ctx context.Context) error {
		tape.Lock()
		defer tape.Unlock()
		return load(ctx)
	})

	if err := p.start(ctx); err != nil {
		return err
	}
	defer p.stop()

	if err := p.router.Subscribe(ctx, execCh); err != nil {
		return err
	}
	if err := load(ctx); err != nil {
		return fmt.Errorf("execution history: %w", err)
	}
	tape.Unlock()

	slog.Info("Execution tape running", slog.String("product", product.Code), slog.Int("rows", opts.Rows))
	<-ctx.Done()

	b.SaveViewPrefs("executions", product.Code, opts.Rows, decimal.Zero)
	return nil
}
