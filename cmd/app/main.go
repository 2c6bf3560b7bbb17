package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"lightning_go/internal/app"
	"lightning_go/internal/request"
)

const usage = `Usage: app [flags] <book|executions|ticker|products|call> [args]

  book        live order book of one product
  executions  live execution tape of one product
  ticker      live tickers of several products (-p BTC_JPY,FX_BTC_JPY)
  products    active products in the local catalog
  call        one REST request: app call getticker product_code=ETH_BTC

Examples:
  app -p BTC_JPY -r 32 -g 1000 book
  app -p FX_BTC_JPY -r 40 executions

Flags:
`

type options struct {
	product    string
	rows       int
	group      string
	configPath string
}

func parseFlags(args []string) (options, []string, error) {
	var o options
	fs := flag.NewFlagSet("app", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&o.product, "p", "", "Product code(s) (BTC_JPY|ETH_BTC|BCH_BTC|FX_BTC_JPY)")
	fs.IntVar(&o.rows, "r", 0, "Number of display rows (default: from config)")
	fs.StringVar(&o.group, "g", "", "Order grouping unit (default: from config)")
	fs.StringVar(&o.configPath, "config", "", "Path to config.yaml")

	if err := fs.Parse(args); err != nil {
		return o, nil, err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return o, nil, errors.New("mode is required")
	}
	return o, fs.Args(), nil
}

func main() {
	opts, rest, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(opts.configPath); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	defer bootstrap.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, bootstrap, opts, rest); err != nil {
		slog.Error("Run failed", slog.Any("error", err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		bootstrap.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, b *app.Bootstrap, opts options, args []string) error {
	cfg := b.Config

	switch mode := args[0]; mode {
	case "book":
		code := firstNonEmpty(opts.product, cfg.Board.Product)
		rows, group := cfg.Board.Rows, cfg.Board.Group
		if r, g, ok := b.LoadViewPrefs("board", strings.ToUpper(code)); ok {
			rows, group = r, g
		}
		if opts.rows > 0 {
			rows = opts.rows
		}
		if opts.group != "" {
			g, err := decimal.NewFromString(opts.group)
			if err != nil {
				return fmt.Errorf("invalid group %q: %w", opts.group, err)
			}
			group = g
		}
		go b.SyncProducts(ctx)
		return app.RunBook(ctx, b, app.BookOptions{ProductCode: code, Rows: rows, Group: group}, os.Stdout)

	case "executions":
		code := firstNonEmpty(opts.product, cfg.Executions.Product)
		rows := cfg.Executions.Rows
		if r, _, ok := b.LoadViewPrefs("executions", strings.ToUpper(code)); ok {
			rows = r
		}
		if opts.rows > 0 {
			rows = opts.rows
		}
		go b.SyncProducts(ctx)
		return app.RunExecutions(ctx, b, app.ExecutionsOptions{ProductCode: code, Rows: rows}, os.Stdout)

	case "ticker":
		codes := cfg.Ticker.Products
		if opts.product != "" {
			codes = splitCodes(opts.product)
		}
		return app.RunTicker(ctx, b, codes, os.Stdout)

	case "products":
		b.SyncProducts(ctx)
		return listProducts(b, os.Stdout)

	case "call":
		return call(ctx, b, args[1:])

	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

// call runs one REST request and prints the JSON response.
func call(ctx context.Context, b *app.Bootstrap, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("call requires a request kind, one of: %s", kindList())
	}
	req, err := request.New(request.Kind(args[0]))
	if err != nil {
		return err
	}

	params := make(map[string]any, len(args)-1)
	for _, kv := range args[1:] {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("expected key=value, got %q", kv)
		}
		params[k] = v
	}
	if err := req.SetParams(params); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, b.Config.Timeout()+5*time.Second)
	defer cancel()

	var out json.RawMessage
	if err := b.Session.Execute(ctx, req, &out); err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func kindList() string {
	kinds := request.Kinds()
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, string(k))
	}
	return strings.Join(names, ", ")
}

// listProducts prints the active catalog, one product per line.
func listProducts(b *app.Bootstrap, out io.Writer) error {
	recs, err := b.Storage.ListProducts(true)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tALIAS\tPRICE\tVOLUME")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", r.Code, r.Alias, r.PricePrecision, r.VolumePrecision)
	}
	return tw.Flush()
}

func splitCodes(s string) []string {
	var codes []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			codes = append(codes, c)
		}
	}
	return codes
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
