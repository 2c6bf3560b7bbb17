package app

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"lightning_go/internal/domain"
	"lightning_go/internal/infra"
	"lightning_go/internal/infra/storage"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Storage *storage.Storage
	Session *Session
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads configuration, installs the logger, opens storage and
// seeds the product catalog. An empty configPath is resolved the usual way;
// a missing file falls back to defaults.
func (b *Bootstrap) Initialize(configPath string) error {
	if configPath == "" {
		configPath = infra.ResolveConfigPath()
	}

	cfg, err := infra.LoadConfig(configPath)
	switch {
	case errors.Is(err, domain.ErrConfigNotFound):
		cfg = infra.DefaultConfig()
	case err != nil:
		return err
	}
	b.Config = cfg

	slog.SetDefault(infra.NewLogger(cfg))
	slog.Info("Bootstrapping", slog.String("app", cfg.App.Name), slog.String("config", configPath))

	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store

	if err := store.SeedProducts(domain.BuiltinProducts); err != nil {
		return err
	}
	slog.Info("Database initialized", slog.String("path", cfg.Storage.Path))

	b.Session = NewSession(cfg)
	return nil
}

// SyncProducts refreshes the catalog from /v1/getmarkets. Failures are
// logged; the seeded catalog keeps working.
func (b *Bootstrap) SyncProducts(ctx context.Context) {
	markets, err := b.Session.Client.GetMarkets(ctx)
	if err != nil {
		slog.Warn("Product sync failed", slog.Any("error", err))
		return
	}

	codes := make(map[string]string, len(markets))
	for _, m := range markets {
		codes[m.ProductCode] = m.Alias
	}
	if err := b.Storage.SyncMarkets(codes, time.Now()); err != nil {
		slog.Warn("Product sync failed", slog.Any("error", err))
		return
	}
	slog.Info("Product catalog synchronized", slog.Int("markets", len(markets)))
}

// ResolveProduct validates a product code against the catalog, falling back
// to the built-in rules for codes the catalog has not seen.
func (b *Bootstrap) ResolveProduct(code string) (domain.Product, error) {
	p, err := domain.LookupProduct(code)
	if err != nil {
		return domain.Product{}, err
	}
	if b.Storage != nil {
		if rec, _ := b.Storage.GetProduct(p.Code); rec != nil {
			return rec.Product, nil
		}
	}
	return p, nil
}

func prefKey(mode, code, name string) string {
	return mode + "." + code + "." + name
}

// SaveViewPrefs remembers the last rows/group used for a product.
func (b *Bootstrap) SaveViewPrefs(mode, code string, rows int, group decimal.Decimal) {
	if b.Storage == nil {
		return
	}
	if err := b.Storage.SaveConfig(prefKey(mode, code, "rows"), strconv.Itoa(rows)); err != nil {
		slog.Warn("Failed to save view preference", slog.Any("error", err))
	}
	if err := b.Storage.SaveConfig(prefKey(mode, code, "group"), group.String()); err != nil {
		slog.Warn("Failed to save view preference", slog.Any("error", err))
	}
}

// LoadViewPrefs returns the remembered rows/group, ok=false if none.
func (b *Bootstrap) LoadViewPrefs(mode, code string) (rows int, group decimal.Decimal, ok bool) {
	if b.Storage == nil {
		return 0, decimal.Zero, false
	}
	m, err := b.Storage.LoadConfigMap()
	if err != nil {
		return 0, decimal.Zero, false
	}

	rows, err = strconv.Atoi(m[prefKey(mode, code, "rows")])
	if err != nil {
		return 0, decimal.Zero, false
	}
	group, err = decimal.NewFromString(m[prefKey(mode, code, "group")])
	if err != nil {
		group = decimal.Zero
	}
	return rows, group, true
}

// Close releases storage.
func (b *Bootstrap) Close() {
	if b.Storage != nil {
		if err := b.Storage.Close(); err != nil {
			slog.Warn("Failed to close storage", slog.Any("error", err))
		}
	}
}
