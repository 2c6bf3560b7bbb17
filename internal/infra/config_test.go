package infra

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"lightning_go/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("overlays defaults", func(t *testing.T) {
		path := writeConfig(t, "board:\n  rows: 10\n  group: \"0.5\"\n")
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Board.Rows != 10 {
			t.Errorf("expected rows 10, got %d", cfg.Board.Rows)
		}
		if cfg.Board.Group.String() != "0.5" {
			t.Errorf("expected group 0.5, got %s", cfg.Board.Group)
		}
		if cfg.API.WSURL != DefaultWSURL {
			t.Errorf("expected default ws url, got %s", cfg.API.WSURL)
		}
	})

	t.Run("env overrides credentials", func(t *testing.T) {
		t.Setenv("LIGHTNING_API_KEY", "key")
		t.Setenv("LIGHTNING_API_SECRET", "secret")
		path := writeConfig(t, "api:\n  api_key: file\n")
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.API.APIKey != "key" || !cfg.HasCredential() {
			t.Errorf("expected env credential, got %q", cfg.API.APIKey)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, domain.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		cases := map[string]string{
			"rows":     "board:\n  rows: 0\n",
			"group":    "board:\n  group: \"-1\"\n",
			"ws url":   "api:\n  ws_url: http://x\n",
			"interval": "ui:\n  render_interval_ms: 0\n",
		}
		for name, body := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := LoadConfig(writeConfig(t, body))
				var cfgErr *domain.ConfigError
				if !errors.As(err, &cfgErr) {
					t.Errorf("expected ConfigError, got %v", err)
				}
			})
		}
	})
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug").String() != "DEBUG" || ParseLevel("bogus").String() != "INFO" {
		t.Error("unexpected level mapping")
	}
}
