package main

import (
	"bytes"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"lightning_go/internal/app"
	"lightning_go/internal/domain"
	"lightning_go/internal/infra/storage"
)

func TestParseFlags(t *testing.T) {
	opts, rest, err := parseFlags([]string{"-p", "FX_BTC_JPY", "-r", "32", "-g", "1000", "book"})
	if err != nil {
		t.Fatal(err)
	}
	if opts.product != "FX_BTC_JPY" || opts.rows != 32 || opts.group != "1000" {
		t.Errorf("unexpected options %+v", opts)
	}
	if !reflect.DeepEqual(rest, []string{"book"}) {
		t.Errorf("unexpected args %v", rest)
	}

	if _, _, err := parseFlags(nil); err == nil {
		t.Error("expected error without mode")
	}
}

func TestSplitCodes(t *testing.T) {
	got := splitCodes("BTC_JPY, FX_BTC_JPY,,ETH_BTC ")
	want := []string{"BTC_JPY", "FX_BTC_JPY", "ETH_BTC"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestKindList(t *testing.T) {
	list := kindList()
	for _, want := range []string{"getboard", "me/sendchildorder"} {
		if !strings.Contains(list, want) {
			t.Errorf("kind list %q is missing %s", list, want)
		}
	}
	if !strings.HasPrefix(list, "getboard, ") {
		t.Errorf("expected sorted list, got %q", list)
	}
}

func TestListProducts(t *testing.T) {
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("NewStorage failed: %v", err)
	}
	defer store.Close()
	if err := store.SeedProducts(domain.BuiltinProducts); err != nil {
		t.Fatalf("SeedProducts failed: %v", err)
	}

	var buf bytes.Buffer
	if err := listProducts(&app.Bootstrap{Storage: store}, &buf); err != nil {
		t.Fatalf("listProducts failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != len(domain.BuiltinProducts)+1 {
		t.Fatalf("expected header plus %d rows, got:\n%s", len(domain.BuiltinProducts), buf.String())
	}
	if !strings.HasPrefix(lines[0], "CODE") || !strings.Contains(buf.String(), "ETH_BTC") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}
