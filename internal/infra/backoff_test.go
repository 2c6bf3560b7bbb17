package infra

import (
	"context"
	"testing"
	"time"
)

func TestBackoff_Delay(t *testing.T) {
	tests := []struct {
		name    string
		backoff Backoff
		attempt int
		want    time.Duration
	}{
		{"negative attempt", DefaultBackoff, -1, time.Second},
		{"first retry", DefaultBackoff, 0, time.Second},
		{"doubles", DefaultBackoff, 1, 2 * time.Second},
		{"doubles again", DefaultBackoff, 3, 8 * time.Second},
		{"capped", DefaultBackoff, 10, time.Minute},
		{"large attempt stays capped", DefaultBackoff, 1000, time.Minute},
		{"custom cap", Backoff{Base: 10 * time.Millisecond, Max: 25 * time.Millisecond}, 2, 25 * time.Millisecond},
		{"missing cap uses default", Backoff{Base: time.Second}, 100, time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.backoff.Delay(tt.attempt); got != tt.want {
				t.Errorf("Delay(%d) = %s, want %s", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestSleepCtx(t *testing.T) {
	if !sleepCtx(context.Background(), time.Millisecond) {
		t.Error("expected sleep to complete")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sleepCtx(ctx, time.Minute) {
		t.Error("expected cancelled context to cut the sleep short")
	}
}
