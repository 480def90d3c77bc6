package pacing

import (
	"context"
	"math/rand"
	"testing"
	"time"
)

func TestPacer_JitterWithinRange(t *testing.T) {
	cfg := Config{
		DelayMin:   100 * time.Millisecond,
		DelayMax:   300 * time.Millisecond,
		BackoffMin: 400 * time.Millisecond,
		BackoffMax: 800 * time.Millisecond,
	}
	p := New(cfg, rand.New(rand.NewSource(3)))

	for i := 0; i < 100; i++ {
		if d := p.jitter(cfg.DelayMin, cfg.DelayMax); d < cfg.DelayMin || d > cfg.DelayMax {
			t.Fatalf("page delay %v outside [%v, %v]", d, cfg.DelayMin, cfg.DelayMax)
		}
		if d := p.jitter(cfg.BackoffMin, cfg.BackoffMax); d < cfg.BackoffMin || d > cfg.BackoffMax {
			t.Fatalf("backoff %v outside [%v, %v]", d, cfg.BackoffMin, cfg.BackoffMax)
		}
	}
}

func TestPacer_BackoffWiderThanPacing(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.BackoffMin < cfg.DelayMin || cfg.BackoffMax < cfg.DelayMax {
		t.Errorf("default backoff range [%v, %v] not wider than pacing [%v, %v]",
			cfg.BackoffMin, cfg.BackoffMax, cfg.DelayMin, cfg.DelayMax)
	}
}

func TestPacer_DegenerateRange(t *testing.T) {
	p := New(Config{DelayMin: time.Second, DelayMax: time.Second}, rand.New(rand.NewSource(1)))

	if d := p.jitter(time.Second, time.Second); d != time.Second {
		t.Errorf("jitter on degenerate range = %v", d)
	}
}

func TestPacer_WaitBetweenPages(t *testing.T) {
	p := New(Config{DelayMin: 0, DelayMax: time.Millisecond}, rand.New(rand.NewSource(1)))

	var slept []time.Duration
	p.SetSleep(func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	})

	if err := p.WaitBetweenPages(context.Background(), "example.com"); err != nil {
		t.Fatalf("WaitBetweenPages() error = %v", err)
	}
	if len(slept) != 1 {
		t.Fatalf("sleep called %d times, want 1", len(slept))
	}
	if _, ok := p.LastRequest("example.com"); !ok {
		t.Error("domain timestamp not recorded")
	}
	if _, ok := p.LastRequest("other.com"); ok {
		t.Error("unexpected timestamp for unvisited domain")
	}
}

func TestPacer_WaitCancelled(t *testing.T) {
	p := New(DefaultConfig(), rand.New(rand.NewSource(1)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.WaitBackoff(ctx); err == nil {
		t.Error("WaitBackoff() on cancelled context expected error")
	}
}
