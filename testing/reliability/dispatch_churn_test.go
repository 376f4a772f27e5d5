package reliability

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/scopez"
)

// Dispatch reliability tests - verify the engine stays consistent while
// scopes churn under concurrent emission.
// Environment: SCOPEZ_RELIABILITY_LEVEL controls test intensity
//   basic: CI-safe churn and balance validation
//   stress: sustained churn at configured duration and concurrency

func TestDispatchReliability(t *testing.T) {
	config := getReliabilityConfig()

	switch config.Level {
	case "basic":
		t.Run("scope_churn", func(t *testing.T) {
			testScopeChurn(t, 500*time.Millisecond, 8)
		})
		t.Run("span_balance", func(t *testing.T) {
			testSpanBalance(t, 8)
		})
	case "stress":
		t.Run("sustained_churn", func(t *testing.T) {
			testScopeChurn(t, config.Duration, config.MaxGoroutines)
		})
		t.Run("span_balance_heavy", func(t *testing.T) {
			testSpanBalance(t, config.MaxGoroutines)
		})
	default:
		t.Skip("SCOPEZ_RELIABILITY_LEVEL not set, skipping reliability tests")
	}
}

// testScopeChurn runs emitters continuously while dispatch scopes churn.
// Nothing may panic, every emitter must keep making progress, and the
// engine must settle back to never-interest when the churn stops.
func testScopeChurn(t *testing.T, duration time.Duration, goroutines int) {
	sites := make([]*scopez.Callsite, 8)
	for i := range sites {
		sites[i] = scopez.NewEventCallsite(
			fmt.Sprintf("churn.%d.%d", goroutines, i), "reliability/churn",
			scopez.LevelInfo, []string{"n"})
		sites[i].Register()
	}

	var (
		stop     atomic.Bool
		emitted  atomic.Uint64
		wg       sync.WaitGroup
		deadline = time.Now().Add(duration)
	)

	// Emitters.
	for g := 0; g < goroutines/2; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			ctx := context.Background()
			for !stop.Load() {
				site := sites[g%len(sites)]
				scopez.Emit(ctx, site, "spin", g)
				emitted.Add(1)
			}
		}(g)
	}

	// Scope churners: collectors come and go, forcing interest
	// recomputation passes concurrent with emission.
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for !stop.Load() {
				collector := scopez.NewCollector(
					fmt.Sprintf("churner-%d", g), 256)
				scopez.WithDefault(collector, func() {
					time.Sleep(time.Millisecond)
				})
				collector.Close()
			}
		}(g)
	}

	for time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	stop.Store(true)
	wg.Wait()

	if emitted.Load() == 0 {
		t.Error("emitters must make progress during churn")
	}

	// With every scope gone, all callsites must settle to never after
	// one more recomputation pass.
	settle := scopez.NewCollector("settle", 16)
	scopez.WithDefault(settle, func() {})
	settle.Close()
	for _, site := range sites {
		if !site.Interest().IsNever() {
			t.Errorf("callsite %s did not settle to never: %s",
				site.Metadata().Name(), site.Interest())
		}
	}
}

// testSpanBalance drives spans on independent goroutines and verifies
// enter/exit stays balanced under load: when everything closes, every
// record was entered exactly once and nothing stays open.
func testSpanBalance(t *testing.T, goroutines int) {
	site := scopez.NewCallsite(
		fmt.Sprintf("load.span.%d", goroutines), "reliability/balance",
		scopez.LevelInfo, nil)
	collector := scopez.NewCollector("balance", 4096)
	collector.SetSyncMode(true)
	defer collector.Close()

	scopez.WithDefault(collector, func() {
		var wg sync.WaitGroup
		for g := 0; g < goroutines; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ctx := context.Background()
				for i := 0; i < 200; i++ {
					span := scopez.NewSpan(ctx, site)
					span.Scope(ctx, func(context.Context) {})
					span.Close()
				}
			}()
		}
		wg.Wait()
	})

	records := collector.Export()
	want := goroutines * 200
	if len(records) != want {
		t.Errorf("expected %d closed records, got %d", want, len(records))
	}
	for _, rec := range records {
		if rec.EnterCount != 1 {
			t.Errorf("record %d entered %d times, want 1", rec.ID, rec.EnterCount)
			break
		}
	}
}
