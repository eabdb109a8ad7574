package actuator

import (
	"errors"
	"fmt"
	"testing"
)

func countingHandler(calls *int) Handler {
	return HandlerFunc(func(intent Intent, context []float64) ([]float64, error) {
		*calls++
		return []float64{float64(*calls)}, nil
	})
}

func TestDispatchExecutesHandler(t *testing.T) {
	a := New(DefaultConfig())
	calls := 0
	if err := a.Register(KindAdjust, countingHandler(&calls)); err != nil {
		t.Fatalf("register: %v", err)
	}

	out := a.Dispatch(Intent{Kind: KindAdjust, Vector: []float64{1}}, nil)
	if out.Err != nil {
		t.Fatalf("dispatch: %v", out.Err)
	}
	if calls != 1 {
		t.Fatalf("handler called %d times, want 1", calls)
	}
	if out.Cached {
		t.Fatal("first dispatch must not report a cache hit")
	}
}

func TestFingerprintCacheHitSkipsExecution(t *testing.T) {
	a := New(DefaultConfig())
	calls := 0
	a.Register(KindAdjust, countingHandler(&calls))

	intent := Intent{Kind: KindAdjust, Vector: []float64{1, 2}, Params: map[string]string{"target": "lr"}}
	ctx := []float64{0.5}

	first := a.Dispatch(intent, ctx)
	second := a.Dispatch(intent, ctx)

	if calls != 1 {
		t.Fatalf("handler called %d times, want 1 (second call should hit cache)", calls)
	}
	if !second.Cached {
		t.Fatal("second dispatch should report a cache hit")
	}
	if len(second.Output) != 1 || second.Output[0] != first.Output[0] {
		t.Fatalf("cached output differs: %v vs %v", first.Output, second.Output)
	}
}

func TestDifferentContextMissesCache(t *testing.T) {
	a := New(DefaultConfig())
	calls := 0
	a.Register(KindAdjust, countingHandler(&calls))

	intent := Intent{Kind: KindAdjust, Vector: []float64{1}}
	a.Dispatch(intent, []float64{0.1})
	a.Dispatch(intent, []float64{0.2})

	if calls != 2 {
		t.Fatalf("distinct contexts must not share a fingerprint, calls = %d", calls)
	}
}

func TestFailuresNeverCached(t *testing.T) {
	a := New(DefaultConfig())
	calls := 0
	a.Register(KindExplore, HandlerFunc(func(Intent, []float64) ([]float64, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("transient fault")
		}
		return []float64{1}, nil
	}))

	intent := Intent{Kind: KindExplore}
	first := a.Dispatch(intent, nil)
	if first.Err == nil {
		t.Fatal("expected first dispatch to fail")
	}

	second := a.Dispatch(intent, nil)
	if second.Err != nil {
		t.Fatalf("retry after failure: %v", second.Err)
	}
	if second.Cached {
		t.Fatal("a failure must not be served from cache")
	}
	if calls != 2 {
		t.Fatalf("handler called %d times, want 2 (failure never cached)", calls)
	}
}

func TestLRUEviction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CacheSize = 2
	a := New(cfg)
	calls := 0
	a.Register(KindAdjust, countingHandler(&calls))

	mk := func(v float64) Intent { return Intent{Kind: KindAdjust, Vector: []float64{v}} }

	a.Dispatch(mk(1), nil)
	a.Dispatch(mk(2), nil)
	a.Dispatch(mk(3), nil) // evicts fingerprint of mk(1)

	if got := a.Stats().Cached; got != 2 {
		t.Fatalf("cache holds %d entries, want 2", got)
	}

	out := a.Dispatch(mk(1), nil)
	if out.Cached {
		t.Fatal("evicted fingerprint should re-execute")
	}
	if calls != 4 {
		t.Fatalf("handler called %d times, want 4", calls)
	}
}

func TestUnknownKindFails(t *testing.T) {
	a := New(DefaultConfig())

	out := a.Dispatch(Intent{Kind: Kind("teleport")}, nil)
	if out.Err == nil {
		t.Fatal("unknown kind must produce an execution error")
	}
	if err := a.Register(Kind("teleport"), HandlerFunc(nil)); err == nil {
		t.Fatal("registering an unknown kind must fail")
	}
}

func TestWaitAlwaysSucceeds(t *testing.T) {
	a := New(DefaultConfig())
	out := a.Dispatch(Intent{Kind: KindWait}, nil)
	if out.Err != nil {
		t.Fatalf("wait should never fail: %v", out.Err)
	}
}

func TestCountersTrackOutcomes(t *testing.T) {
	a := New(DefaultConfig())
	a.Register(KindAdjust, HandlerFunc(func(Intent, []float64) ([]float64, error) {
		return []float64{1}, nil
	}))
	a.Register(KindExplore, HandlerFunc(func(Intent, []float64) ([]float64, error) {
		return nil, fmt.Errorf("boom")
	}))

	a.Dispatch(Intent{Kind: KindAdjust}, nil)
	a.Dispatch(Intent{Kind: KindAdjust}, nil) // cache hit, still a success
	a.Dispatch(Intent{Kind: KindExplore}, nil)

	stats := a.Stats()
	if stats.Successes != 2 {
		t.Fatalf("successes = %d, want 2", stats.Successes)
	}
	if stats.Failures != 1 {
		t.Fatalf("failures = %d, want 1", stats.Failures)
	}
	if stats.PerKind[KindAdjust] != 2 {
		t.Fatalf("per-kind adjust = %d, want 2", stats.PerKind[KindAdjust])
	}
}

func TestFingerprintStableAcrossParamOrder(t *testing.T) {
	a := Intent{Kind: KindAdjust, Params: map[string]string{"x": "1", "y": "2", "z": "3"}}
	b := Intent{Kind: KindAdjust, Params: map[string]string{"z": "3", "y": "2", "x": "1"}}
	if Fingerprint(a, nil) != Fingerprint(b, nil) {
		t.Fatal("fingerprint must not depend on map iteration order")
	}
}
