package replay

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/cognitive-core/internal/attention"
	"github.com/danielpatrickdp/cognitive-core/internal/core"
	"github.com/danielpatrickdp/cognitive-core/internal/cortex"
	"github.com/danielpatrickdp/cognitive-core/internal/filter"
	"github.com/danielpatrickdp/cognitive-core/internal/wm"
)

func smallCoreConfig() core.Config {
	cfg := core.DefaultConfig()
	cfg.Filter = filter.Config{StateDim: 8, ObsDim: 8, ProcessNoise: 0.01, MeasurementNoise: 0.1, Seed: 1}
	cfg.Attention = attention.DefaultConfig(8)
	cfg.Cortex = cortex.Config{
		LatentDim: 8, InputDim: 8, WMDim: 4,
		Activation: cortex.ActTanh, LeakRate: 0.05, HistorySize: 10, Seed: 1,
	}
	cfg.WM = wm.Config{
		Dim: 4, LatentDim: 8, Slots: 2, NormCeiling: 10,
		DecayRate: 0.02, MaxRetrieved: 3, Seed: 1,
	}
	cfg.Value.LatentDim = 8
	cfg.Value.ActionDim = 4
	return cfg
}

func constantTicks(n int) []core.TickInput {
	obs := make([]float64, 8)
	for i := range obs {
		obs[i] = math.Cos(float64(i))
	}
	ticks := make([]core.TickInput, n)
	for i := range ticks {
		ticks[i] = core.TickInput{Observation: obs}
	}
	return ticks
}

func TestRunProducesResultPerTick(t *testing.T) {
	results, summary := Run(core.New(smallCoreConfig()), constantTicks(15), 0)
	if len(results) != 15 {
		t.Fatalf("expected 15 results, got %d", len(results))
	}
	if summary.Ticks != 15 {
		t.Fatalf("summary ticks = %d", summary.Ticks)
	}
	if summary.Episodes == 0 {
		t.Fatal("expected episodes to be recorded")
	}
	for i, r := range results {
		if r.Tick != i+1 {
			t.Fatalf("result %d has tick %d", i, r.Tick)
		}
	}
}

func TestRunIsDeterministic(t *testing.T) {
	ticks := constantTicks(10)
	a, _ := Run(core.New(smallCoreConfig()), ticks, 0)
	b, _ := Run(core.New(smallCoreConfig()), ticks, 0)
	for i := range a {
		if math.Abs(a[i].Surprise-b[i].Surprise) > 1e-9 {
			t.Fatalf("tick %d: surprise %.9f vs %.9f", i+1, a[i].Surprise, b[i].Surprise)
		}
		if a[i].DecisionID != b[i].DecisionID {
			t.Fatalf("tick %d: decision %s vs %s", i+1, a[i].DecisionID, b[i].DecisionID)
		}
	}
}

func TestSleepEveryRunsCycles(t *testing.T) {
	_, summary := Run(core.New(smallCoreConfig()), constantTicks(12), 4)
	if summary.SleepRuns != 3 {
		t.Fatalf("expected 3 sleep runs, got %d", summary.SleepRuns)
	}
}

func TestExpectationCheck(t *testing.T) {
	maxSafe := 0
	minEp := 100
	s := Summary{Ticks: 10, SafeModeTicks: 2, Episodes: 10}

	if err := (&Expectation{}).Check(s); err != nil {
		t.Fatalf("empty expectation should pass: %v", err)
	}
	if err := (&Expectation{MaxSafeModeTicks: &maxSafe}).Check(s); err == nil {
		t.Fatal("expected safe-mode bound to fail")
	}
	if err := (&Expectation{MinEpisodes: &minEp}).Check(s); err == nil {
		t.Fatal("expected episode bound to fail")
	}
	var nilExp *Expectation
	if err := nilExp.Check(s); err != nil {
		t.Fatalf("nil expectation should pass: %v", err)
	}
}

func TestLoadFixtureRoundTrip(t *testing.T) {
	maxSurp := 5.0
	f := Fixture{
		Description: "constant observation",
		SleepEvery:  5,
		Ticks:       constantTicks(3),
		Expect:      &Expectation{MaxFinalSurprise: &maxSurp},
	}
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "fixture.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if got.Description != f.Description || len(got.Ticks) != 3 || got.SleepEvery != 5 {
		t.Fatalf("fixture mismatch: %+v", got)
	}
	if got.Expect == nil || got.Expect.MaxFinalSurprise == nil || *got.Expect.MaxFinalSurprise != 5.0 {
		t.Fatal("expectation not preserved")
	}
}

func TestLoadTicksJSONL(t *testing.T) {
	ticks := constantTicks(4)
	path := filepath.Join(t.TempDir(), "ticks.jsonl")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enc := json.NewEncoder(file)
	for _, in := range ticks {
		if err := enc.Encode(in); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	file.Close()

	got, err := LoadTicks(path)
	if err != nil {
		t.Fatalf("LoadTicks: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 ticks, got %d", len(got))
	}
	if len(got[0].Observation) != 8 {
		t.Fatalf("observation not preserved: %d dims", len(got[0].Observation))
	}
}
