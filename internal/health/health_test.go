package health

import (
	"math"
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

func tickedSnapshot(t *testing.T, ticks int) core.Snapshot {
	t.Helper()
	c := core.New(smallCoreConfig())
	obs := make([]float64, 8)
	for i := range obs {
		obs[i] = math.Sin(float64(i + 1))
	}
	for i := 0; i < ticks; i++ {
		c.Tick(core.TickInput{Observation: obs})
	}
	return c.Snapshot()
}

func TestHealthyCorePasses(t *testing.T) {
	h := NewHarness(DefaultConfig())
	result := h.Run(tickedSnapshot(t, 20))
	if !result.Passed {
		t.Fatalf("healthy snapshot failed: %s", result.Reason)
	}
	if len(result.Checks) != 5 {
		t.Fatalf("expected 5 checks, got %d", len(result.Checks))
	}
}

func TestLatentNormRejected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxLatentNorm = 1e-6
	h := NewHarness(cfg)
	result := h.Run(tickedSnapshot(t, 5))
	if result.Passed {
		t.Fatal("expected latent norm check to fail")
	}
	for _, c := range result.Checks {
		if c.Name == "latent_norm" && c.Pass {
			t.Fatal("latent_norm check should not pass")
		}
	}
}

func TestNonFiniteRejected(t *testing.T) {
	snap := tickedSnapshot(t, 5)
	snap.Cortex.Z[0] = math.NaN()
	h := NewHarness(DefaultConfig())
	result := h.Run(snap)
	if result.Passed {
		t.Fatal("expected finite check to fail")
	}
}

func TestLowPerformanceIsInformational(t *testing.T) {
	snap := tickedSnapshot(t, 5)
	snap.Performance = 0.0
	h := NewHarness(DefaultConfig())
	result := h.Run(snap)
	if !result.Passed {
		t.Fatalf("performance check must not block: %s", result.Reason)
	}
	found := false
	for _, c := range result.Checks {
		if c.Name == "performance" {
			found = true
			if c.Pass {
				t.Fatal("performance check should report below baseline")
			}
		}
	}
	if !found {
		t.Fatal("performance check missing")
	}
}
