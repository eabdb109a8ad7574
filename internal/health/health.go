package health

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/cognitive-core/internal/core"
	"github.com/danielpatrickdp/cognitive-core/internal/vecmath"
)

// #region harness
// Harness runs lightweight validation on a core snapshot before it is
// persisted or restored.
type Harness struct {
	config Config
}

// NewHarness creates a harness with the given configuration.
func NewHarness(config Config) *Harness {
	return &Harness{config: config}
}

// Run validates the snapshot. Returns pass/fail with per-check metrics.
// A failed result means the snapshot should not be committed.
func (h *Harness) Run(snap core.Snapshot) Result {
	var checks []Check
	passed := true
	var failReasons []string

	// 1. Latent norm bounds
	latentNorm := vecmath.Norm(snap.Cortex.Z)
	latentPass := latentNorm <= h.config.MaxLatentNorm
	checks = append(checks, Check{Name: "latent_norm", Value: latentNorm, Pass: latentPass})
	if !latentPass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("latent norm %.4f exceeds %.4f", latentNorm, h.config.MaxLatentNorm))
	}

	// 2. Working-memory norm bounds
	wmNorm := vecmath.Norm(snap.WM.W)
	wmPass := wmNorm <= h.config.MaxWMNorm
	checks = append(checks, Check{Name: "wm_norm", Value: wmNorm, Pass: wmPass})
	if !wmPass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("wm norm %.4f exceeds %.4f", wmNorm, h.config.MaxWMNorm))
	}

	// 3. Recurrent stability: the spectral radius must stay below the
	// amplification bound or the latent state can diverge after restore.
	radius := snap.Cortex.WRec.SpectralRadius()
	radiusPass := radius <= h.config.MaxRecurrentRadius
	checks = append(checks, Check{Name: "recurrent_radius", Value: radius, Pass: radiusPass})
	if !radiusPass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("recurrent radius %.4f exceeds %.4f", radius, h.config.MaxRecurrentRadius))
	}

	// 4. Finite scan: a single NaN poisons every later tick.
	finitePass := allFinite(snap.Cortex.Z) && allFinite(snap.WM.W) && allFinite(snap.PriorAction)
	finiteVal := 0.0
	if finitePass {
		finiteVal = 1.0
	}
	checks = append(checks, Check{Name: "finite_values", Value: finiteVal, Pass: finitePass})
	if !finitePass {
		passed = false
		failReasons = append(failReasons, "non-finite value in latent, wm, or prior action")
	}

	// 5. Performance check: informational, never blocks a commit.
	perfPass := snap.Performance >= h.config.PerformanceBaseline
	checks = append(checks, Check{Name: "performance", Value: snap.Performance, Pass: perfPass})

	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("health failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("health failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return Result{
		Passed: passed,
		Checks: checks,
		Reason: reason,
	}
}

// #endregion harness

// #region helpers
func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// #endregion helpers
