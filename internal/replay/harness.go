package replay

import (
	"fmt"

	"github.com/danielpatrickdp/cognitive-core/internal/core"
)

// #region types

// Result captures the outcome of replaying one tick.
type Result struct {
	Tick       int
	Surprise   float64
	Confidence float64
	SafeMode   bool
	DecisionID string
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	Ticks         int
	SafeModeTicks int
	SleepRuns     int
	FirstSurprise float64
	LastSurprise  float64
	Episodes      int
	Concepts      int
}

// #endregion types

// #region replay

// Run feeds the recorded inputs through the core in order, forcing a
// sleep cycle every sleepEvery ticks (0 disables it). The core mutates
// in place; pass a fresh one for a deterministic run.
func Run(c *core.Core, ticks []core.TickInput, sleepEvery int) ([]Result, Summary) {
	results := make([]Result, 0, len(ticks))
	var summary Summary

	for i, in := range ticks {
		out := c.Tick(in)

		r := Result{
			Tick:       out.Tick,
			Surprise:   out.Surprise,
			Confidence: out.Confidence,
			SafeMode:   out.SafeMode,
		}
		if out.Decision != nil {
			r.DecisionID = out.Decision.SelectedID
		}
		results = append(results, r)

		if i == 0 {
			summary.FirstSurprise = out.Surprise
		}
		summary.LastSurprise = out.Surprise
		if out.SafeMode {
			summary.SafeModeTicks++
		}

		if sleepEvery > 0 && (i+1)%sleepEvery == 0 {
			c.RunSleepCycle(true)
			summary.SleepRuns++
		}
	}

	summary.Ticks = len(results)
	stats := c.Memory().Stats()
	summary.Episodes = stats.Episodes
	summary.Concepts = stats.Concepts
	return results, summary
}

// Check compares the summary against the expectation and returns the
// first violated bound.
func (e *Expectation) Check(s Summary) error {
	if e == nil {
		return nil
	}
	if e.MaxFinalSurprise != nil && s.LastSurprise > *e.MaxFinalSurprise {
		return fmt.Errorf("final surprise %.4f exceeds %.4f", s.LastSurprise, *e.MaxFinalSurprise)
	}
	if e.MaxSafeModeTicks != nil && s.SafeModeTicks > *e.MaxSafeModeTicks {
		return fmt.Errorf("safe mode on %d ticks, expected at most %d", s.SafeModeTicks, *e.MaxSafeModeTicks)
	}
	if e.MinEpisodes != nil && s.Episodes < *e.MinEpisodes {
		return fmt.Errorf("%d episodes recorded, expected at least %d", s.Episodes, *e.MinEpisodes)
	}
	if e.MinConcepts != nil && s.Concepts < *e.MinConcepts {
		return fmt.Errorf("%d concepts formed, expected at least %d", s.Concepts, *e.MinConcepts)
	}
	return nil
}

// #endregion replay
