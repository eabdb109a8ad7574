package memory

import (
	"math/rand"
	"time"
)

// #region config

// SleepConfig holds the four-phase consolidation parameters.
type SleepConfig struct {
	ReplayEpisodes   int     // top-ranked episodes replayed per NREM iteration
	ReplayIterations int     // NREM passes over the replay set
	NREMThreshold    float64 // lowered consolidation threshold during replay

	REMEpisodes    int     // random episodes replayed with noise
	REMNoiseStd    float64 // stddev of the injected Gaussian noise
	PatternFloor   float64 // similarity floor for pattern detection
	PatternTopK    int     // concepts inspected per noisy retrieval
	PatternMinHits int     // hits above the floor that count as a pattern

	MergeThreshold float64 // reorganization concept-merge threshold
	MinInterval    time.Duration

	Seed int64
}

// DefaultSleepConfig returns the standard sleep cycle configuration.
func DefaultSleepConfig() SleepConfig {
	return SleepConfig{
		ReplayEpisodes:   10,
		ReplayIterations: 3,
		NREMThreshold:    0.55,
		REMEpisodes:      5,
		REMNoiseStd:      0.1,
		PatternFloor:     0.5,
		PatternTopK:      5,
		PatternMinHits:   2,
		MergeThreshold:   0.85,
		MinInterval:      time.Minute,
		Seed:             1,
	}
}

// #endregion config

// #region summary

// SleepSummary reports what one consolidation cycle did.
type SleepSummary struct {
	Ran                bool          `json:"ran"`
	EpisodesReplayed   int           `json:"episodes_replayed"`
	PatternsDiscovered int           `json:"patterns_discovered"`
	ConceptsMerged     int           `json:"concepts_merged"`
	ItemsPruned        int           `json:"items_pruned"`
	Duration           time.Duration `json:"duration"`
}

// #endregion summary

// #region cycle

// RunSleepCycle executes the four consolidation phases under the
// store's exclusive lock: NREM (ranked replay into the semantic
// matrix), REM (noisy replay for pattern discovery), reorganization
// (concept merging and a full pruning pass), and homeostasis (reset of
// transient counters only — episodic and semantic content persists).
// Without force the cycle is skipped when the minimum interval since
// the last run has not elapsed.
func (s *Store) RunSleepCycle(force bool) SleepSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	var summary SleepSummary
	if !force && !s.lastSleep.IsZero() && time.Since(s.lastSleep) < s.sleep.MinInterval {
		return summary
	}
	start := time.Now()
	rng := rand.New(rand.NewSource(s.sleep.Seed + int64(s.graph.nextSeq)))

	summary.Ran = true
	summary.EpisodesReplayed = s.nremPhase()
	summary.PatternsDiscovered = s.remPhase(rng)
	summary.ConceptsMerged, summary.ItemsPruned = s.reorganizationPhase()
	s.homeostasisPhase()

	s.lastSleep = time.Now()
	summary.Duration = time.Since(start)
	return summary
}

// nremPhase replays the top-ranked episodes into the semantic matrix
// at the lowered consolidation threshold, ReplayIterations times.
func (s *Store) nremPhase() int {
	ranked := s.graph.Rank()
	if len(ranked) > s.sleep.ReplayEpisodes {
		ranked = ranked[:s.sleep.ReplayEpisodes]
	}
	replayed := 0
	for iter := 0; iter < s.sleep.ReplayIterations; iter++ {
		for _, r := range ranked {
			ep := s.graph.Get(r.ID)
			if ep == nil {
				continue
			}
			s.matrix.Consolidate(ep.Vector, ep.Tags, s.sleep.NREMThreshold)
			replayed++
		}
	}
	return replayed
}

// remPhase replays random episodes with injected Gaussian noise. A
// pattern is counted whenever the noisy retrieval still resolves to at
// least PatternMinHits concepts above the similarity floor.
func (s *Store) remPhase(rng *rand.Rand) int {
	episodes := s.graph.Episodes()
	if len(episodes) == 0 {
		return 0
	}
	patterns := 0
	for i := 0; i < s.sleep.REMEpisodes; i++ {
		ep := episodes[rng.Intn(len(episodes))]
		noisy := make([]float64, len(ep.Vector))
		for j, v := range ep.Vector {
			noisy[j] = v + rng.NormFloat64()*s.sleep.REMNoiseStd
		}
		hits := s.matrix.Retrieve(noisy, s.sleep.PatternTopK, s.sleep.PatternFloor)
		if len(hits) >= s.sleep.PatternMinHits {
			patterns++
		}
	}
	return patterns
}

// reorganizationPhase merges similar concepts and forces a full
// pruning pass over both stores.
func (s *Store) reorganizationPhase() (merged, pruned int) {
	merged = s.matrix.MergeSimilar(s.sleep.MergeThreshold)
	pruned = s.pruner.PruneGraph(s.graph) + s.pruner.PruneMatrix(s.matrix)
	return merged, pruned
}

// homeostasisPhase resets the transient counters. Stored episodes and
// concepts are untouched.
func (s *Store) homeostasisPhase() {
	s.retrievals = 0
	s.accuracySum = 0
	s.accuracyCount = 0
}

// #endregion cycle
