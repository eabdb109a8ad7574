package memory

import (
	"sync"
	"time"
)

// #region config

// Config bundles the long-term memory sub-configurations.
type Config struct {
	Graph  GraphConfig
	Matrix MatrixConfig
	Prune  PruneConfig
	Sleep  SleepConfig
}

// DefaultConfig returns the standard long-term memory configuration.
func DefaultConfig() Config {
	return Config{
		Graph:  DefaultGraphConfig(),
		Matrix: DefaultMatrixConfig(),
		Prune:  DefaultPruneConfig(),
		Sleep:  DefaultSleepConfig(),
	}
}

// #endregion config

// #region store

// Store owns the episodic graph, the semantic matrix, and the pruner
// behind one lock. Tick-path operations take the lock briefly; the
// sleep cycle holds it exclusively for its whole duration, so no tick
// can observe a half-consolidated memory.
type Store struct {
	mu sync.RWMutex

	graph  *Graph
	matrix *Matrix
	pruner *Pruner
	sleep  SleepConfig

	lastSleep time.Time

	// Transient counters, reset by the sleep cycle's homeostasis phase.
	retrievals    int
	accuracySum   float64
	accuracyCount int
}

// NewStore creates an empty long-term memory.
func NewStore(config Config) *Store {
	return &Store{
		graph:  NewGraph(config.Graph),
		matrix: NewMatrix(config.Matrix),
		pruner: NewPruner(config.Prune),
		sleep:  config.Sleep,
	}
}

// #endregion store

// #region tick-path

// Record stores an episode and returns its stable ID.
func (s *Store) Record(vector []float64, tags []string, reward float64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Add(vector, tags, reward)
}

// Consolidate folds a state into the semantic matrix at the configured
// threshold.
func (s *Store) Consolidate(state []float64, tags []string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matrix.Consolidate(state, tags, s.matrix.config.ConsolidateThreshold)
}

// Retrieve queries concepts first, then episodes, returning up to topK
// hits above minSimilarity ordered by similarity.
func (s *Store) Retrieve(query []float64, topK int, minSimilarity float64) []Retrieved {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.retrievals++
	hits := s.matrix.Retrieve(query, topK, minSimilarity)
	if len(hits) < topK {
		hits = append(hits, s.graph.Retrieve(query, topK-len(hits), minSimilarity)...)
	}
	return hits
}

// RecordAccuracy feeds an observed retrieval accuracy into the adaptive
// pruning thresholds.
func (s *Store) RecordAccuracy(accuracy float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accuracySum += accuracy
	s.accuracyCount++
	s.pruner.RecordAccuracy(accuracy)
}

// #endregion tick-path

// #region stats

// Stats is a point-in-time size summary.
type Stats struct {
	Episodes   int       `json:"episodes"`
	Concepts   int       `json:"concepts"`
	Retrievals int       `json:"retrievals"`
	LastSleep  time.Time `json:"last_sleep"`
}

// Stats reports the store sizes.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Episodes:   s.graph.Len(),
		Concepts:   s.matrix.Len(),
		Retrievals: s.retrievals,
		LastSleep:  s.lastSleep,
	}
}

// #endregion stats

// #region snapshot

// StoreSnapshot is a plain serializable record of the whole store.
type StoreSnapshot struct {
	Graph  GraphSnapshot  `json:"graph"`
	Matrix MatrixSnapshot `json:"matrix"`
	Prune  PruneConfig    `json:"prune"`
	Sleep  SleepConfig    `json:"sleep"`
}

// Snapshot captures the full long-term memory as plain records.
func (s *Store) Snapshot() StoreSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StoreSnapshot{
		Graph:  s.graph.Snapshot(),
		Matrix: s.matrix.Snapshot(),
		Prune:  s.pruner.Config(),
		Sleep:  s.sleep,
	}
}

// RestoreStore rebuilds a store from a snapshot.
func RestoreStore(snap StoreSnapshot) *Store {
	return &Store{
		graph:  RestoreGraph(snap.Graph),
		matrix: RestoreMatrix(snap.Matrix),
		pruner: NewPruner(snap.Prune),
		sleep:  snap.Sleep,
	}
}

// #endregion snapshot
