package memory

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/cognitive-core/internal/vecmath"
)

// #region concept

// Concept is one consolidated prototype in the semantic matrix.
type Concept struct {
	ID        string    `json:"id"`
	Prototype []float64 `json:"prototype"`
	Variance  []float64 `json:"variance"`
	Tags      []string  `json:"tags"`
	Instances int       `json:"instances"`
	Usage     int       `json:"usage"`
	Impact    float64   `json:"impact"`
	LastUsed  time.Time `json:"last_used"`
	seq       int
}

// #endregion concept

// #region matrix

// MatrixConfig holds the semantic matrix parameters.
type MatrixConfig struct {
	MaxConcepts          int
	LearningRate         float64 // EMA blend rate for consolidation
	ConsolidateThreshold float64 // default similarity threshold
}

// DefaultMatrixConfig returns the standard semantic matrix configuration.
func DefaultMatrixConfig() MatrixConfig {
	return MatrixConfig{
		MaxConcepts:          200,
		LearningRate:         0.05,
		ConsolidateThreshold: 0.7,
	}
}

// Matrix is the bounded concept store. Like the episodic graph it uses
// an arena with stable IDs and swap-with-last compaction.
type Matrix struct {
	config   MatrixConfig
	concepts []*Concept
	byID     map[string]int
	nextSeq  int

	now func() time.Time
}

// NewMatrix creates an empty semantic matrix.
func NewMatrix(config MatrixConfig) *Matrix {
	return &Matrix{
		config: config,
		byID:   make(map[string]int),
		now:    time.Now,
	}
}

// Len reports the number of stored concepts.
func (m *Matrix) Len() int {
	return len(m.concepts)
}

// Get returns the concept with the given ID, or nil.
func (m *Matrix) Get(id string) *Concept {
	if idx, ok := m.byID[id]; ok {
		return m.concepts[idx]
	}
	return nil
}

// Concepts returns the concepts in insertion order.
func (m *Matrix) Concepts() []*Concept {
	out := append([]*Concept(nil), m.concepts...)
	sort.Slice(out, func(a, b int) bool { return out[a].seq < out[b].seq })
	return out
}

// Remove deletes a concept, compacting the arena.
func (m *Matrix) Remove(id string) bool {
	idx, ok := m.byID[id]
	if !ok {
		return false
	}
	last := len(m.concepts) - 1
	if idx != last {
		m.concepts[idx] = m.concepts[last]
		m.byID[m.concepts[idx].ID] = idx
	}
	m.concepts = m.concepts[:last]
	delete(m.byID, id)
	return true
}

// #endregion matrix

// #region consolidate

// Consolidate folds a state vector into the matrix. The most similar
// concept above threshold absorbs it (EMA blend plus running variance);
// otherwise a new concept is created, evicting the least-instantiated
// concept when the matrix is full. Returns the touched concept's ID and
// whether it was newly created.
func (m *Matrix) Consolidate(state []float64, tags []string, threshold float64) (string, bool) {
	bestIdx := -1
	bestSim := threshold
	for i, c := range m.concepts {
		if sim := vecmath.Cosine(state, c.Prototype); sim >= bestSim {
			bestSim = sim
			bestIdx = i
		}
	}

	if bestIdx >= 0 {
		m.blend(m.concepts[bestIdx], state, tags)
		return m.concepts[bestIdx].ID, false
	}

	if len(m.concepts) >= m.config.MaxConcepts {
		m.evictLeastInstantiated()
	}

	c := &Concept{
		ID:        uuid.NewString(),
		Prototype: append([]float64(nil), state...),
		Variance:  make([]float64, len(state)),
		Tags:      append([]string(nil), tags...),
		Instances: 1,
		LastUsed:  m.now(),
		seq:       m.nextSeq,
	}
	m.nextSeq++
	m.byID[c.ID] = len(m.concepts)
	m.concepts = append(m.concepts, c)
	return c.ID, true
}

// blend applies the EMA update and accumulates running variance against
// the pre-update prototype.
func (m *Matrix) blend(c *Concept, state []float64, tags []string) {
	lr := m.config.LearningRate
	n := len(c.Prototype)
	for i := 0; i < n; i++ {
		var s float64
		if i < len(state) {
			s = state[i]
		}
		d := s - c.Prototype[i]
		c.Prototype[i] += lr * d
		c.Variance[i] = (1-lr)*c.Variance[i] + lr*d*d
	}
	c.Instances++
	c.LastUsed = m.now()
	c.Tags = mergeTags(c.Tags, tags)
}

func mergeTags(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, t := range existing {
		seen[t] = true
	}
	for _, t := range incoming {
		if !seen[t] {
			existing = append(existing, t)
			seen[t] = true
		}
	}
	return existing
}

func (m *Matrix) evictLeastInstantiated() {
	if len(m.concepts) == 0 {
		return
	}
	victim := m.concepts[0]
	for _, c := range m.concepts[1:] {
		if c.Instances < victim.Instances ||
			(c.Instances == victim.Instances && c.seq > victim.seq) {
			victim = c
		}
	}
	m.Remove(victim.ID)
}

// #endregion consolidate

// #region merge

// MergeSimilar pairwise-merges concepts whose prototypes exceed the
// similarity threshold. The merged prototype is weighted by relative
// instance counts; the lower-count concept is removed. Returns the
// number of merges performed.
func (m *Matrix) MergeSimilar(threshold float64) int {
	merged := 0
	for {
		found := false
		ordered := m.Concepts()
		for i := 0; i < len(ordered) && !found; i++ {
			for j := i + 1; j < len(ordered); j++ {
				a, b := ordered[i], ordered[j]
				if vecmath.Cosine(a.Prototype, b.Prototype) < threshold {
					continue
				}
				m.mergePair(a, b)
				merged++
				found = true
				break
			}
		}
		if !found {
			return merged
		}
	}
}

// mergePair folds b into a, count-weighted, and removes b.
func (m *Matrix) mergePair(a, b *Concept) {
	total := float64(a.Instances + b.Instances)
	wa := float64(a.Instances) / total
	wb := float64(b.Instances) / total
	n := len(a.Prototype)
	for i := 0; i < n; i++ {
		var bv, bvar float64
		if i < len(b.Prototype) {
			bv = b.Prototype[i]
			bvar = b.Variance[i]
		}
		a.Prototype[i] = wa*a.Prototype[i] + wb*bv
		a.Variance[i] = wa*a.Variance[i] + wb*bvar
	}
	a.Instances += b.Instances
	a.Usage += b.Usage
	if b.Impact > a.Impact {
		a.Impact = b.Impact
	}
	a.Tags = mergeTags(a.Tags, b.Tags)
	m.Remove(b.ID)
}

// #endregion merge

// #region retrieve

// Retrieve returns the topK concepts most cosine-similar to the query,
// filtered by minSimilarity. Hits have their usage counters bumped.
func (m *Matrix) Retrieve(query []float64, topK int, minSimilarity float64) []Retrieved {
	var hits []Retrieved
	for _, c := range m.concepts {
		sim := vecmath.Cosine(query, c.Prototype)
		if sim >= minSimilarity {
			hits = append(hits, Retrieved{
				ID:         c.ID,
				Similarity: sim,
				Vector:     append([]float64(nil), c.Prototype...),
				Tags:       append([]string(nil), c.Tags...),
			})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Similarity > hits[b].Similarity })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	now := m.now()
	for _, h := range hits {
		c := m.Get(h.ID)
		c.Usage++
		c.LastUsed = now
	}
	return hits
}

// #endregion retrieve

// #region snapshot

// MatrixSnapshot is a plain serializable record of the matrix.
type MatrixSnapshot struct {
	Config   MatrixConfig `json:"config"`
	Concepts []Concept    `json:"concepts"`
}

// Snapshot captures the matrix as plain records in insertion order.
func (m *Matrix) Snapshot() MatrixSnapshot {
	snap := MatrixSnapshot{Config: m.config}
	for _, c := range m.Concepts() {
		cc := *c
		cc.Prototype = append([]float64(nil), c.Prototype...)
		cc.Variance = append([]float64(nil), c.Variance...)
		cc.Tags = append([]string(nil), c.Tags...)
		snap.Concepts = append(snap.Concepts, cc)
	}
	return snap
}

// RestoreMatrix rebuilds a matrix from a snapshot, preserving IDs.
func RestoreMatrix(snap MatrixSnapshot) *Matrix {
	m := NewMatrix(snap.Config)
	for i := range snap.Concepts {
		c := snap.Concepts[i]
		c.Prototype = append([]float64(nil), c.Prototype...)
		c.Variance = append([]float64(nil), c.Variance...)
		c.Tags = append([]string(nil), c.Tags...)
		c.seq = m.nextSeq
		m.nextSeq++
		m.byID[c.ID] = len(m.concepts)
		m.concepts = append(m.concepts, &c)
	}
	return m
}

// #endregion snapshot
