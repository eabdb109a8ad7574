package memory

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/cognitive-core/internal/vecmath"
)

// #region episode

// Episode is one stored experience.
type Episode struct {
	ID       string    `json:"id"`
	Vector   []float64 `json:"vector"`
	Tags     []string  `json:"tags"`
	Reward   float64   `json:"reward"`
	Impact   float64   `json:"impact"`
	Usage    int       `json:"usage"`
	StoredAt time.Time `json:"stored_at"`
	LastUsed time.Time `json:"last_used"`
	seq      int       // insertion order, for reproducible tie-breaks
}

// #endregion episode

// #region graph

// GraphConfig holds the episodic graph parameters.
type GraphConfig struct {
	MaxEpisodes   int
	EdgeThreshold float64 // cosine similarity above which two episodes are linked
	Damping       float64 // PageRank damping factor
	RankIters     int
}

// DefaultGraphConfig returns the standard episodic graph configuration.
func DefaultGraphConfig() GraphConfig {
	return GraphConfig{
		MaxEpisodes:   1000,
		EdgeThreshold: 0.5,
		Damping:       0.85,
		RankIters:     20,
	}
}

// Graph stores episodes in an arena with stable identifiers: the
// backing slice compacts on removal (swap with last) while lookups stay
// keyed by ID, so deletion never triggers a linear reindex.
type Graph struct {
	config   GraphConfig
	episodes []*Episode
	byID     map[string]int // ID → arena index
	nextSeq  int

	now func() time.Time
}

// NewGraph creates an empty episodic graph.
func NewGraph(config GraphConfig) *Graph {
	return &Graph{
		config: config,
		byID:   make(map[string]int),
		now:    time.Now,
	}
}

// Add stores an episode and returns its stable ID. When the arena is
// full the lowest-ranked episode is evicted first.
func (g *Graph) Add(vector []float64, tags []string, reward float64) string {
	if len(g.episodes) >= g.config.MaxEpisodes {
		g.evictLowestRanked()
	}

	now := g.now()
	ep := &Episode{
		ID:       uuid.NewString(),
		Vector:   append([]float64(nil), vector...),
		Tags:     append([]string(nil), tags...),
		Reward:   reward,
		Impact:   vecmath.Clamp01(reward),
		StoredAt: now,
		LastUsed: now,
		seq:      g.nextSeq,
	}
	g.nextSeq++

	g.byID[ep.ID] = len(g.episodes)
	g.episodes = append(g.episodes, ep)
	return ep.ID
}

// Get returns the episode with the given ID, or nil.
func (g *Graph) Get(id string) *Episode {
	if idx, ok := g.byID[id]; ok {
		return g.episodes[idx]
	}
	return nil
}

// Remove deletes an episode by swapping the last arena entry into its
// slot. Other episodes keep their IDs untouched.
func (g *Graph) Remove(id string) bool {
	idx, ok := g.byID[id]
	if !ok {
		return false
	}
	last := len(g.episodes) - 1
	if idx != last {
		g.episodes[idx] = g.episodes[last]
		g.byID[g.episodes[idx].ID] = idx
	}
	g.episodes = g.episodes[:last]
	delete(g.byID, id)
	return true
}

// Len reports the number of stored episodes.
func (g *Graph) Len() int {
	return len(g.episodes)
}

// Episodes returns the episodes in insertion order.
func (g *Graph) Episodes() []*Episode {
	out := append([]*Episode(nil), g.episodes...)
	sort.Slice(out, func(a, b int) bool { return out[a].seq < out[b].seq })
	return out
}

func (g *Graph) evictLowestRanked() {
	ranked := g.Rank()
	if len(ranked) == 0 {
		return
	}
	g.Remove(ranked[len(ranked)-1].ID)
}

// #endregion graph

// #region rank

// Ranked pairs an episode ID with its importance score.
type Ranked struct {
	ID    string
	Score float64
}

// Rank computes importance via PageRank over the similarity-induced
// edge set. The result is fully reproducible for a fixed graph: ties
// break by insertion order.
func (g *Graph) Rank() []Ranked {
	n := len(g.episodes)
	if n == 0 {
		return nil
	}

	// Similarity-weighted adjacency, edges above the threshold only.
	weights := make([][]float64, n)
	outSum := make([]float64, n)
	for i := 0; i < n; i++ {
		weights[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			sim := vecmath.Cosine(g.episodes[i].Vector, g.episodes[j].Vector)
			if sim >= g.config.EdgeThreshold {
				weights[i][j] = sim
				outSum[i] += sim
			}
		}
	}

	rank := make([]float64, n)
	for i := range rank {
		rank[i] = 1.0 / float64(n)
	}
	next := make([]float64, n)
	base := (1 - g.config.Damping) / float64(n)
	for iter := 0; iter < g.config.RankIters; iter++ {
		for j := 0; j < n; j++ {
			next[j] = base
		}
		for i := 0; i < n; i++ {
			if outSum[i] == 0 {
				// Dangling node: spread its mass uniformly.
				share := g.config.Damping * rank[i] / float64(n)
				for j := 0; j < n; j++ {
					next[j] += share
				}
				continue
			}
			for j := 0; j < n; j++ {
				if weights[i][j] > 0 {
					next[j] += g.config.Damping * rank[i] * weights[i][j] / outSum[i]
				}
			}
		}
		rank, next = next, rank
	}

	out := make([]Ranked, n)
	for i, ep := range g.episodes {
		out[i] = Ranked{ID: ep.ID, Score: rank[i]}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		return g.episodes[g.byID[out[a].ID]].seq < g.episodes[g.byID[out[b].ID]].seq
	})
	return out
}

// #endregion rank

// #region retrieve

// Retrieved is one retrieval hit.
type Retrieved struct {
	ID         string
	Similarity float64
	Vector     []float64
	Tags       []string
}

// Retrieve returns the topK episodes most cosine-similar to the query,
// filtered by minSimilarity. Hits have their usage counters bumped.
func (g *Graph) Retrieve(query []float64, topK int, minSimilarity float64) []Retrieved {
	var hits []Retrieved
	for _, ep := range g.episodes {
		sim := vecmath.Cosine(query, ep.Vector)
		if sim >= minSimilarity {
			hits = append(hits, Retrieved{
				ID:         ep.ID,
				Similarity: sim,
				Vector:     append([]float64(nil), ep.Vector...),
				Tags:       append([]string(nil), ep.Tags...),
			})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Similarity > hits[b].Similarity })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	now := g.now()
	for _, h := range hits {
		ep := g.Get(h.ID)
		ep.Usage++
		ep.LastUsed = now
	}
	return hits
}

// #endregion retrieve

// #region snapshot

// GraphSnapshot is a plain serializable record of the graph.
type GraphSnapshot struct {
	Config   GraphConfig `json:"config"`
	Episodes []Episode   `json:"episodes"`
}

// Snapshot captures the graph as plain records in insertion order.
func (g *Graph) Snapshot() GraphSnapshot {
	snap := GraphSnapshot{Config: g.config}
	for _, ep := range g.Episodes() {
		e := *ep
		e.Vector = append([]float64(nil), ep.Vector...)
		e.Tags = append([]string(nil), ep.Tags...)
		snap.Episodes = append(snap.Episodes, e)
	}
	return snap
}

// RestoreGraph rebuilds a graph from a snapshot, preserving IDs.
func RestoreGraph(snap GraphSnapshot) *Graph {
	g := NewGraph(snap.Config)
	for i := range snap.Episodes {
		ep := snap.Episodes[i]
		ep.Vector = append([]float64(nil), ep.Vector...)
		ep.Tags = append([]string(nil), ep.Tags...)
		ep.seq = g.nextSeq
		g.nextSeq++
		g.byID[ep.ID] = len(g.episodes)
		g.episodes = append(g.episodes, &ep)
	}
	return g
}

// #endregion snapshot
