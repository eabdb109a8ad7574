package memory

import (
	"sort"
	"time"

	"github.com/danielpatrickdp/cognitive-core/internal/vecmath"
)

// #region strategy

// Strategy selects the retention weighting used for pruning.
type Strategy string

const (
	StrategyLRU       Strategy = "lru"       // recency only
	StrategyLFU       Strategy = "lfu"       // frequency only
	StrategyImpact    Strategy = "impact"    // impact only
	StrategyComposite Strategy = "composite" // weighted blend of all three
)

// #endregion strategy

// #region config

// PruneConfig holds the pruning weights, safety floors, and adaptive
// threshold behavior.
type PruneConfig struct {
	Strategy Strategy

	// Composite blend weights; single-factor strategies override these.
	RecencyWeight   float64
	FrequencyWeight float64
	ImpactWeight    float64

	// Safety floors: an item with Usage ≥ UsageFloor OR Impact ≥
	// ImpactFloor is never pruned, whatever the thresholds say.
	UsageFloor  int
	ImpactFloor float64

	// Adaptive candidacy thresholds. Items below BOTH are candidates.
	UsageThreshold  float64
	ImpactThreshold float64

	// Retrieval-accuracy bands driving threshold adaptation.
	AccuracyHigh  float64
	AccuracyLow   float64
	ThresholdStep float64

	UsageThresholdMax  float64
	ImpactThresholdMax float64
}

// DefaultPruneConfig returns the standard composite pruning configuration.
func DefaultPruneConfig() PruneConfig {
	return PruneConfig{
		Strategy:           StrategyComposite,
		RecencyWeight:      0.3,
		FrequencyWeight:    0.3,
		ImpactWeight:       0.4,
		UsageFloor:         5,
		ImpactFloor:        0.8,
		UsageThreshold:     2,
		ImpactThreshold:    0.3,
		AccuracyHigh:       0.8,
		AccuracyLow:        0.5,
		ThresholdStep:      0.1,
		UsageThresholdMax:  20,
		ImpactThresholdMax: 0.7,
	}
}

// #endregion config

// #region pruner

// Item is the strategy-neutral view of a prunable entry.
type Item struct {
	ID       string
	Usage    int
	Impact   float64
	LastUsed time.Time
}

// Pruner scores items for retention and adapts its thresholds from
// observed retrieval accuracy.
type Pruner struct {
	config PruneConfig
	now    func() time.Time
}

// NewPruner creates a pruner.
func NewPruner(config PruneConfig) *Pruner {
	return &Pruner{config: config, now: time.Now}
}

// Config returns the current (possibly adapted) configuration.
func (p *Pruner) Config() PruneConfig {
	return p.config
}

// Retention scores an item in [0,1]: a blend of inverse recency,
// usage frequency (normalized against maxUsage), and impact, weighted
// per strategy.
func (p *Pruner) Retention(item Item, maxUsage int, now time.Time) float64 {
	ageHours := now.Sub(item.LastUsed).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	recency := 1.0 / (1.0 + ageHours)

	frequency := 0.0
	if maxUsage > 0 {
		frequency = float64(item.Usage) / float64(maxUsage)
	}

	wr, wf, wi := p.config.RecencyWeight, p.config.FrequencyWeight, p.config.ImpactWeight
	switch p.config.Strategy {
	case StrategyLRU:
		wr, wf, wi = 1, 0, 0
	case StrategyLFU:
		wr, wf, wi = 0, 1, 0
	case StrategyImpact:
		wr, wf, wi = 0, 0, 1
	}
	total := wr + wf + wi
	if total <= 0 {
		return 1 // a degenerate config retains everything
	}
	return (wr*recency + wf*frequency + wi*vecmath.Clamp01(item.Impact)) / total
}

// Select returns the IDs to prune, lowest retention first. An item is
// selected only when it sits below both adaptive thresholds AND below
// both safety floors.
func (p *Pruner) Select(items []Item) []string {
	now := p.now()
	maxUsage := 0
	for _, it := range items {
		if it.Usage > maxUsage {
			maxUsage = it.Usage
		}
	}

	type scored struct {
		id        string
		retention float64
	}
	var candidates []scored
	for _, it := range items {
		if it.Usage >= p.config.UsageFloor || it.Impact >= p.config.ImpactFloor {
			continue // protected
		}
		if float64(it.Usage) >= p.config.UsageThreshold || it.Impact >= p.config.ImpactThreshold {
			continue
		}
		candidates = append(candidates, scored{id: it.ID, retention: p.Retention(it, maxUsage, now)})
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].retention < candidates[b].retention
	})

	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.id
	}
	return out
}

// #endregion pruner

// #region adapt

// RecordAccuracy adapts the candidacy thresholds from observed
// retrieval accuracy: high accuracy means the store can afford to
// prune harder, degraded accuracy backs the thresholds off.
func (p *Pruner) RecordAccuracy(accuracy float64) {
	step := p.config.ThresholdStep
	switch {
	case accuracy > p.config.AccuracyHigh:
		p.config.UsageThreshold = vecmath.Clamp(p.config.UsageThreshold*(1+step), 0, p.config.UsageThresholdMax)
		p.config.ImpactThreshold = vecmath.Clamp(p.config.ImpactThreshold*(1+step), 0, p.config.ImpactThresholdMax)
	case accuracy < p.config.AccuracyLow:
		p.config.UsageThreshold *= 1 - step
		p.config.ImpactThreshold *= 1 - step
	}
}

// #endregion adapt

// #region apply

// PruneGraph removes prunable episodes and reports how many went.
func (p *Pruner) PruneGraph(g *Graph) int {
	items := make([]Item, 0, g.Len())
	for _, ep := range g.Episodes() {
		items = append(items, Item{ID: ep.ID, Usage: ep.Usage, Impact: ep.Impact, LastUsed: ep.LastUsed})
	}
	pruned := 0
	for _, id := range p.Select(items) {
		if g.Remove(id) {
			pruned++
		}
	}
	return pruned
}

// PruneMatrix removes prunable concepts and reports how many went.
func (p *Pruner) PruneMatrix(m *Matrix) int {
	items := make([]Item, 0, m.Len())
	for _, c := range m.Concepts() {
		// Every instantiation counts as a use, so a concept that keeps
		// absorbing states during consolidation is not prunable merely
		// because nothing retrieved it yet.
		items = append(items, Item{ID: c.ID, Usage: c.Usage + c.Instances, Impact: c.Impact, LastUsed: c.LastUsed})
	}
	pruned := 0
	for _, id := range p.Select(items) {
		if m.Remove(id) {
			pruned++
		}
	}
	return pruned
}

// #endregion apply
