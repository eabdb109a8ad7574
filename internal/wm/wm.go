package wm

import (
	"math"
	"math/rand"

	"github.com/danielpatrickdp/cognitive-core/internal/vecmath"
)

// #region config

// Config holds the working memory dimensions and gating parameters.
type Config struct {
	Dim          int
	LatentDim    int
	Slots        int     // contiguous segments exposed for slot-level ops
	NormCeiling  float64 // hard cap on ‖w‖, rescale never truncate
	DecayRate    float64 // per-update decay scaled by (1 − gate)
	MaxRetrieved int     // retrieved items blended into new content
	Seed         int64
}

// DefaultConfig returns the standard working memory configuration.
func DefaultConfig() Config {
	return Config{
		Dim:          64,
		LatentDim:    128,
		Slots:        7,
		NormCeiling:  10.0,
		DecayRate:    0.02,
		MaxRetrieved: 3,
		Seed:         1,
	}
}

// #endregion config

// #region buffer

// RetrievedItem is a long-term memory item offered for blending into
// the buffer, carrying its retrieval score.
type RetrievedItem struct {
	Vector []float64
	Score  float64
}

// Buffer is the gated working memory:
// w ← gate⊙w + (1−gate)⊙content, then decay and norm capping.
type Buffer struct {
	config Config

	w    []float64
	gate vecmath.Matrix // Γ: [z ; w] → gate logits

	updates int
}

// New creates an empty buffer with a seeded gating matrix.
func New(config Config) *Buffer {
	rng := rand.New(rand.NewSource(config.Seed))
	return &Buffer{
		config: config,
		w:      make([]float64, config.Dim),
		gate:   vecmath.XavierUniform(config.Dim, config.LatentDim+config.Dim, rng),
	}
}

// #endregion buffer

// #region update

// Metrics summarizes one buffer update.
type Metrics struct {
	GateMean float64
	Load     float64 // ‖w‖ / ceiling, in [0,1]
	Blended  int     // retrieved items that contributed to content
}

// Update performs the gated write. latent is fitted to the latent
// dimension; retrieved items beyond MaxRetrieved are ignored.
// relevance, when non-nil, modulates the gate elementwise.
func (b *Buffer) Update(latent []float64, retrieved []RetrievedItem, relevance []float64) ([]float64, Metrics) {
	cfg := b.config

	gate := b.computeGate(latent, relevance)
	content, blended := b.composeContent(latent, retrieved)

	for i := range b.w {
		b.w[i] = gate[i]*b.w[i] + (1-gate[i])*content[i]
	}

	// Decay is strongest where the gate is open (fresh content settles,
	// stale content fades).
	var gateSum float64
	for i := range b.w {
		b.w[i] *= 1 - cfg.DecayRate*(1-gate[i])
		gateSum += gate[i]
	}

	b.capNorm()
	b.updates++

	return b.W(), Metrics{
		GateMean: gateSum / float64(cfg.Dim),
		Load:     b.Load(),
		Blended:  blended,
	}
}

// computeGate evaluates σ(Γ·[z ; w]), optionally modulated by an
// external relevance vector.
func (b *Buffer) computeGate(latent, relevance []float64) []float64 {
	joint := make([]float64, b.config.LatentDim+b.config.Dim)
	copy(joint, vecmath.FitDim(latent, b.config.LatentDim))
	copy(joint[b.config.LatentDim:], b.w)

	logits := b.gate.MulVec(joint)
	gate := make([]float64, b.config.Dim)
	for i, l := range logits {
		gate[i] = 1.0 / (1.0 + math.Exp(-l))
		if relevance != nil && i < len(relevance) {
			gate[i] = vecmath.Clamp01(gate[i] * relevance[i])
		}
	}
	return gate
}

// composeContent blends the latent state with up to MaxRetrieved
// retrieved items, each weighted by score and rank-decayed by 1/(rank+1).
func (b *Buffer) composeContent(latent []float64, retrieved []RetrievedItem) ([]float64, int) {
	content := vecmath.FitDim(latent, b.config.Dim)

	weightTotal := 1.0
	blended := 0
	for rank, item := range retrieved {
		if rank >= b.config.MaxRetrieved {
			break
		}
		w := item.Score / float64(rank+1)
		if w <= 0 {
			continue
		}
		fitted := vecmath.FitDim(item.Vector, b.config.Dim)
		for i := range content {
			content[i] += w * fitted[i]
		}
		weightTotal += w
		blended++
	}
	for i := range content {
		content[i] /= weightTotal
	}
	return content, blended
}

// capNorm rescales w to the ceiling when it overshoots.
func (b *Buffer) capNorm() {
	norm := vecmath.Norm(b.w)
	if norm > b.config.NormCeiling {
		scale := b.config.NormCeiling / norm
		for i := range b.w {
			b.w[i] *= scale
		}
	}
}

// #endregion update

// #region slots

// slotBounds maps a slot index to its [lo, hi) segment of the buffer.
func (b *Buffer) slotBounds(slot int) (int, int, bool) {
	if slot < 0 || slot >= b.config.Slots {
		return 0, 0, false
	}
	size := b.config.Dim / b.config.Slots
	lo := slot * size
	hi := lo + size
	if slot == b.config.Slots-1 {
		hi = b.config.Dim
	}
	return lo, hi, true
}

// ClearSlot zeroes one slot segment. Out-of-range slots are ignored.
func (b *Buffer) ClearSlot(slot int) {
	lo, hi, ok := b.slotBounds(slot)
	if !ok {
		return
	}
	for i := lo; i < hi; i++ {
		b.w[i] = 0
	}
}

// PrioritizeSlot multiplies one slot segment by boost, then re-applies
// the norm ceiling.
func (b *Buffer) PrioritizeSlot(slot int, boost float64) {
	lo, hi, ok := b.slotBounds(slot)
	if !ok {
		return
	}
	for i := lo; i < hi; i++ {
		b.w[i] *= boost
	}
	b.capNorm()
}

// #endregion slots

// #region rehearse

// Rehearse reinforces the current content by repeatedly renormalizing
// w toward strength·unit scale. A zero buffer stays zero.
func (b *Buffer) Rehearse(iterations int, strength float64) {
	for it := 0; it < iterations; it++ {
		norm := vecmath.Norm(b.w)
		if norm < 1e-9 {
			return
		}
		target := strength
		if target > b.config.NormCeiling {
			target = b.config.NormCeiling
		}
		// Move halfway toward the target scale each iteration.
		scale := 1 + 0.5*(target/norm-1)
		for i := range b.w {
			b.w[i] *= scale
		}
	}
	b.capNorm()
}

// #endregion rehearse

// #region access

// W returns a copy of the buffer contents.
func (b *Buffer) W() []float64 {
	out := make([]float64, len(b.w))
	copy(out, b.w)
	return out
}

// Load reports ‖w‖ relative to the ceiling, clamped to [0,1].
func (b *Buffer) Load() float64 {
	return vecmath.Clamp01(vecmath.Norm(b.w) / b.config.NormCeiling)
}

// Updates reports the number of gated writes since creation.
func (b *Buffer) Updates() int {
	return b.updates
}

// Reset zeroes the buffer without touching the gating weights.
func (b *Buffer) Reset() {
	b.w = make([]float64, b.config.Dim)
	b.updates = 0
}

// #endregion access

// #region snapshot

// Snapshot is a plain serializable record of the buffer.
type Snapshot struct {
	Config  Config         `json:"config"`
	W       []float64      `json:"w"`
	Gate    vecmath.Matrix `json:"gate"`
	Updates int            `json:"updates"`
}

// Snapshot captures the buffer contents and gating weights.
func (b *Buffer) Snapshot() Snapshot {
	return Snapshot{
		Config:  b.config,
		W:       b.W(),
		Gate:    b.gate.Clone(),
		Updates: b.updates,
	}
}

// Restore rebuilds a buffer from a snapshot.
func Restore(snap Snapshot) *Buffer {
	b := New(snap.Config)
	b.w = vecmath.FitDim(snap.W, snap.Config.Dim)
	b.gate = snap.Gate.Clone()
	b.updates = snap.Updates
	return b
}

// #endregion snapshot
