package attention

import (
	"math"

	"github.com/danielpatrickdp/cognitive-core/internal/vecmath"
)

// #region config

// Config holds attention tuning knobs.
type Config struct {
	Dim           int
	Lambda        float64 // softmax temperature, owned by the homeostat at runtime
	LambdaMin     float64
	LambdaMax     float64
	MaskThreshold float64 // minimum weight for the hard mask mode
	SoftGamma     float64 // exponent for the soft mask mode
}

// DefaultConfig returns the standard attention configuration.
func DefaultConfig(dim int) Config {
	return Config{
		Dim:           dim,
		Lambda:        1.0,
		LambdaMin:     0.1,
		LambdaMax:     10.0,
		MaskThreshold: 0.1,
		SoftGamma:     0.5,
	}
}

// #endregion config

// #region mechanism

// Mechanism computes surprise-driven attention over input dimensions.
type Mechanism struct {
	config Config
	alpha  []float64
}

// New creates an attention mechanism starting from a uniform focus.
func New(config Config) *Mechanism {
	alpha := make([]float64, config.Dim)
	for i := range alpha {
		alpha[i] = 1.0 / float64(config.Dim)
	}
	return &Mechanism{config: config, alpha: alpha}
}

// #endregion mechanism

// #region lsi

// ComputeLSI derives the local sensitivity index from an error vector:
// |δ| normalized by its maximum, smoothed with a [0.25 0.5 0.25]
// neighbor kernel, then renormalized to sum to 1. A near-zero error
// vector degenerates to a uniform distribution.
func ComputeLSI(delta []float64) []float64 {
	n := len(delta)
	lsi := make([]float64, n)
	if n == 0 {
		return lsi
	}

	var maxAbs float64
	for i, d := range delta {
		lsi[i] = math.Abs(d)
		if lsi[i] > maxAbs {
			maxAbs = lsi[i]
		}
	}

	if maxAbs < 1e-9 {
		for i := range lsi {
			lsi[i] = 1.0 / float64(n)
		}
		return lsi
	}

	for i := range lsi {
		lsi[i] /= maxAbs + 1e-9
	}

	if n > 3 {
		smooth := make([]float64, n)
		copy(smooth, lsi)
		for i := 1; i < n-1; i++ {
			smooth[i] = 0.25*lsi[i-1] + 0.5*lsi[i] + 0.25*lsi[i+1]
		}
		lsi = smooth
	}

	var sum float64
	for _, v := range lsi {
		sum += v
	}
	sum += 1e-9
	for i := range lsi {
		lsi[i] /= sum
	}
	return lsi
}

// #endregion lsi

// #region compute

// Metrics summarizes one attention computation.
type Metrics struct {
	Entropy    float64
	MaxWeight  float64
	FocusIndex float64
	LSIMean    float64
	LSIMax     float64
}

// Compute produces the attention vector softmax(λ·LSI⊙modulation).
// modulation may be nil (all-ones). The error vector is fitted to the
// configured dimension at the boundary.
func (m *Mechanism) Compute(delta []float64, modulation []float64) ([]float64, Metrics) {
	fitted := vecmath.FitDim(delta, m.config.Dim)
	lsi := ComputeLSI(fitted)

	scaled := make([]float64, m.config.Dim)
	for i := range scaled {
		mod := 1.0
		if modulation != nil && i < len(modulation) {
			mod = modulation[i]
		}
		scaled[i] = m.config.Lambda * lsi[i] * mod
	}

	alpha := vecmath.Softmax(scaled)
	m.alpha = alpha

	entropy := vecmath.Entropy(alpha)
	var maxW float64
	for _, a := range alpha {
		if a > maxW {
			maxW = a
		}
	}

	out := make([]float64, len(alpha))
	copy(out, alpha)
	return out, Metrics{
		Entropy:    entropy,
		MaxWeight:  maxW,
		FocusIndex: focusIndex(alpha),
		LSIMean:    vecmath.Mean(lsi),
		LSIMax:     maxOf(lsi),
	}
}

// focusIndex maps entropy to a [0,1] concentration measure:
// 0 = fully diffuse, 1 = fully concentrated.
func focusIndex(alpha []float64) float64 {
	hMax := math.Log(float64(len(alpha)))
	if hMax <= 0 {
		return 0
	}
	return vecmath.Clamp01(1.0 - vecmath.Entropy(alpha)/hMax)
}

func maxOf(v []float64) float64 {
	var m float64
	for _, x := range v {
		if x > m {
			m = x
		}
	}
	return m
}

// #endregion compute

// #region apply

// ApplyMode selects how an attention vector modulates a signal.
type ApplyMode string

const (
	// ApplyModulate multiplies elementwise: α⊙x.
	ApplyModulate ApplyMode = "modulate"
	// ApplyMask zeroes dimensions whose weight falls below the mask threshold.
	ApplyMask ApplyMode = "mask"
	// ApplySoft applies a renormalized exponentiated mask: (α^γ/Σα^γ)⊙x.
	ApplySoft ApplyMode = "soft"
)

// Apply modulates x by the current attention vector using the given mode.
// Unknown modes pass x through unchanged.
func (m *Mechanism) Apply(x []float64, mode ApplyMode) []float64 {
	out := make([]float64, len(x))
	switch mode {
	case ApplyModulate:
		for i := range x {
			out[i] = m.weight(i) * x[i]
		}
	case ApplyMask:
		for i := range x {
			if m.weight(i) > m.config.MaskThreshold {
				out[i] = x[i]
			}
		}
	case ApplySoft:
		soft := make([]float64, len(m.alpha))
		var sum float64
		for i, a := range m.alpha {
			soft[i] = math.Pow(a, m.config.SoftGamma)
			sum += soft[i]
		}
		sum += 1e-9
		for i := range x {
			if i < len(soft) {
				out[i] = soft[i] / sum * x[i]
			}
		}
	default:
		copy(out, x)
	}
	return out
}

func (m *Mechanism) weight(i int) float64 {
	if i < len(m.alpha) {
		return m.alpha[i]
	}
	return 0
}

// #endregion apply

// #region modulate

// FocusMode selects how ModulateAlpha retempers an attention vector.
type FocusMode string

const (
	// FocusSharp doubles λ to concentrate the focus.
	FocusSharp FocusMode = "sharp"
	// FocusBroad halves λ to diffuse the focus.
	FocusBroad FocusMode = "broad"
	// FocusAdaptive keeps the current λ.
	FocusAdaptive FocusMode = "adaptive"
)

// ModulateAlpha re-applies the softmax to an attention vector at a
// mode-shifted temperature without touching the stored λ.
func (m *Mechanism) ModulateAlpha(alpha []float64, mode FocusMode) []float64 {
	lambda := m.config.Lambda
	switch mode {
	case FocusSharp:
		lambda *= 2.0
	case FocusBroad:
		lambda *= 0.5
	}
	scaled := make([]float64, len(alpha))
	for i, a := range alpha {
		scaled[i] = lambda * a
	}
	return vecmath.Softmax(scaled)
}

// #endregion modulate

// #region lambda

// SetLambda installs a new temperature, clamped to the configured range.
func (m *Mechanism) SetLambda(lambda float64) {
	m.config.Lambda = vecmath.Clamp(lambda, m.config.LambdaMin, m.config.LambdaMax)
}

// AdaptLambda nudges the temperature from a performance reading:
// lagging performance diffuses the focus to explore more, strong
// performance sharpens it. λ stays inside the configured range.
func (m *Mechanism) AdaptLambda(performance, target float64) {
	gap := target - performance
	switch {
	case gap > 0.1:
		m.config.Lambda *= 0.95
	case gap < -0.1:
		m.config.Lambda *= 1.05
	}
	m.config.Lambda = vecmath.Clamp(m.config.Lambda, m.config.LambdaMin, m.config.LambdaMax)
}

// Lambda returns the current temperature.
func (m *Mechanism) Lambda() float64 {
	return m.config.Lambda
}

// Alpha returns a copy of the current attention vector.
func (m *Mechanism) Alpha() []float64 {
	out := make([]float64, len(m.alpha))
	copy(out, m.alpha)
	return out
}

// #endregion lambda
