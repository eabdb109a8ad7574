package filter

import (
	"math/rand"

	"github.com/danielpatrickdp/cognitive-core/internal/vecmath"
)

// #region config

// Config holds the sensory filter dimensions and noise levels.
type Config struct {
	StateDim         int
	ObsDim           int
	ProcessNoise     float64 // initial diagonal of Q
	MeasurementNoise float64 // diagonal of R
	Seed             int64   // seeds H when ObsDim > StateDim
}

// DefaultConfig returns the standard filter configuration for
// embedding-sized observations compressed into the latent dimension.
func DefaultConfig() Config {
	return Config{
		StateDim:         128,
		ObsDim:           384,
		ProcessNoise:     0.01,
		MeasurementNoise: 0.1,
		Seed:             1,
	}
}

// #endregion config

// #region filter-struct

// SensoryFilter is a linear Kalman filter that de-noises raw
// observations before they reach the rest of the pipeline.
type SensoryFilter struct {
	config Config

	x Matrix1D       // state estimate
	p vecmath.Matrix // error covariance
	f vecmath.Matrix // transition
	h vecmath.Matrix // observation projection
	q vecmath.Matrix // process noise
	r vecmath.Matrix // measurement noise

	initialized bool
}

// Matrix1D is a plain float64 vector alias kept for snapshot clarity.
type Matrix1D = []float64

// New creates a sensory filter. When the observation dimension exceeds
// the state dimension, H is a seeded random projection; otherwise H is
// a truncated identity.
func New(config Config) *SensoryFilter {
	h := vecmath.NewMatrix(config.ObsDim, config.StateDim)
	if config.ObsDim <= config.StateDim {
		for i := 0; i < config.ObsDim; i++ {
			h.Set(i, i, 1)
		}
	} else {
		rng := rand.New(rand.NewSource(config.Seed))
		for i := range h.Data {
			h.Data[i] = rng.NormFloat64()
		}
	}

	return &SensoryFilter{
		config: config,
		x:      make([]float64, config.StateDim),
		p:      vecmath.Identity(config.StateDim),
		f:      vecmath.Identity(config.StateDim),
		h:      h,
		q:      vecmath.Scaled(config.StateDim, config.ProcessNoise),
		r:      vecmath.Scaled(config.ObsDim, config.MeasurementNoise),
	}
}

// #endregion filter-struct

// #region predict

// Predict advances the state estimate and covariance one step:
// x ← F·x, P ← F·P·Fᵀ + Q.
func (f *SensoryFilter) Predict() []float64 {
	f.x = f.f.MulVec(f.x)
	f.p = f.f.Mul(f.p).Mul(f.f.Transpose()).Add(f.q)
	out := make([]float64, len(f.x))
	copy(out, f.x)
	return out
}

// #endregion predict

// #region update

// Result carries the filtered observation plus per-update metrics.
type Result struct {
	Filtered       []float64
	InnovationNorm float64
	Uncertainty    float64
	Degraded       bool // true when the update fell back to pass-through
}

// Update corrects the state with an observation and returns the
// filtered observation H·x. The observation is padded or truncated to
// the configured dimension. On the very first observation the state is
// initialized directly. A singular innovation covariance degrades to
// pass-through rather than failing the tick.
func (f *SensoryFilter) Update(observation []float64) Result {
	y := vecmath.FitDim(observation, f.config.ObsDim)

	if !f.initialized {
		f.initFromObservation(y)
		return Result{Filtered: y, Uncertainty: f.Uncertainty()}
	}

	// Innovation against the projected prior estimate.
	yPred := f.h.MulVec(f.x)
	innovation := make([]float64, f.config.ObsDim)
	for i := range innovation {
		innovation[i] = y[i] - yPred[i]
	}
	innovationNorm := vecmath.Norm(innovation)

	// S = H·P·Hᵀ + R
	pht := f.p.Mul(f.h.Transpose())
	s := f.h.Mul(pht).Add(f.r)

	sInv, err := s.Inverse()
	if err != nil {
		// Degraded-but-safe path: return the unfiltered observation.
		return Result{
			Filtered:       y,
			InnovationNorm: innovationNorm,
			Uncertainty:    f.Uncertainty(),
			Degraded:       true,
		}
	}

	// K = P·Hᵀ·S⁻¹
	k := pht.Mul(sInv)

	// x ← x + K·innovation
	correction := k.MulVec(innovation)
	for i := range f.x {
		f.x[i] += correction[i]
	}

	// P ← (I − K·H)·P
	kh := k.Mul(f.h)
	ikh := vecmath.Identity(f.config.StateDim)
	for i := range ikh.Data {
		ikh.Data[i] -= kh.Data[i]
	}
	f.p = ikh.Mul(f.p)

	return Result{
		Filtered:       f.h.MulVec(f.x),
		InnovationNorm: innovationNorm,
		Uncertainty:    f.Uncertainty(),
	}
}

// initFromObservation seeds the state from the first observation,
// projected through Hᵀ when the observation is wider than the state.
func (f *SensoryFilter) initFromObservation(y []float64) {
	if f.config.ObsDim <= f.config.StateDim {
		copy(f.x, y)
	} else {
		projected := f.h.Transpose().MulVec(y)
		n := vecmath.Norm(projected) + 1e-9
		for i := range projected {
			projected[i] /= n
		}
		f.x = projected
	}
	f.initialized = true
}

// #endregion update

// #region adapt-noise

// AdaptNoise retunes the process noise from recent innovation size:
// large innovations mean the system is under-modeled (inflate Q), small
// innovations mean the model tracks well (shrink Q). Q stays inside
// [1e-4, 1.0] elementwise.
func (f *SensoryFilter) AdaptNoise(innovationNorm float64) {
	switch {
	case innovationNorm > 2.0:
		f.q.ScaleInPlace(1.1)
	case innovationNorm < 0.5:
		f.q.ScaleInPlace(0.95)
	}
	for i := range f.q.Data {
		f.q.Data[i] = vecmath.Clamp(f.q.Data[i], 1e-4, 1.0)
	}
}

// #endregion adapt-noise

// #region accessors

// Uncertainty returns the trace of the error covariance P.
func (f *SensoryFilter) Uncertainty() float64 {
	var tr float64
	for i := 0; i < f.p.Rows; i++ {
		tr += f.p.At(i, i)
	}
	return tr
}

// State returns a copy of the internal state estimate.
func (f *SensoryFilter) State() []float64 {
	out := make([]float64, len(f.x))
	copy(out, f.x)
	return out
}

// #endregion accessors

// #region snapshot

// Snapshot is a plain serializable record of the filter state.
type Snapshot struct {
	Config      Config         `json:"config"`
	X           []float64      `json:"x"`
	P           vecmath.Matrix `json:"p"`
	H           vecmath.Matrix `json:"h"`
	Q           vecmath.Matrix `json:"q"`
	Initialized bool           `json:"initialized"`
}

// Snapshot captures the filter as a plain record.
func (f *SensoryFilter) Snapshot() Snapshot {
	return Snapshot{
		Config:      f.config,
		X:           f.State(),
		P:           f.p.Clone(),
		H:           f.h.Clone(),
		Q:           f.q.Clone(),
		Initialized: f.initialized,
	}
}

// Restore rebuilds a filter from a snapshot.
func Restore(snap Snapshot) *SensoryFilter {
	f := New(snap.Config)
	f.x = vecmath.FitDim(snap.X, snap.Config.StateDim)
	f.p = snap.P.Clone()
	f.h = snap.H.Clone()
	f.q = snap.Q.Clone()
	f.initialized = snap.Initialized
	return f
}

// #endregion snapshot
