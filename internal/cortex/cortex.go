package cortex

import (
	"math"
	"math/rand"

	"github.com/danielpatrickdp/cognitive-core/internal/vecmath"
)

// #region config

// Config holds the latent state dimensions and dynamics parameters.
type Config struct {
	LatentDim   int
	InputDim    int
	WMDim       int
	Activation  Activation
	LeakRate    float64 // 0 = no forgetting, 1 = frozen state
	HistorySize int
	Seed        int64
}

// DefaultConfig returns the standard cortical configuration.
func DefaultConfig() Config {
	return Config{
		LatentDim:   128,
		InputDim:    384,
		WMDim:       64,
		Activation:  ActTanh,
		LeakRate:    0.05,
		HistorySize: 100,
		Seed:        1,
	}
}

// #endregion config

// #region state-struct

// State maintains the recurrent latent vector z and its dynamics.
// It is the only component allowed to mutate z.
type State struct {
	config Config

	z       []float64
	history [][]float64

	wIn  vecmath.Matrix // input → latent
	wRec vecmath.Matrix // latent → latent
	wMem vecmath.Matrix // working memory → latent
	bias []float64

	// Generative readout weights, initialized to the pseudo-inverse of
	// wIn and refined online against observed outcomes.
	decode      vecmath.Matrix
	decodeValid bool
	predZ       []float64 // latent vector behind the last prediction
}

// New creates a latent state with seeded Xavier-uniform weights. The
// recurrent matrix is scaled down so the initial spectral radius sits
// below 1 (contracting dynamics).
func New(config Config) *State {
	rng := rand.New(rand.NewSource(config.Seed))

	wRec := vecmath.XavierUniform(config.LatentDim, config.LatentDim, rng)
	if r := wRec.SpectralRadius(); r >= 1.0 {
		wRec.ScaleInPlace(0.9 / r)
	}

	return &State{
		config: config,
		z:      make([]float64, config.LatentDim),
		wIn:    vecmath.XavierUniform(config.LatentDim, config.InputDim, rng),
		wRec:   wRec,
		wMem:   vecmath.XavierUniform(config.LatentDim, config.WMDim, rng),
		bias:   make([]float64, config.LatentDim),
	}
}

// #endregion state-struct

// #region update

// Metrics summarizes one state update.
type Metrics struct {
	Norm           float64
	Change         float64
	Sparsity       float64
	InputShare     float64 // ‖W_in·(α⊙e)‖ / ‖pre-activation‖
	RecurrentShare float64
}

// Update advances the latent state:
// z ← (1−leak)·φ(W_rec·z + W_in·(α⊙e) + W_mem·w + b) + leak·z
// where e is the L2-normalized, dimension-fitted encoding of the
// filtered observation. alpha and w may be shorter or longer than
// their configured dimensions; both are fitted at the boundary.
func (s *State) Update(filtered, alpha, wm []float64) ([]float64, Metrics) {
	cfg := s.config

	e := vecmath.L2Normalize(vecmath.FitDim(filtered, cfg.InputDim))
	a := vecmath.FitDim(alpha, cfg.InputDim)
	attended := make([]float64, cfg.InputDim)
	for i := range attended {
		attended[i] = a[i] * e[i]
	}

	zRec := s.wRec.MulVec(s.z)
	zInput := s.wIn.MulVec(attended)
	zMem := make([]float64, cfg.LatentDim)
	if wm != nil {
		zMem = s.wMem.MulVec(vecmath.FitDim(wm, cfg.WMDim))
	}

	pre := make([]float64, cfg.LatentDim)
	for i := range pre {
		pre[i] = zRec[i] + zInput[i] + zMem[i] + s.bias[i]
	}
	activated := cfg.Activation.applyVec(pre)

	zNew := make([]float64, cfg.LatentDim)
	for i := range zNew {
		zNew[i] = (1-cfg.LeakRate)*activated[i] + cfg.LeakRate*s.z[i]
	}

	s.pushHistory(s.z)
	var changeSq float64
	for i := range zNew {
		d := zNew[i] - s.z[i]
		changeSq += d * d
	}
	s.z = zNew

	preNorm := vecmath.Norm(pre) + 1e-9
	return s.Z(), Metrics{
		Norm:           vecmath.Norm(zNew),
		Change:         math.Sqrt(changeSq),
		Sparsity:       vecmath.Sparsity(zNew),
		InputShare:     vecmath.Norm(zInput) / preNorm,
		RecurrentShare: vecmath.Norm(zRec) / preNorm,
	}
}

func (s *State) pushHistory(z []float64) {
	snap := make([]float64, len(z))
	copy(snap, z)
	s.history = append(s.history, snap)
	if len(s.history) > s.config.HistorySize {
		s.history = s.history[1:]
	}
}

// #endregion update

// #region prediction

// PredictNext produces a generative readout of the next observation.
// The readout matrix starts as the pseudo-inverse of W_in and is
// refined by AdaptDecoder; the output is optionally scaled by the mean
// of the prior action vector (a crude forward model).
func (s *State) PredictNext(priorAction []float64) []float64 {
	if !s.decodeValid {
		s.decode = s.wIn.PseudoInverse()
		s.decodeValid = true
	}
	s.predZ = s.Z()
	pred := s.decode.MulVec(s.z)
	if len(priorAction) > 0 {
		scale := 1.0 + 0.1*vecmath.Mean(priorAction)
		for i := range pred {
			pred[i] *= scale
		}
	}
	return pred
}

// AdaptDecoder nudges the readout toward the observation that followed
// the last prediction (normalized LMS against the latent vector that
// produced it). lr is the homeostat's regulated learning rate.
func (s *State) AdaptDecoder(observed []float64, lr float64) {
	if !s.decodeValid || len(s.predZ) == 0 {
		return
	}
	zNormSq := 0.0
	for _, v := range s.predZ {
		zNormSq += v * v
	}
	if zNormSq < 1e-9 {
		return
	}

	pred := s.decode.MulVec(s.predZ)
	obs := vecmath.FitDim(observed, s.decode.Rows)
	for i := 0; i < s.decode.Rows; i++ {
		err := obs[i] - pred[i]
		step := lr * err / (zNormSq + 1e-9)
		for j := 0; j < s.decode.Cols; j++ {
			s.decode.Data[i*s.decode.Cols+j] += step * s.predZ[j]
		}
	}
}

// ComputeSurprise returns the elementwise prediction error and its
// squared magnitude, truncated to the shorter of the two vectors.
func ComputeSurprise(observed, predicted []float64) ([]float64, float64) {
	n := len(observed)
	if len(predicted) < n {
		n = len(predicted)
	}
	delta := make([]float64, n)
	var surprise float64
	for i := 0; i < n; i++ {
		delta[i] = observed[i] - predicted[i]
		surprise += delta[i] * delta[i]
	}
	return delta, surprise
}

// #endregion prediction

// #region diagnostics

// SpectralRadius reports the stability diagnostic ρ(W_rec). Values
// below 1 indicate contracting, stable dynamics. Exposed as a health
// metric only; never enforced at runtime.
func (s *State) SpectralRadius() float64 {
	return s.wRec.SpectralRadius()
}

// Z returns a copy of the current latent vector.
func (s *State) Z() []float64 {
	out := make([]float64, len(s.z))
	copy(out, s.z)
	return out
}

// SetZ overwrites the latent vector, fitted to the latent dimension.
func (s *State) SetZ(z []float64) {
	s.z = vecmath.FitDim(z, s.config.LatentDim)
}

// Reset zeroes the latent vector and clears history.
func (s *State) Reset() {
	s.z = make([]float64, s.config.LatentDim)
	s.history = nil
}

// #endregion diagnostics

// #region snapshot

// Snapshot is a plain serializable record of the latent state.
type Snapshot struct {
	Config  Config         `json:"config"`
	Z       []float64      `json:"z"`
	History [][]float64    `json:"history"`
	WIn     vecmath.Matrix `json:"w_in"`
	WRec    vecmath.Matrix `json:"w_rec"`
	WMem    vecmath.Matrix `json:"w_mem"`
	Bias    []float64      `json:"bias"`

	Decode      vecmath.Matrix `json:"decode"`
	DecodeValid bool           `json:"decode_valid"`
}

// Snapshot captures the state, history and weights as plain records.
func (s *State) Snapshot() Snapshot {
	history := make([][]float64, len(s.history))
	for i, h := range s.history {
		history[i] = append([]float64(nil), h...)
	}
	return Snapshot{
		Config:  s.config,
		Z:       s.Z(),
		History: history,
		WIn:     s.wIn.Clone(),
		WRec:    s.wRec.Clone(),
		WMem:    s.wMem.Clone(),
		Bias:    append([]float64(nil), s.bias...),

		Decode:      s.decode.Clone(),
		DecodeValid: s.decodeValid,
	}
}

// Restore rebuilds a latent state from a snapshot.
func Restore(snap Snapshot) *State {
	s := New(snap.Config)
	s.z = vecmath.FitDim(snap.Z, snap.Config.LatentDim)
	s.history = nil
	for _, h := range snap.History {
		s.history = append(s.history, append([]float64(nil), h...))
	}
	s.wIn = snap.WIn.Clone()
	s.wRec = snap.WRec.Clone()
	s.wMem = snap.WMem.Clone()
	s.bias = append([]float64(nil), snap.Bias...)
	if snap.DecodeValid {
		s.decode = snap.Decode.Clone()
		s.decodeValid = true
	}
	return s
}

// #endregion snapshot
