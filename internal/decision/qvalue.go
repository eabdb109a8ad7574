package decision

import (
	"math"
	"math/rand"

	"github.com/danielpatrickdp/cognitive-core/internal/vecmath"
)

// #region reward-model

// RewardModel predicts the expected reward of taking an action from a
// latent state. The engine falls back to its internal scoring network
// when no model is installed.
type RewardModel interface {
	ExpectedReward(latent, action []float64) float64
}

// #endregion reward-model

// #region config

// ValueConfig holds the value estimation parameters. The weight triples
// are preserved source defaults, configurable rather than invariant.
type ValueConfig struct {
	LatentDim int
	ActionDim int
	HiddenDim int

	RiskAversion float64 // homeostat-owned at runtime

	CostMagnitudeWeight  float64
	CostComplexityWeight float64
	CostResourcesWeight  float64

	RiskActionWeight float64
	RiskStateWeight  float64
	RiskEnvWeight    float64

	RewardHistorySize int
	Seed              int64
}

// DefaultValueConfig returns the standard value estimation configuration.
func DefaultValueConfig() ValueConfig {
	return ValueConfig{
		LatentDim:            128,
		ActionDim:            32,
		HiddenDim:            64,
		RiskAversion:         0.5,
		CostMagnitudeWeight:  0.5,
		CostComplexityWeight: 0.3,
		CostResourcesWeight:  0.2,
		RiskActionWeight:     0.4,
		RiskStateWeight:      0.4,
		RiskEnvWeight:        0.2,
		RewardHistorySize:    100,
		Seed:                 1,
	}
}

// #endregion config

// #region estimator

// Estimator scores candidates: Q = E[reward|z,a] − cost(a) − riskAversion·risk.
type Estimator struct {
	config ValueConfig
	model  RewardModel

	// Internal two-branch scoring network, used when no reward model is
	// installed: h = tanh(Ws·z + Wa·a + b), reward = tanh(v·h).
	wState  vecmath.Matrix
	wAction vecmath.Matrix
	hBias   []float64
	vOut    []float64

	rewardHistory []float64
}

// NewEstimator creates a value estimator with seeded network weights.
func NewEstimator(config ValueConfig) *Estimator {
	rng := rand.New(rand.NewSource(config.Seed))
	vOut := make([]float64, config.HiddenDim)
	scale := 1.0 / math.Sqrt(float64(config.HiddenDim))
	for i := range vOut {
		vOut[i] = (rng.Float64()*2 - 1) * scale
	}
	return &Estimator{
		config:  config,
		wState:  vecmath.XavierUniform(config.HiddenDim, config.LatentDim, rng),
		wAction: vecmath.XavierUniform(config.HiddenDim, config.ActionDim, rng),
		hBias:   make([]float64, config.HiddenDim),
		vOut:    vOut,
	}
}

// SetRewardModel installs an external reward model; nil reverts to the
// internal network.
func (e *Estimator) SetRewardModel(model RewardModel) {
	e.model = model
}

// SetRiskAversion installs the homeostat's current risk aversion.
func (e *Estimator) SetRiskAversion(r float64) {
	e.config.RiskAversion = vecmath.Clamp01(r)
}

// #endregion estimator

// #region valuation

// Context carries the tick-local inputs shared by all candidates.
type Context struct {
	Latent  []float64
	EnvRisk float64 // external risk signal in [0,1], 0 when absent
}

// Value scores one candidate.
func (e *Estimator) Value(candidate ActionCandidate, ctx Context) Valuation {
	reward := e.expectedReward(ctx.Latent, candidate.Vector)
	cost := e.cost(candidate)
	miem := e.miem(candidate, ctx)

	return Valuation{
		CandidateID: candidate.ID,
		Q:           reward - cost - e.config.RiskAversion*miem.Risk,
		Reward:      reward,
		Cost:        cost,
		MIEM:        miem,
	}
}

// ValueAll scores every candidate against the same context.
func (e *Estimator) ValueAll(candidates []ActionCandidate, ctx Context) []Valuation {
	out := make([]Valuation, len(candidates))
	for i, c := range candidates {
		out[i] = e.Value(c, ctx)
	}
	return out
}

func (e *Estimator) expectedReward(latent, action []float64) float64 {
	if e.model != nil {
		return e.model.ExpectedReward(latent, action)
	}
	hS := e.wState.MulVec(vecmath.FitDim(latent, e.config.LatentDim))
	hA := e.wAction.MulVec(vecmath.FitDim(action, e.config.ActionDim))

	var out float64
	for i := 0; i < e.config.HiddenDim; i++ {
		out += e.vOut[i] * math.Tanh(hS[i]+hA[i]+e.hBias[i])
	}
	return math.Tanh(out)
}

// cost blends normalized action magnitude with the candidate's declared
// complexity and resource usage.
func (e *Estimator) cost(c ActionCandidate) float64 {
	mag := math.Tanh(vecmath.Norm(c.Vector) / 10.0)
	return e.config.CostMagnitudeWeight*mag +
		e.config.CostComplexityWeight*vecmath.Clamp01(c.Complexity) +
		e.config.CostResourcesWeight*vecmath.Clamp01(c.Resources)
}

// miem derives the four-part decomposition deterministically from the
// action magnitude, the projected state impact, and action sparsity.
func (e *Estimator) miem(c ActionCandidate, ctx Context) MIEM {
	actionMag := vecmath.Norm(c.Vector)
	n := float64(len(ctx.Latent))
	if n == 0 {
		n = 1
	}
	stateMag := vecmath.Norm(ctx.Latent) / math.Sqrt(n)

	risk := e.config.RiskActionWeight*math.Tanh(actionMag/10.0) +
		e.config.RiskStateWeight*math.Tanh(stateMag) +
		e.config.RiskEnvWeight*vecmath.Clamp01(ctx.EnvRisk)

	return MIEM{
		Efficiency: vecmath.Clamp01(1 - 0.5*vecmath.Clamp01(c.Complexity) - 0.5*vecmath.Clamp01(c.Resources)),
		Impact:     math.Tanh(actionMag * (1 + stateMag) / 10.0),
		Modularity: vecmath.Sparsity(c.Vector),
		Risk:       vecmath.Clamp01(risk),
	}
}

// #endregion valuation

// #region reward-history

// ObserveReward records an external reward signal for normalization.
func (e *Estimator) ObserveReward(reward float64) {
	e.rewardHistory = append(e.rewardHistory, reward)
	if len(e.rewardHistory) > e.config.RewardHistorySize {
		e.rewardHistory = e.rewardHistory[1:]
	}
}

// NormalizeReward centers a raw reward against the observed history.
// With fewer than two observations the raw value passes through.
func (e *Estimator) NormalizeReward(reward float64) float64 {
	if len(e.rewardHistory) < 2 {
		return reward
	}
	mean := vecmath.Mean(e.rewardHistory)
	std := vecmath.Std(e.rewardHistory)
	return (reward - mean) / (std + 1e-9)
}

// #endregion reward-history
