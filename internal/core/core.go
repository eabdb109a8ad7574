package core

import (
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/danielpatrickdp/cognitive-core/internal/attention"
	"github.com/danielpatrickdp/cognitive-core/internal/cortex"
	"github.com/danielpatrickdp/cognitive-core/internal/decision"
	"github.com/danielpatrickdp/cognitive-core/internal/filter"
	"github.com/danielpatrickdp/cognitive-core/internal/homeostasis"
	"github.com/danielpatrickdp/cognitive-core/internal/memory"
	"github.com/danielpatrickdp/cognitive-core/internal/vecmath"
	"github.com/danielpatrickdp/cognitive-core/internal/wm"
)

// #region config

// Governance holds the thresholds that gate the safe-mode flag and the
// execution mode. The Core only reports; acting on the flags is the
// caller's business.
type Governance struct {
	MinConfidence    float64
	MaxSurprise      float64
	MaxRisk          float64
	MaxActionNorm    float64 // hard ceiling on candidate action magnitude
	ConsistencyFloor float64 // minimum state/action consistency
}

// DefaultGovernance returns the standard governance thresholds.
func DefaultGovernance() Governance {
	return Governance{
		MinConfidence:    0.5,
		MaxSurprise:      3.0,
		MaxRisk:          0.7,
		MaxActionNorm:    3.0,
		ConsistencyFloor: 0.7,
	}
}

// Config composes every component configuration.
type Config struct {
	Filter     filter.Config
	Attention  attention.Config
	Cortex     cortex.Config
	WM         wm.Config
	Value      decision.ValueConfig
	Matrix     decision.MatrixConfig
	Memory     memory.Config
	Governance Governance

	RetrieveTopK int
	Logger       *log.Logger
}

// DefaultConfig returns the standard core configuration: 384-dim
// observations, 128-dim latent state, 64-dim working memory, 32-dim
// actions.
func DefaultConfig() Config {
	return Config{
		Filter:       filter.DefaultConfig(),
		Attention:    attention.DefaultConfig(384),
		Cortex:       cortex.DefaultConfig(),
		WM:           wm.DefaultConfig(),
		Value:        decision.DefaultValueConfig(),
		Matrix:       decision.DefaultMatrixConfig(),
		Memory:       memory.DefaultConfig(),
		Governance:   DefaultGovernance(),
		RetrieveTopK: 3,
	}
}

// #endregion config

// #region core

// Core is one cognitive control instance. It owns all mutable state
// exclusively and is single-threaded within a tick: each component
// updates once per tick in fixed dependency order. Run the sleep cycle
// out-of-band; the memory store serializes it against tick access.
type Core struct {
	config Config

	filter    *filter.SensoryFilter
	attention *attention.Mechanism
	cortex    *cortex.State
	wm        *wm.Buffer
	estimator *decision.Estimator
	matrix    *decision.Matrix
	homeostat *homeostasis.System
	memory    *memory.Store

	tick        int
	priorAction []float64
	performance float64 // EMA of normalized reward
}

// New creates a core with fresh component state.
func New(config Config) *Core {
	return &Core{
		config:    config,
		filter:    filter.New(config.Filter),
		attention: attention.New(config.Attention),
		cortex:    cortex.New(config.Cortex),
		wm:        wm.New(config.WM),
		estimator: decision.NewEstimator(config.Value),
		matrix:    decision.NewMatrix(config.Matrix, nil),
		homeostat: homeostasis.NewSystem(),
		memory:    memory.NewStore(config.Memory),
	}
}

// Memory exposes the long-term store for out-of-band inspection.
func (c *Core) Memory() *memory.Store {
	return c.memory
}

// #endregion core

// #region tick-io

// TickInput is everything the caller provides for one tick.
type TickInput struct {
	Observation []float64                  `json:"observation"`
	PriorAction []float64                  `json:"prior_action,omitempty"`
	Candidates  []decision.ActionCandidate `json:"candidates,omitempty"`
	Relevance   []float64                  `json:"relevance,omitempty"` // optional task-relevance vector
	Reward      *float64                   `json:"reward,omitempty"`    // optional scalar reward for the prior action
	EnvRisk     float64                    `json:"env_risk,omitempty"`  // external risk signal in [0,1]
}

// TickOutput is the full tick record returned to the caller.
type TickOutput struct {
	Tick int `json:"tick"`

	Decision         *decision.Result `json:"decision,omitempty"`
	NoValidCandidate bool             `json:"no_valid_candidate"`

	Surprise   float64 `json:"surprise"`
	Confidence float64 `json:"confidence"`
	SafeMode   bool    `json:"safe_mode"`

	ExecutionMode ExecutionMode `json:"execution_mode"`
	Issues        []string      `json:"issues,omitempty"`
	RevisedVector []float64     `json:"revised_vector,omitempty"` // corrected action when the mode is revised

	FilterDegraded    bool    `json:"filter_degraded"`
	FilterUncertainty float64 `json:"filter_uncertainty"`

	Latent    cortex.Metrics     `json:"latent"`
	Stability float64            `json:"stability"`
	Attention attention.Metrics  `json:"attention"`
	WM        wm.Metrics         `json:"wm"`
	Params    homeostasis.Params `json:"params"`
}

// #endregion tick-io

// #region tick

// Tick runs one full perception→decision cycle. It never returns an
// error: every internal failure degrades to a safe default and shows up
// in the output flags instead of aborting the loop.
func (c *Core) Tick(in TickInput) TickOutput {
	c.tick++
	out := TickOutput{Tick: c.tick}

	// 1. Predict the incoming observation from the prior latent state,
	// then filter the real one. The caller's prior action wins over the
	// remembered one.
	prior := in.PriorAction
	if prior == nil {
		prior = c.priorAction
	}
	predicted := c.cortex.PredictNext(prior)
	c.filter.Predict()
	fres := c.filter.Update(in.Observation)
	c.filter.AdaptNoise(fres.InnovationNorm)
	out.FilterDegraded = fres.Degraded
	out.FilterUncertainty = fres.Uncertainty

	// 2. Prediction error drives attention.
	delta, surprise := cortex.ComputeSurprise(fres.Filtered, predicted)
	out.Surprise = surprise
	params := c.homeostat.Params()
	c.cortex.AdaptDecoder(fres.Filtered, params.LearningRate)
	alpha, attMetrics := c.attention.Compute(delta, in.Relevance)
	out.Attention = attMetrics

	// 3. Latent update consumes last tick's working memory, then the
	// buffer takes the fresh latent plus retrieved long-term content.
	wPrev := c.wm.W()
	z, latentMetrics := c.cortex.Update(fres.Filtered, alpha, wPrev)
	out.Latent = latentMetrics
	out.Stability = c.cortex.SpectralRadius()

	retrieved := c.retrieve(z, params.GateThreshold)
	_, wmMetrics := c.wm.Update(z, retrieved, in.Relevance)
	out.WM = wmMetrics

	// 4. Reward bookkeeping feeds the performance measure.
	if in.Reward != nil {
		c.estimator.ObserveReward(*in.Reward)
		normalized := vecmath.Clamp01(0.5 + 0.25*c.estimator.NormalizeReward(*in.Reward))
		c.performance = 0.9*c.performance + 0.1*normalized
		c.matrix.AdaptCriteria(c.performance)
	}

	// 5. Homeostatic regulation, then push the regulated parameters
	// into the components that consume them.
	out.Params = c.homeostat.UpdateAll(homeostasis.Measurements{
		Surprise:    surprise,
		Stability:   out.Stability,
		Focus:       attMetrics.FocusIndex,
		WMLoad:      wmMetrics.Load,
		Performance: c.performance,
	}, 1.0)
	c.attention.SetLambda(out.Params.AttentionLambda)
	c.estimator.SetRiskAversion(out.Params.RiskAversion)

	// 6. Decide.
	candidates := in.Candidates
	if len(candidates) == 0 {
		candidates = DefaultCandidates(out.Params, c.config.Value.ActionDim)
	}
	ctx := decision.Context{Latent: z, EnvRisk: in.EnvRisk}
	valuations := c.estimator.ValueAll(candidates, ctx)
	hard := []decision.HardConstraint{{
		Name: "action-magnitude",
		Violated: func(cand decision.ActionCandidate, _ decision.Valuation) bool {
			return vecmath.Norm(cand.Vector) > c.config.Governance.MaxActionNorm
		},
	}}
	result, err := c.matrix.Decide(candidates, valuations, hard, nil)
	switch {
	case errors.Is(err, decision.ErrNoValidCandidate):
		out.NoValidCandidate = true
		if c.config.Logger != nil {
			c.config.Logger.Printf("[CORE] tick %d: no valid candidate", c.tick)
		}
	case err == nil:
		out.Decision = &result
		c.priorAction = result.Selected.Vector
	}

	// 7. Remember the tick and derive the governance flags.
	reward := 0.0
	if in.Reward != nil {
		reward = *in.Reward
	}
	tags := []string{"tick"}
	if out.Decision != nil {
		tags = append(tags, out.Decision.Selected.Kind)
	}
	c.memory.Record(fres.Filtered, tags, reward)

	out.Confidence = c.confidence(surprise)
	mode, issues, revised := c.audit(z, out)
	out.ExecutionMode = mode
	out.Issues = issues
	out.RevisedVector = revised
	out.SafeMode = mode == ModeSafe || c.safeMode(out)
	if out.SafeMode {
		out.ExecutionMode = ModeSafe
	}
	return out
}

// retrieve maps long-term hits into working-memory items. The gate
// threshold doubles as the similarity floor: the tighter the homeostat
// holds the gate, the stronger a memory must match to enter the buffer.
func (c *Core) retrieve(z []float64, minSimilarity float64) []wm.RetrievedItem {
	hits := c.memory.Retrieve(z, c.config.RetrieveTopK, minSimilarity)
	items := make([]wm.RetrievedItem, len(hits))
	for i, h := range hits {
		items[i] = wm.RetrievedItem{Vector: h.Vector, Score: h.Similarity}
	}
	return items
}

// confidence maps surprise through 1 − tanh(surprise / maxSurprise).
func (c *Core) confidence(surprise float64) float64 {
	return 1 - math.Tanh(surprise/c.config.Governance.MaxSurprise)
}

func (c *Core) safeMode(out TickOutput) bool {
	g := c.config.Governance
	if out.Confidence < g.MinConfidence || out.Surprise > g.MaxSurprise {
		return true
	}
	if out.Decision != nil && out.Decision.Valuation.MIEM.Risk > g.MaxRisk {
		return true
	}
	return out.NoValidCandidate
}

// #endregion tick

// #region execution-mode

// ExecutionMode is the staged verdict on the selected action.
type ExecutionMode string

const (
	ModeApproved            ExecutionMode = "approved"
	ModeApprovedWithWarning ExecutionMode = "approved_with_warning"
	ModeRevised             ExecutionMode = "revised"
	ModeSafe                ExecutionMode = "safe_mode"
)

// audit resolves the execution mode for the selected action: clean and
// confident → approved, a single issue with acceptable confidence →
// approved with warning, a correctable pair → revised with a shrunken
// action, anything worse → safe mode.
func (c *Core) audit(z []float64, out TickOutput) (ExecutionMode, []string, []float64) {
	g := c.config.Governance
	if out.Decision == nil {
		return ModeSafe, []string{"no valid candidate"}, nil
	}
	action := out.Decision.Selected.Vector

	var issues []string
	if out.Surprise > g.MaxSurprise {
		issues = append(issues, fmt.Sprintf("surprise %.3f exceeds %.3f", out.Surprise, g.MaxSurprise))
	}
	risk := out.Decision.Valuation.MIEM.Risk
	if risk > g.MaxRisk {
		issues = append(issues, fmt.Sprintf("risk %.3f exceeds %.3f", risk, g.MaxRisk))
	}
	cons := consistency(z, action)
	if cons < g.ConsistencyFloor {
		issues = append(issues, fmt.Sprintf("state/action consistency %.3f below %.3f", cons, g.ConsistencyFloor))
	}

	magnitudeOK := 1 - math.Tanh(vecmath.Norm(action)/5.0)
	composite := 0.3*(1-math.Tanh(out.Surprise/g.MaxSurprise)) +
		0.3*(1-risk) + 0.3*cons + 0.1*magnitudeOK

	switch {
	case len(issues) == 0 && composite >= g.MinConfidence:
		return ModeApproved, nil, nil
	case len(issues) <= 1 && composite >= 0.8*g.MinConfidence:
		return ModeApprovedWithWarning, issues, nil
	case len(issues) <= 2 && composite >= 0.5*g.MinConfidence:
		return ModeRevised, issues, reviseAction(action, risk, out.Surprise, g)
	default:
		return ModeSafe, issues, nil
	}
}

// consistency compares state and action magnitudes: small states should
// produce small actions. 1 = aligned, toward 0 = contradiction.
func consistency(z, action []float64) float64 {
	zn := vecmath.Norm(z) + 1e-9
	an := vecmath.Norm(action) + 1e-9
	ratio := math.Min(an/zn, zn/an)
	return vecmath.Clamp01(math.Exp(-math.Abs(math.Log(ratio + 1e-9))))
}

// reviseAction shrinks a problematic action instead of discarding it:
// scale down for excess risk, damp under high surprise, clip extremes.
func reviseAction(action []float64, risk, surprise float64, g Governance) []float64 {
	out := append([]float64(nil), action...)
	if risk > g.MaxRisk {
		scale := g.MaxRisk / (risk + 1e-9)
		for i := range out {
			out[i] *= scale
		}
	}
	if surprise > g.MaxSurprise {
		for i := range out {
			out[i] *= 0.5
		}
	}
	for i := range out {
		out[i] = vecmath.Clamp(out[i], -g.MaxActionNorm, g.MaxActionNorm)
	}
	return out
}

// RunSleepCycle triggers the out-of-band consolidation job. The Core
// never self-schedules it.
func (c *Core) RunSleepCycle(force bool) memory.SleepSummary {
	return c.memory.RunSleepCycle(force)
}

// #endregion execution-mode

// #region candidates

// DefaultCandidates synthesizes a minimal action set when the caller
// offers none: explore scaled by the regulated exploration drive,
// a small corrective adjustment, and a guaranteed-valid wait.
func DefaultCandidates(params homeostasis.Params, actionDim int) []decision.ActionCandidate {
	explore := make([]float64, actionDim)
	for i := range explore {
		explore[i] = params.Exploration * 0.1 * math.Sin(float64(i+1))
	}
	adjust := make([]float64, actionDim)
	if actionDim > 0 {
		adjust[0] = params.LearningRate
	}
	return []decision.ActionCandidate{
		{ID: "default-explore", Kind: "explore", Vector: explore, Complexity: 0.3, Resources: 0.2},
		{ID: "default-adjust", Kind: "adjust", Vector: adjust, Complexity: 0.1, Resources: 0.1},
		{ID: "default-wait", Kind: "wait", Vector: make([]float64, actionDim), Complexity: 0, Resources: 0},
	}
}

// #endregion candidates
