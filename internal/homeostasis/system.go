package homeostasis

import (
	"fmt"
	"math"
)

// #region modes

// Mode names an operating regime that retargets several setpoints at once.
type Mode string

const (
	ModeLearning     Mode = "learning"
	ModeExploitation Mode = "exploitation"
	ModeExploration  Mode = "exploration"
	ModeEmergency    Mode = "emergency"
)

// #endregion modes

// #region system

// Params are the five regulated meta-parameters, one per loop.
type Params struct {
	Exploration     float64 `json:"exploration"`
	LearningRate    float64 `json:"learning_rate"`
	AttentionLambda float64 `json:"attention_lambda"`
	GateThreshold   float64 `json:"gate_threshold"`
	RiskAversion    float64 `json:"risk_aversion"`
}

// System runs the five independent PID loops. Gains and ranges are the
// tuned operating defaults; each loop regulates exactly one parameter.
type System struct {
	exploration  *Loop
	learningRate *Loop
	attention    *Loop
	gate         *Loop
	risk         *Loop

	mode Mode
}

// NewSystem creates the controller with its standard gain table.
func NewSystem() *System {
	return &System{
		exploration: NewLoop(LoopConfig{
			Name: "exploration", Kp: 0.4, Ki: 0.05, Kd: 0.15,
			Setpoint: 1.0, OutputMin: 0.1, OutputMax: 2.0, IntegralClamp: 10,
		}),
		learningRate: NewLoop(LoopConfig{
			Name: "learning_rate", Kp: 0.3, Ki: 0.02, Kd: 0.1,
			Setpoint: 0.7, OutputMin: 0.001, OutputMax: 0.1, IntegralClamp: 10,
		}),
		attention: NewLoop(LoopConfig{
			Name: "attention_lambda", Kp: 0.5, Ki: 0.1, Kd: 0.2,
			Setpoint: 0.6, OutputMin: 0.1, OutputMax: 5.0, IntegralClamp: 10,
		}),
		gate: NewLoop(LoopConfig{
			Name: "gate_threshold", Kp: 0.3, Ki: 0.05, Kd: 0.1,
			Setpoint: 0.5, OutputMin: 0.2, OutputMax: 0.9, IntegralClamp: 10,
		}),
		risk: NewLoop(LoopConfig{
			Name: "risk_aversion", Kp: 0.4, Ki: 0.08, Kd: 0.15,
			Setpoint: 0.7, OutputMin: 0.0, OutputMax: 1.0, IntegralClamp: 10,
		}),
		mode: ModeLearning,
	}
}

// Measurements are the per-tick observations each loop regulates
// against. Surprise is squashed before feeding the exploration loop so
// unbounded prediction error cannot wind up the integral.
type Measurements struct {
	Surprise    float64 // raw ‖δ‖², any magnitude
	Stability   float64 // spectral radius of the recurrent weights
	Focus       float64 // attention focus index in [0,1]
	WMLoad      float64 // working memory load in [0,1]
	Performance float64 // recent task performance in [0,1]
}

// UpdateAll advances all five loops for one tick and returns the
// regulated parameter values.
func (s *System) UpdateAll(m Measurements, dt float64) Params {
	return Params{
		Exploration:     s.exploration.Update(math.Tanh(m.Surprise/2), dt),
		LearningRate:    s.learningRate.Update(m.Performance, dt),
		AttentionLambda: s.attention.Update(m.Focus, dt),
		GateThreshold:   s.gate.Update(m.WMLoad, dt),
		RiskAversion:    s.risk.Update(m.Stability, dt),
	}
}

// Params returns the loops' current outputs without advancing them.
func (s *System) Params() Params {
	return Params{
		Exploration:     s.exploration.Output(),
		LearningRate:    s.learningRate.Output(),
		AttentionLambda: s.attention.Output(),
		GateThreshold:   s.gate.Output(),
		RiskAversion:    s.risk.Output(),
	}
}

// Stats reports rolling statistics for every loop.
func (s *System) Stats() []LoopStats {
	return []LoopStats{
		s.exploration.Stats(),
		s.learningRate.Stats(),
		s.attention.Stats(),
		s.gate.Stats(),
		s.risk.Stats(),
	}
}

// Mode reports the current operating regime.
func (s *System) Mode() Mode {
	return s.mode
}

// #endregion system

// #region adapt

// AdaptToContext atomically retargets the setpoints for a named
// operating mode. Emergency drives exploration near zero and risk
// aversion near one; exploration mode does the opposite.
func (s *System) AdaptToContext(mode Mode) error {
	switch mode {
	case ModeLearning:
		s.exploration.SetSetpoint(1.5)
		s.learningRate.SetSetpoint(0.8)
		s.risk.SetSetpoint(0.5)
	case ModeExploitation:
		s.exploration.SetSetpoint(0.5)
		s.learningRate.SetSetpoint(0.3)
		s.risk.SetSetpoint(0.8)
	case ModeExploration:
		s.exploration.SetSetpoint(2.0)
		s.risk.SetSetpoint(0.3)
	case ModeEmergency:
		s.exploration.SetSetpoint(0.1)
		s.risk.SetSetpoint(0.95)
	default:
		return fmt.Errorf("homeostasis: unknown mode %q", mode)
	}
	s.mode = mode
	return nil
}

// #endregion adapt

// #region snapshot

// Snapshot is a plain serializable record of the whole controller.
type Snapshot struct {
	Exploration  LoopSnapshot `json:"exploration"`
	LearningRate LoopSnapshot `json:"learning_rate"`
	Attention    LoopSnapshot `json:"attention"`
	Gate         LoopSnapshot `json:"gate"`
	Risk         LoopSnapshot `json:"risk"`
	Mode         Mode         `json:"mode"`
}

// Snapshot captures all five loops and the operating mode.
func (s *System) Snapshot() Snapshot {
	return Snapshot{
		Exploration:  s.exploration.Snapshot(),
		LearningRate: s.learningRate.Snapshot(),
		Attention:    s.attention.Snapshot(),
		Gate:         s.gate.Snapshot(),
		Risk:         s.risk.Snapshot(),
		Mode:         s.mode,
	}
}

// Restore rebuilds a controller from a snapshot.
func Restore(snap Snapshot) *System {
	return &System{
		exploration:  RestoreLoop(snap.Exploration),
		learningRate: RestoreLoop(snap.LearningRate),
		attention:    RestoreLoop(snap.Attention),
		gate:         RestoreLoop(snap.Gate),
		risk:         RestoreLoop(snap.Risk),
		mode:         snap.Mode,
	}
}

// #endregion snapshot
