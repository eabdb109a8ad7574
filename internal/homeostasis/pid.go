package homeostasis

import (
	"github.com/danielpatrickdp/cognitive-core/internal/vecmath"
)

// #region loop-config

// LoopConfig holds one PID loop's gains and output range.
type LoopConfig struct {
	Name     string
	Kp       float64
	Ki       float64
	Kd       float64
	Setpoint float64

	OutputMin float64
	OutputMax float64

	IntegralClamp   float64 // anti-windup bound on the raw error sum
	SettleWindow    int     // trailing errors inspected for the settled flag
	SettleThreshold float64 // stddev bound below which the loop is settled
}

// #endregion loop-config

// #region loop

// Loop is a single PID regulator: error = setpoint − measurement,
// output = clip(Kp·e + Ki·Σe·dt + Kd·Δe/dt).
type Loop struct {
	config LoopConfig

	integral  float64
	prevError float64
	hasPrev   bool
	output    float64

	errors []float64 // trailing window for rolling stats
}

// NewLoop creates a loop resting at the middle of its output range.
func NewLoop(config LoopConfig) *Loop {
	if config.SettleWindow <= 0 {
		config.SettleWindow = 10
	}
	if config.SettleThreshold <= 0 {
		config.SettleThreshold = 0.1
	}
	return &Loop{
		config: config,
		output: (config.OutputMin + config.OutputMax) / 2,
	}
}

// Update advances the loop one step and returns the clipped output.
// dt must be positive; non-positive values are treated as 1.
func (l *Loop) Update(measurement, dt float64) float64 {
	if dt <= 0 {
		dt = 1
	}
	err := l.config.Setpoint - measurement

	l.integral = vecmath.Clamp(l.integral+err*dt, -l.config.IntegralClamp, l.config.IntegralClamp)

	var derivative float64
	if l.hasPrev {
		derivative = (err - l.prevError) / dt
	}
	l.prevError = err
	l.hasPrev = true

	l.pushError(err)

	raw := l.config.Kp*err + l.config.Ki*l.integral + l.config.Kd*derivative
	l.output = vecmath.Clamp(raw, l.config.OutputMin, l.config.OutputMax)
	return l.output
}

func (l *Loop) pushError(err float64) {
	l.errors = append(l.errors, err)
	if len(l.errors) > l.config.SettleWindow {
		l.errors = l.errors[1:]
	}
}

// Output returns the last clipped output.
func (l *Loop) Output() float64 {
	return l.output
}

// Setpoint returns the current target.
func (l *Loop) Setpoint() float64 {
	return l.config.Setpoint
}

// SetSetpoint retargets the loop without resetting its internal state.
func (l *Loop) SetSetpoint(sp float64) {
	l.config.Setpoint = sp
}

// Reset clears the integral, derivative memory, and error window.
func (l *Loop) Reset() {
	l.integral = 0
	l.prevError = 0
	l.hasPrev = false
	l.errors = nil
	l.output = (l.config.OutputMin + l.config.OutputMax) / 2
}

// #endregion loop

// #region stats

// LoopStats is one loop's rolling error summary.
type LoopStats struct {
	Name      string  `json:"name"`
	MeanError float64 `json:"mean_error"`
	StdError  float64 `json:"std_error"`
	Settled   bool    `json:"settled"`
	Output    float64 `json:"output"`
	Setpoint  float64 `json:"setpoint"`
}

// Stats reports the rolling mean/stddev of the trailing error window
// and whether the loop has settled (full window with low variance).
func (l *Loop) Stats() LoopStats {
	stats := LoopStats{
		Name:     l.config.Name,
		Output:   l.output,
		Setpoint: l.config.Setpoint,
	}
	if len(l.errors) == 0 {
		return stats
	}
	stats.MeanError = vecmath.Mean(l.errors)
	stats.StdError = vecmath.Std(l.errors)
	stats.Settled = len(l.errors) >= l.config.SettleWindow &&
		stats.StdError < l.config.SettleThreshold
	return stats
}

// #endregion stats

// #region snapshot

// LoopSnapshot is a plain serializable record of one loop.
type LoopSnapshot struct {
	Config    LoopConfig `json:"config"`
	Integral  float64    `json:"integral"`
	PrevError float64    `json:"prev_error"`
	HasPrev   bool       `json:"has_prev"`
	Output    float64    `json:"output"`
	Errors    []float64  `json:"errors"`
}

// Snapshot captures the loop state as a plain record.
func (l *Loop) Snapshot() LoopSnapshot {
	return LoopSnapshot{
		Config:    l.config,
		Integral:  l.integral,
		PrevError: l.prevError,
		HasPrev:   l.hasPrev,
		Output:    l.output,
		Errors:    append([]float64(nil), l.errors...),
	}
}

// RestoreLoop rebuilds a loop from a snapshot.
func RestoreLoop(snap LoopSnapshot) *Loop {
	l := NewLoop(snap.Config)
	l.integral = snap.Integral
	l.prevError = snap.PrevError
	l.hasPrev = snap.HasPrev
	l.output = snap.Output
	l.errors = append([]float64(nil), snap.Errors...)
	return l
}

// #endregion snapshot
