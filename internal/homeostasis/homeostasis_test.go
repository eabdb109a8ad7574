package homeostasis

import (
	"math"
	"testing"
)

func testLoopConfig() LoopConfig {
	return LoopConfig{
		Name: "test", Kp: 0.5, Ki: 0.1, Kd: 0.05,
		Setpoint: 1.0, OutputMin: 0.0, OutputMax: 2.0, IntegralClamp: 10,
	}
}

func TestLoopDrivesTowardSetpoint(t *testing.T) {
	l := NewLoop(testLoopConfig())

	// Measurement below the setpoint: positive error, positive output.
	out := l.Update(0.2, 1.0)
	if out <= 0 {
		t.Fatalf("positive error should yield positive output, got %f", out)
	}

	// Measurement above the setpoint pushes the output back down.
	for i := 0; i < 20; i++ {
		l.Update(2.0, 1.0)
	}
	if l.Output() > out {
		t.Fatalf("sustained negative error should lower the output: %f → %f", out, l.Output())
	}
}

func TestLoopOutputClipped(t *testing.T) {
	l := NewLoop(testLoopConfig())
	for i := 0; i < 100; i++ {
		if out := l.Update(-100, 1.0); out > 2.0 {
			t.Fatalf("output %f exceeds max 2.0", out)
		}
	}
	l.Reset()
	for i := 0; i < 100; i++ {
		if out := l.Update(100, 1.0); out < 0.0 {
			t.Fatalf("output %f below min 0.0", out)
		}
	}
}

func TestIntegralAntiWindup(t *testing.T) {
	l := NewLoop(testLoopConfig())
	for i := 0; i < 1000; i++ {
		l.Update(-50, 1.0)
	}
	if math.Abs(l.integral) > 10 {
		t.Fatalf("integral %f exceeds anti-windup clamp ±10", l.integral)
	}

	// After the windup, recovery must not take hundreds of steps.
	steps := 0
	for l.Output() > 1.0 && steps < 50 {
		l.Update(10, 1.0)
		steps++
	}
	if steps >= 50 {
		t.Fatal("clamped integral should allow the loop to recover quickly")
	}
}

func TestSettledFlag(t *testing.T) {
	l := NewLoop(testLoopConfig())

	if l.Stats().Settled {
		t.Fatal("a fresh loop must not report settled")
	}

	for i := 0; i < 20; i++ {
		l.Update(1.0, 1.0) // exactly on setpoint
	}
	if !l.Stats().Settled {
		t.Fatal("constant zero error should settle the loop")
	}

	// Oscillating measurements unsettle it again.
	for i := 0; i < 20; i++ {
		m := 0.0
		if i%2 == 0 {
			m = 2.0
		}
		l.Update(m, 1.0)
	}
	if l.Stats().Settled {
		t.Fatalf("oscillation should unsettle the loop, stddev=%f", l.Stats().StdError)
	}
}

func TestSystemOutputsWithinRanges(t *testing.T) {
	s := NewSystem()

	m := Measurements{Surprise: 5, Stability: 0.9, Focus: 0.2, WMLoad: 0.8, Performance: 0.4}
	for i := 0; i < 50; i++ {
		p := s.UpdateAll(m, 1.0)
		checks := []struct {
			name      string
			v, lo, hi float64
		}{
			{"exploration", p.Exploration, 0.1, 2.0},
			{"learning_rate", p.LearningRate, 0.001, 0.1},
			{"attention_lambda", p.AttentionLambda, 0.1, 5.0},
			{"gate_threshold", p.GateThreshold, 0.2, 0.9},
			{"risk_aversion", p.RiskAversion, 0.0, 1.0},
		}
		for _, c := range checks {
			if c.v < c.lo || c.v > c.hi {
				t.Fatalf("tick %d: %s = %f outside [%f, %f]", i, c.name, c.v, c.lo, c.hi)
			}
		}
	}
}

func TestAdaptToContext(t *testing.T) {
	s := NewSystem()

	if err := s.AdaptToContext(ModeEmergency); err != nil {
		t.Fatalf("adapt: %v", err)
	}
	if s.Mode() != ModeEmergency {
		t.Fatalf("mode = %s, want emergency", s.Mode())
	}
	if sp := s.exploration.Setpoint(); sp != 0.1 {
		t.Fatalf("emergency exploration setpoint = %f, want 0.1", sp)
	}
	if sp := s.risk.Setpoint(); sp != 0.95 {
		t.Fatalf("emergency risk setpoint = %f, want 0.95", sp)
	}

	if err := s.AdaptToContext(ModeExploration); err != nil {
		t.Fatalf("adapt: %v", err)
	}
	if sp := s.exploration.Setpoint(); sp != 2.0 {
		t.Fatalf("exploration setpoint = %f, want 2.0", sp)
	}
	// Exploration mode leaves the learning-rate target untouched.
	if sp := s.learningRate.Setpoint(); sp != 0.7 {
		t.Fatalf("learning-rate setpoint moved to %f, want 0.7", sp)
	}

	if err := s.AdaptToContext(Mode("panic")); err == nil {
		t.Fatal("unknown mode should be rejected")
	}
}

func TestEmergencyPushesRiskUp(t *testing.T) {
	s := NewSystem()
	s.AdaptToContext(ModeEmergency)

	m := Measurements{Surprise: 1, Stability: 0.5, Focus: 0.5, WMLoad: 0.5, Performance: 0.5}
	var p Params
	for i := 0; i < 30; i++ {
		p = s.UpdateAll(m, 1.0)
	}
	if p.RiskAversion < 0.8 {
		t.Fatalf("emergency mode should drive risk aversion high, got %f", p.RiskAversion)
	}
	if p.Exploration > 0.5 {
		t.Fatalf("emergency mode should suppress exploration, got %f", p.Exploration)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := NewSystem()
	m := Measurements{Surprise: 2, Stability: 0.7, Focus: 0.3, WMLoad: 0.6, Performance: 0.5}
	for i := 0; i < 10; i++ {
		s.UpdateAll(m, 1.0)
	}
	s.AdaptToContext(ModeExploitation)

	restored := Restore(s.Snapshot())
	if restored.Mode() != ModeExploitation {
		t.Fatalf("mode lost: %s", restored.Mode())
	}

	p1 := s.UpdateAll(m, 1.0)
	p2 := restored.UpdateAll(m, 1.0)
	if p1 != p2 {
		t.Fatalf("restored controller diverged: %+v vs %+v", p1, p2)
	}
}
