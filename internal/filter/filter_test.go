package filter

import (
	"math"
	"math/rand"
	"testing"
)

func smallConfig() Config {
	return Config{StateDim: 4, ObsDim: 4, ProcessNoise: 0.01, MeasurementNoise: 0.09, Seed: 1}
}

func TestFirstObservationInitializesDirectly(t *testing.T) {
	f := New(smallConfig())

	obs := []float64{1.0, -0.5, 0.25, 2.0}
	f.Predict()
	res := f.Update(obs)

	for i := range obs {
		if res.Filtered[i] != obs[i] {
			t.Fatalf("first observation should pass through, got %v", res.Filtered)
		}
	}
	if res.Degraded {
		t.Fatal("first observation must not be degraded")
	}
}

func TestFilterConvergesOnStationarySignal(t *testing.T) {
	f := New(smallConfig())
	rng := rand.New(rand.NewSource(42))

	truth := []float64{0.8, -0.3, 0.5, 0.1}
	noisy := func() []float64 {
		obs := make([]float64, len(truth))
		for i := range truth {
			obs[i] = truth[i] + rng.NormFloat64()*0.3
		}
		return obs
	}

	// Warm-up, then measure error over two halves of a run.
	var firstHalf, secondHalf float64
	for i := 0; i < 100; i++ {
		f.Predict()
		res := f.Update(noisy())
		f.AdaptNoise(res.InnovationNorm)

		var errSq float64
		for j := range truth {
			d := res.Filtered[j] - truth[j]
			errSq += d * d
		}
		if i < 50 {
			firstHalf += errSq
		} else {
			secondHalf += errSq
		}
	}

	if secondHalf >= firstHalf {
		t.Fatalf("filter did not converge: first-half error %f, second-half %f", firstHalf, secondHalf)
	}
}

func TestUncertaintyDecreases(t *testing.T) {
	f := New(smallConfig())
	f.Predict()
	f.Update([]float64{1, 1, 1, 1})

	before := f.Uncertainty()
	for i := 0; i < 20; i++ {
		f.Predict()
		f.Update([]float64{1, 1, 1, 1})
	}
	after := f.Uncertainty()

	if after >= before {
		t.Fatalf("uncertainty should shrink with consistent observations: %f → %f", before, after)
	}
}

func TestObservationDimensionAdjusted(t *testing.T) {
	f := New(smallConfig())
	f.Predict()
	f.Update([]float64{1, 1, 1, 1})

	// Short observation is zero-padded, long one truncated.
	f.Predict()
	short := f.Update([]float64{1, 1})
	if len(short.Filtered) != 4 {
		t.Fatalf("short observation: filtered len = %d, want 4", len(short.Filtered))
	}

	f.Predict()
	long := f.Update([]float64{1, 1, 1, 1, 9, 9})
	if len(long.Filtered) != 4 {
		t.Fatalf("long observation: filtered len = %d, want 4", len(long.Filtered))
	}
}

func TestAdaptNoiseStaysClamped(t *testing.T) {
	f := New(smallConfig())

	for i := 0; i < 500; i++ {
		f.AdaptNoise(10.0)
	}
	for i := range f.q.Data {
		if f.q.Data[i] > 1.0 {
			t.Fatalf("Q exceeded upper clamp: %f", f.q.Data[i])
		}
	}

	for i := 0; i < 5000; i++ {
		f.AdaptNoise(0.0)
	}
	for i := 0; i < f.q.Rows; i++ {
		if f.q.At(i, i) < 1e-4 {
			t.Fatalf("Q fell below lower clamp: %g", f.q.At(i, i))
		}
	}
}

func TestWideObservationProjects(t *testing.T) {
	cfg := Config{StateDim: 3, ObsDim: 8, ProcessNoise: 0.01, MeasurementNoise: 0.1, Seed: 3}
	f := New(cfg)

	obs := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	f.Predict()
	res := f.Update(obs)
	if len(res.Filtered) != 8 {
		t.Fatalf("filtered len = %d, want 8", len(res.Filtered))
	}

	// Second update exercises the full gain path.
	f.Predict()
	res = f.Update(obs)
	if res.Degraded {
		t.Fatal("well-conditioned update flagged degraded")
	}
	for _, v := range res.Filtered {
		if math.IsNaN(v) {
			t.Fatal("NaN in filtered output")
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	f := New(smallConfig())
	obs := []float64{0.5, 0.5, -0.5, 1.5}
	for i := 0; i < 5; i++ {
		f.Predict()
		f.Update(obs)
	}

	restored := Restore(f.Snapshot())

	f.Predict()
	restored.Predict()
	a := f.Update(obs)
	b := restored.Update(obs)

	for i := range a.Filtered {
		if math.Abs(a.Filtered[i]-b.Filtered[i]) > 1e-12 {
			t.Fatalf("restored filter diverged at dim %d: %f vs %f", i, a.Filtered[i], b.Filtered[i])
		}
	}
}
