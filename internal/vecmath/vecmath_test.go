package vecmath

import (
	"math"
	"math/rand"
	"testing"
)

func TestSoftmaxSumsToOne(t *testing.T) {
	v := []float64{0.1, 2.5, -1.3, 0.0, 4.2}
	p := Softmax(v)

	var sum float64
	for _, x := range p {
		if x < 0 || x > 1 {
			t.Fatalf("softmax entry %f out of [0,1]", x)
		}
		sum += x
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Fatalf("softmax sum = %f, want 1.0", sum)
	}
}

func TestSoftmaxLargeInputsStable(t *testing.T) {
	p := Softmax([]float64{1000, 1001, 999})
	for _, x := range p {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			t.Fatalf("softmax not numerically stable: %v", p)
		}
	}
}

func TestFitDim(t *testing.T) {
	v := []float64{1, 2, 3}

	padded := FitDim(v, 5)
	if len(padded) != 5 || padded[2] != 3 || padded[4] != 0 {
		t.Fatalf("pad failed: %v", padded)
	}

	truncated := FitDim(v, 2)
	if len(truncated) != 2 || truncated[1] != 2 {
		t.Fatalf("truncate failed: %v", truncated)
	}

	// Mutating the output must not touch the input.
	padded[0] = 99
	if v[0] != 1 {
		t.Fatal("FitDim aliased its input")
	}
}

func TestCosine(t *testing.T) {
	a := []float64{1, 0, 0}
	b := []float64{1, 0, 0}
	if got := Cosine(a, b); math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("identical vectors: cosine = %f, want 1", got)
	}

	c := []float64{0, 1, 0}
	if got := Cosine(a, c); math.Abs(got) > 1e-9 {
		t.Fatalf("orthogonal vectors: cosine = %f, want 0", got)
	}

	if got := Cosine(a, []float64{0, 0, 0}); got != 0 {
		t.Fatalf("zero vector: cosine = %f, want 0", got)
	}
	if got := Cosine(a, []float64{1, 2}); got != 0 {
		t.Fatalf("mismatched lengths: cosine = %f, want 0", got)
	}
}

func TestInverse(t *testing.T) {
	m := NewMatrix(2, 2)
	m.Set(0, 0, 4)
	m.Set(0, 1, 7)
	m.Set(1, 0, 2)
	m.Set(1, 1, 6)

	inv, err := m.Inverse()
	if err != nil {
		t.Fatalf("inverse failed: %v", err)
	}

	prod := m.Mul(inv)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(prod.At(i, j)-want) > 1e-9 {
				t.Fatalf("m·m⁻¹ not identity at (%d,%d): %f", i, j, prod.At(i, j))
			}
		}
	}
}

func TestInverseSingular(t *testing.T) {
	m := NewMatrix(2, 2)
	m.Set(0, 0, 1)
	m.Set(0, 1, 2)
	m.Set(1, 0, 2)
	m.Set(1, 1, 4)

	if _, err := m.Inverse(); err == nil {
		t.Fatal("expected error for singular matrix")
	}
}

func TestSpectralRadiusDiagonal(t *testing.T) {
	m := NewMatrix(3, 3)
	m.Set(0, 0, 0.5)
	m.Set(1, 1, -0.9)
	m.Set(2, 2, 0.2)

	got := m.SpectralRadius()
	if math.Abs(got-0.9) > 1e-3 {
		t.Fatalf("spectral radius = %f, want 0.9", got)
	}
}

func TestPseudoInverseRecoversVector(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	m := XavierUniform(6, 3, rng)

	x := []float64{0.3, -0.7, 1.1}
	y := m.MulVec(x)

	pinv := m.PseudoInverse()
	recovered := pinv.MulVec(y)

	for i := range x {
		if math.Abs(recovered[i]-x[i]) > 1e-3 {
			t.Fatalf("pinv recovery dim %d: got %f, want %f", i, recovered[i], x[i])
		}
	}
}

func TestEntropyUniformIsMax(t *testing.T) {
	p := []float64{0.25, 0.25, 0.25, 0.25}
	h := Entropy(p)
	if math.Abs(h-math.Log(4)) > 1e-4 {
		t.Fatalf("uniform entropy = %f, want %f", h, math.Log(4))
	}

	peaked := []float64{1, 0, 0, 0}
	if Entropy(peaked) > 1e-6 {
		t.Fatalf("peaked entropy should be ~0, got %f", Entropy(peaked))
	}
}
