package wm

import (
	"math"
	"math/rand"
	"testing"

	"github.com/danielpatrickdp/cognitive-core/internal/vecmath"
)

func smallConfig() Config {
	return Config{
		Dim:          8,
		LatentDim:    12,
		Slots:        4,
		NormCeiling:  5.0,
		DecayRate:    0.02,
		MaxRetrieved: 3,
		Seed:         7,
	}
}

func TestUpdateWritesContent(t *testing.T) {
	b := New(smallConfig())

	latent := make([]float64, 12)
	for i := range latent {
		latent[i] = 1.0
	}

	w, metrics := b.Update(latent, nil, nil)
	if vecmath.Norm(w) == 0 {
		t.Fatal("update with nonzero latent left the buffer empty")
	}
	if metrics.GateMean < 0 || metrics.GateMean > 1 {
		t.Fatalf("gate mean out of [0,1]: %f", metrics.GateMean)
	}
	if metrics.Blended != 0 {
		t.Fatalf("no retrieved items were offered, blended = %d", metrics.Blended)
	}
}

func TestNormNeverExceedsCeiling(t *testing.T) {
	cfg := smallConfig()
	b := New(cfg)
	rng := rand.New(rand.NewSource(99))

	for i := 0; i < 10000; i++ {
		latent := make([]float64, 12)
		for j := range latent {
			latent[j] = rng.NormFloat64() * 50
		}
		b.Update(latent, nil, nil)
		if n := vecmath.Norm(b.W()); n > cfg.NormCeiling+1e-9 {
			t.Fatalf("update %d: norm %f exceeds ceiling %f", i, n, cfg.NormCeiling)
		}
	}
}

func TestRetrievedItemsBlend(t *testing.T) {
	b1 := New(smallConfig())
	b2 := New(smallConfig())

	latent := make([]float64, 12)
	latent[0] = 1

	item := RetrievedItem{Vector: []float64{0, 0, 0, 0, 0, 0, 0, 9}, Score: 1.0}

	w1, _ := b1.Update(latent, nil, nil)
	w2, m2 := b2.Update(latent, []RetrievedItem{item}, nil)

	if m2.Blended != 1 {
		t.Fatalf("blended = %d, want 1", m2.Blended)
	}
	if math.Abs(w1[7]-w2[7]) < 1e-12 {
		t.Fatal("retrieved item did not influence the buffer")
	}
}

func TestMaxRetrievedLimit(t *testing.T) {
	b := New(smallConfig())

	items := make([]RetrievedItem, 5)
	for i := range items {
		items[i] = RetrievedItem{Vector: []float64{1, 1, 1, 1, 1, 1, 1, 1}, Score: 1.0}
	}

	latent := make([]float64, 12)
	latent[0] = 1
	_, metrics := b.Update(latent, items, nil)
	if metrics.Blended != 3 {
		t.Fatalf("blended = %d, want cap of 3", metrics.Blended)
	}
}

func TestRelevanceClosesGate(t *testing.T) {
	// relevance = 0 forces the gate shut, so the buffer takes the new
	// content wholesale.
	b := New(smallConfig())
	latent := make([]float64, 12)
	latent[0] = 2

	relevance := make([]float64, 8) // all zeros
	w, metrics := b.Update(latent, nil, relevance)

	if metrics.GateMean != 0 {
		t.Fatalf("zero relevance should zero the gate, mean = %f", metrics.GateMean)
	}
	content := vecmath.FitDim(latent, 8)
	for i := range w {
		want := content[i] * (1 - 0.02)
		if math.Abs(w[i]-want) > 1e-9 {
			t.Fatalf("dim %d: got %f, want %f", i, w[i], want)
		}
	}
}

func TestClearSlot(t *testing.T) {
	b := New(smallConfig())
	latent := make([]float64, 12)
	for i := range latent {
		latent[i] = 1
	}
	b.Update(latent, nil, nil)

	b.ClearSlot(1) // dims [2,4) for 8 dims / 4 slots
	w := b.W()
	if w[2] != 0 || w[3] != 0 {
		t.Fatalf("slot 1 not cleared: %v", w)
	}
	if w[0] == 0 && w[1] == 0 && w[4] == 0 {
		t.Fatal("clear slot wiped more than its segment")
	}

	b.ClearSlot(-1) // must be a no-op
	b.ClearSlot(99)
}

func TestPrioritizeSlot(t *testing.T) {
	b := New(smallConfig())
	latent := make([]float64, 12)
	for i := range latent {
		latent[i] = 0.5
	}
	b.Update(latent, nil, nil)

	before := b.W()
	b.PrioritizeSlot(0, 2.0)
	after := b.W()

	if math.Abs(after[0]) <= math.Abs(before[0]) {
		t.Fatalf("boost did not amplify slot 0: %f → %f", before[0], after[0])
	}
	if n := vecmath.Norm(after); n > smallConfig().NormCeiling+1e-9 {
		t.Fatalf("prioritize pushed norm past ceiling: %f", n)
	}
}

func TestRehearseRestoresScale(t *testing.T) {
	b := New(smallConfig())
	latent := make([]float64, 12)
	latent[0] = 1
	b.Update(latent, nil, nil)

	// Decay toward zero, then rehearse back up.
	for i := range b.w {
		b.w[i] *= 0.01
	}
	weak := vecmath.Norm(b.W())

	b.Rehearse(10, 2.0)
	strong := vecmath.Norm(b.W())

	if strong <= weak {
		t.Fatalf("rehearsal should strengthen the trace: %f → %f", weak, strong)
	}
	if math.Abs(strong-2.0) > 0.1 {
		t.Fatalf("rehearsal should converge near strength 2.0, got %f", strong)
	}
}

func TestRehearseEmptyBufferStaysEmpty(t *testing.T) {
	b := New(smallConfig())
	b.Rehearse(5, 1.0)
	if vecmath.Norm(b.W()) != 0 {
		t.Fatal("rehearsing an empty buffer fabricated content")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	b := New(smallConfig())
	latent := make([]float64, 12)
	latent[3] = 1.5
	for i := 0; i < 5; i++ {
		b.Update(latent, nil, nil)
	}

	restored := Restore(b.Snapshot())
	if restored.Updates() != b.Updates() {
		t.Fatalf("update count lost: %d vs %d", restored.Updates(), b.Updates())
	}

	w1, _ := b.Update(latent, nil, nil)
	w2, _ := restored.Update(latent, nil, nil)
	for i := range w1 {
		if math.Abs(w1[i]-w2[i]) > 1e-12 {
			t.Fatalf("restored buffer diverged at dim %d: %f vs %f", i, w1[i], w2[i])
		}
	}
}
