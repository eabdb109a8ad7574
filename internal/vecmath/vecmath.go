package vecmath

import "math"

// #region vector-basics

// Norm computes the L2 norm of a vector.
func Norm(v []float64) float64 {
	var sumSq float64
	for _, x := range v {
		sumSq += x * x
	}
	return math.Sqrt(sumSq)
}

// Dot computes the inner product of two equal-length vectors.
// Returns 0 on length mismatch.
func Dot(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

// Cosine computes cosine similarity between two vectors.
// Returns 0 for zero-length, mismatched, or zero-norm vectors.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

// #endregion vector-basics

// #region dimension-fitting

// FitDim pads with zeros or truncates v to exactly dim elements.
// Always returns a fresh slice; the input is never aliased.
func FitDim(v []float64, dim int) []float64 {
	out := make([]float64, dim)
	copy(out, v)
	return out
}

// L2Normalize returns v scaled to unit norm. Vectors with norm below
// epsilon are returned as a zero-preserving copy.
func L2Normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	n := Norm(v)
	if n < 1e-9 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = x / n
	}
	return out
}

// #endregion dimension-fitting

// #region clamping

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 restricts v to [0, 1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// #endregion clamping

// #region distributions

// Softmax computes a numerically stable softmax over v.
// An empty input returns an empty slice.
func Softmax(v []float64) []float64 {
	out := make([]float64, len(v))
	if len(v) == 0 {
		return out
	}
	maxV := v[0]
	for _, x := range v[1:] {
		if x > maxV {
			maxV = x
		}
	}
	var sum float64
	for i, x := range v {
		out[i] = math.Exp(x - maxV)
		sum += out[i]
	}
	sum += 1e-9
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Entropy computes the Shannon entropy of a probability vector in nats.
func Entropy(p []float64) float64 {
	var h float64
	for _, x := range p {
		if x > 0 {
			h -= x * math.Log(x+1e-9)
		}
	}
	return h
}

// #endregion distributions

// #region statistics

// Mean computes the arithmetic mean of v. Returns 0 for empty input.
func Mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

// Std computes the population standard deviation of v.
func Std(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	m := Mean(v)
	var variance float64
	for _, x := range v {
		d := x - m
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(v)))
}

// Sparsity computes the fraction of entries whose magnitude is below
// 1% of the maximum magnitude.
func Sparsity(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var maxAbs float64
	for _, x := range v {
		if a := math.Abs(x); a > maxAbs {
			maxAbs = a
		}
	}
	threshold := 0.01 * maxAbs
	var count int
	for _, x := range v {
		if math.Abs(x) < threshold {
			count++
		}
	}
	return float64(count) / float64(len(v))
}

// #endregion statistics
