package vecmath

import (
	"errors"
	"math"
	"math/rand"
)

// #region matrix-type

// Matrix is a dense row-major float64 matrix.
type Matrix struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

// NewMatrix allocates a zero matrix of the given shape.
func NewMatrix(rows, cols int) Matrix {
	return Matrix{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// At returns element (i, j).
func (m Matrix) At(i, j int) float64 {
	return m.Data[i*m.Cols+j]
}

// Set assigns element (i, j).
func (m Matrix) Set(i, j int, v float64) {
	m.Data[i*m.Cols+j] = v
}

// Clone returns a deep copy.
func (m Matrix) Clone() Matrix {
	out := NewMatrix(m.Rows, m.Cols)
	copy(out.Data, m.Data)
	return out
}

// #endregion matrix-type

// #region constructors

// Identity returns the n×n identity matrix.
func Identity(n int) Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// Scaled returns the n×n diagonal matrix s·I.
func Scaled(n int, s float64) Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m.Set(i, i, s)
	}
	return m
}

// XavierUniform returns a rows×cols matrix with entries drawn uniformly
// from [-limit, limit] where limit = sqrt(6/(rows+cols)).
func XavierUniform(rows, cols int, rng *rand.Rand) Matrix {
	limit := math.Sqrt(6.0 / float64(rows+cols))
	m := NewMatrix(rows, cols)
	for i := range m.Data {
		m.Data[i] = (rng.Float64()*2 - 1) * limit
	}
	return m
}

// #endregion constructors

// #region products

// MulVec computes m·v. Panics on shape mismatch are avoided by
// truncating or zero-extending v to m.Cols.
func (m Matrix) MulVec(v []float64) []float64 {
	x := v
	if len(v) != m.Cols {
		x = FitDim(v, m.Cols)
	}
	out := make([]float64, m.Rows)
	for i := 0; i < m.Rows; i++ {
		row := m.Data[i*m.Cols : (i+1)*m.Cols]
		var sum float64
		for j, w := range row {
			sum += w * x[j]
		}
		out[i] = sum
	}
	return out
}

// Mul computes m·other.
func (m Matrix) Mul(other Matrix) Matrix {
	out := NewMatrix(m.Rows, other.Cols)
	for i := 0; i < m.Rows; i++ {
		for k := 0; k < m.Cols; k++ {
			a := m.At(i, k)
			if a == 0 {
				continue
			}
			for j := 0; j < other.Cols; j++ {
				out.Data[i*out.Cols+j] += a * other.At(k, j)
			}
		}
	}
	return out
}

// Transpose returns mᵀ.
func (m Matrix) Transpose() Matrix {
	out := NewMatrix(m.Cols, m.Rows)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			out.Set(j, i, m.At(i, j))
		}
	}
	return out
}

// Add returns m + other (same shape assumed).
func (m Matrix) Add(other Matrix) Matrix {
	out := m.Clone()
	for i := range out.Data {
		out.Data[i] += other.Data[i]
	}
	return out
}

// ScaleInPlace multiplies every entry by s.
func (m Matrix) ScaleInPlace(s float64) {
	for i := range m.Data {
		m.Data[i] *= s
	}
}

// #endregion products

// #region inverse

// ErrSingular reports a (near-)singular matrix during inversion.
var ErrSingular = errors.New("matrix is singular")

// Inverse computes the inverse of a square matrix via Gauss-Jordan
// elimination with partial pivoting. Returns ErrSingular when a pivot
// falls below 1e-12.
func (m Matrix) Inverse() (Matrix, error) {
	if m.Rows != m.Cols {
		return Matrix{}, errors.New("matrix is not square")
	}
	n := m.Rows
	a := m.Clone()
	inv := Identity(n)

	for col := 0; col < n; col++ {
		// Partial pivot: pick the row with the largest magnitude entry.
		pivot := col
		maxAbs := math.Abs(a.At(col, col))
		for r := col + 1; r < n; r++ {
			if abs := math.Abs(a.At(r, col)); abs > maxAbs {
				maxAbs = abs
				pivot = r
			}
		}
		if maxAbs < 1e-12 {
			return Matrix{}, ErrSingular
		}
		if pivot != col {
			swapRows(a, pivot, col)
			swapRows(inv, pivot, col)
		}

		p := a.At(col, col)
		for j := 0; j < n; j++ {
			a.Set(col, j, a.At(col, j)/p)
			inv.Set(col, j, inv.At(col, j)/p)
		}
		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			factor := a.At(r, col)
			if factor == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				a.Set(r, j, a.At(r, j)-factor*a.At(col, j))
				inv.Set(r, j, inv.At(r, j)-factor*inv.At(col, j))
			}
		}
	}
	return inv, nil
}

func swapRows(m Matrix, r1, r2 int) {
	for j := 0; j < m.Cols; j++ {
		v1, v2 := m.At(r1, j), m.At(r2, j)
		m.Set(r1, j, v2)
		m.Set(r2, j, v1)
	}
}

// PseudoInverse computes a ridge-regularized left pseudo-inverse
// (AᵀA + εI)⁻¹Aᵀ. The ridge term keeps the normal equations invertible
// for rank-deficient inputs.
func (m Matrix) PseudoInverse() Matrix {
	t := m.Transpose()
	gram := t.Mul(m)
	for i := 0; i < gram.Rows; i++ {
		gram.Set(i, i, gram.At(i, i)+1e-6)
	}
	inv, err := gram.Inverse()
	if err != nil {
		// Regularized gram should never be singular; fall back to
		// the plain transpose as a crude projection.
		return t
	}
	return inv.Mul(t)
}

// #endregion inverse

// #region spectral-radius

// SpectralRadius estimates the largest absolute eigenvalue of a square
// matrix via power iteration. Deterministic: starts from an all-ones
// vector and runs a fixed number of iterations.
func (m Matrix) SpectralRadius() float64 {
	if m.Rows != m.Cols || m.Rows == 0 {
		return 0
	}
	v := make([]float64, m.Rows)
	for i := range v {
		v[i] = 1
	}
	var radius float64
	for iter := 0; iter < 100; iter++ {
		next := m.MulVec(v)
		n := Norm(next)
		if n < 1e-12 {
			return 0
		}
		for i := range next {
			next[i] /= n
		}
		v = next
		radius = n
	}
	return radius
}

// #endregion spectral-radius
