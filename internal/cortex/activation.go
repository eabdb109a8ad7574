package cortex

import "math"

// #region activation

// Activation names a pointwise nonlinearity for the state update.
type Activation string

const (
	ActIdentity Activation = "identity"
	ActRelu     Activation = "relu" // clipped to [0, 10] to keep the recurrence bounded
	ActTanh     Activation = "tanh"
	ActGelu     Activation = "gelu"
	ActSwish    Activation = "swish"
)

// apply evaluates the activation on a single value.
func (a Activation) apply(x float64) float64 {
	switch a {
	case ActRelu:
		if x < 0 {
			return 0
		}
		if x > 10 {
			return 10
		}
		return x
	case ActTanh:
		return math.Tanh(x)
	case ActGelu:
		// tanh approximation of GELU
		return 0.5 * x * (1 + math.Tanh(math.Sqrt(2/math.Pi)*(x+0.044715*x*x*x)))
	case ActSwish:
		return x / (1 + math.Exp(-x))
	default:
		return x
	}
}

// applyVec evaluates the activation elementwise.
func (a Activation) applyVec(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = a.apply(x)
	}
	return out
}

// #endregion activation
