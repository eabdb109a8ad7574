package health

// #region health-config
// Config holds thresholds for snapshot validation.
type Config struct {
	MaxLatentNorm       float64 // reject if latent norm exceeds this
	MaxWMNorm           float64 // reject if working-memory norm exceeds this
	MaxRecurrentRadius  float64 // reject if the recurrent weights could amplify
	PerformanceBaseline float64 // warn if performance sits below this
}

// DefaultConfig returns thresholds sized for the standard 128-dim core.
func DefaultConfig() Config {
	return Config{
		MaxLatentNorm:       50.0,
		MaxWMNorm:           12.0,
		MaxRecurrentRadius:  1.0,
		PerformanceBaseline: 0.2,
	}
}

// #endregion health-config

// #region health-check
// Check captures a single validation check result.
type Check struct {
	Name  string
	Value float64
	Pass  bool
}

// #endregion health-check

// #region health-result
// Result is the output of snapshot validation.
type Result struct {
	Passed bool
	Checks []Check
	Reason string
}

// #endregion health-result
