package decision

import "errors"

// ErrNoValidCandidate is returned when every candidate violates a hard
// constraint. The caller decides whether to replan; it is never retried
// internally.
var ErrNoValidCandidate = errors.New("decision: no candidate satisfies the hard constraints")

// #region candidate

// ActionCandidate is one option offered to the engine. Complexity and
// Resources are declared by the proposer on a [0,1] scale.
type ActionCandidate struct {
	ID         string
	Kind       string
	Vector     []float64
	Complexity float64
	Resources  float64
	Meta       map[string]string
}

// MIEM is the four-part decomposition scored for each candidate beyond
// raw expected reward.
type MIEM struct {
	Efficiency float64 `json:"efficiency"`
	Impact     float64 `json:"impact"`
	Modularity float64 `json:"modularity"`
	Risk       float64 `json:"risk"`
}

// Valuation is the full per-candidate value estimate.
type Valuation struct {
	CandidateID string  `json:"candidate_id"`
	Q           float64 `json:"q"`
	Reward      float64 `json:"reward"`
	Cost        float64 `json:"cost"`
	MIEM        MIEM    `json:"miem"`
}

// #endregion candidate

// #region constraints

// Criterion is a named, weighted column of the decision matrix.
type Criterion struct {
	Name   string
	Weight float64
	// Value extracts the criterion value for one valuation.
	Value func(Valuation) float64
}

// HardConstraint removes a candidate outright when violated.
type HardConstraint struct {
	Name string
	// Violated reports whether the candidate must be excluded.
	Violated func(ActionCandidate, Valuation) bool
}

// SoftConstraint subtracts a penalty from a candidate's score when
// violated, without excluding it.
type SoftConstraint struct {
	Name     string
	Penalty  float64
	Violated func(ActionCandidate, Valuation) bool
}

// #endregion constraints

// #region result

// RunnerUp records a non-selected candidate and its final score.
type RunnerUp struct {
	CandidateID string  `json:"candidate_id"`
	Score       float64 `json:"score"`
}

// Result is the decision record returned to the caller.
type Result struct {
	SelectedID     string             `json:"selected_id"`
	Selected       ActionCandidate    `json:"-"`
	Score          float64            `json:"score"`
	Valuation      Valuation          `json:"valuation"`
	CriteriaScores map[string]float64 `json:"criteria_scores"`                 // normalized per-criterion scores of the selected candidate
	Violations     []string           `json:"constraint_violations,omitempty"` // soft constraints the selected candidate fired
	RunnerUps      []RunnerUp         `json:"runner_ups"`
	Excluded       []string           `json:"excluded"` // candidates removed by hard constraints
}

// #endregion result
