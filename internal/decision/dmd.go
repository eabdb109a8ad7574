package decision

import (
	"sort"

	"github.com/danielpatrickdp/cognitive-core/internal/vecmath"
)

// #region config

// MatrixConfig holds the deterministic decision matrix parameters.
type MatrixConfig struct {
	TopK            int     // runner-ups reported with every decision
	AdaptRate       float64 // learning rate for criteria adaptation
	SafetyTarget    float64 // safety weight approached under poor feedback
	FeedbackCutoff  float64 // feedback below this counts as poor
	SafetyCriterion string  // criterion name nudged by adaptation
}

// DefaultMatrixConfig returns the standard decision matrix configuration.
func DefaultMatrixConfig() MatrixConfig {
	return MatrixConfig{
		TopK:            3,
		AdaptRate:       0.1,
		SafetyTarget:    0.7,
		FeedbackCutoff:  0.5,
		SafetyCriterion: "safety",
	}
}

// DefaultCriteria returns the standard weighted criteria set: raw Q
// dominates, safety and efficiency temper it, modularity is a light
// preference. Safety is the risk complement so every column rewards
// larger values.
func DefaultCriteria() []Criterion {
	return []Criterion{
		{Name: "q", Weight: 1.0, Value: func(v Valuation) float64 { return v.Q }},
		{Name: "safety", Weight: 0.6, Value: func(v Valuation) float64 { return 1 - v.MIEM.Risk }},
		{Name: "efficiency", Weight: 0.4, Value: func(v Valuation) float64 { return v.MIEM.Efficiency }},
		{Name: "modularity", Weight: 0.2, Value: func(v Valuation) float64 { return v.MIEM.Modularity }},
	}
}

// #endregion config

// #region matrix

// Matrix performs the weighted, constraint-filtered multi-criteria
// selection. Selection is fully deterministic: same candidates, same
// weights, same answer.
type Matrix struct {
	config   MatrixConfig
	criteria []Criterion
}

// NewMatrix creates a decision matrix with the given criteria, or the
// defaults when none are provided.
func NewMatrix(config MatrixConfig, criteria []Criterion) *Matrix {
	if len(criteria) == 0 {
		criteria = DefaultCriteria()
	}
	return &Matrix{config: config, criteria: criteria}
}

// Criteria returns a copy of the current criteria weights by name.
func (m *Matrix) Criteria() map[string]float64 {
	out := make(map[string]float64, len(m.criteria))
	for _, c := range m.criteria {
		out[c.Name] = c.Weight
	}
	return out
}

// SetCriteria reinstalls previously captured weights. Names that do not
// match a current criterion are ignored.
func (m *Matrix) SetCriteria(weights map[string]float64) {
	for i := range m.criteria {
		if w, ok := weights[m.criteria[i].Name]; ok {
			m.criteria[i].Weight = w
		}
	}
}

// #endregion matrix

// #region decide

// Decide filters candidates through the hard constraints, scores the
// survivors on the normalized criteria matrix minus soft penalties, and
// selects the first-seen argmax. Returns ErrNoValidCandidate when the
// hard constraints exclude everything.
func (m *Matrix) Decide(candidates []ActionCandidate, valuations []Valuation,
	hard []HardConstraint, soft []SoftConstraint) (Result, error) {

	var result Result

	var rows []scoredRow
	for i, c := range candidates {
		var v Valuation
		if i < len(valuations) {
			v = valuations[i]
		}
		violated := false
		for _, h := range hard {
			if h.Violated(c, v) {
				violated = true
				break
			}
		}
		if violated {
			result.Excluded = append(result.Excluded, c.ID)
			continue
		}
		rows = append(rows, scoredRow{candidate: c, valuation: v})
	}
	if len(rows) == 0 {
		return result, ErrNoValidCandidate
	}

	// Criteria matrix with independently min-max normalized columns.
	// A constant column normalizes to 1.0 (no discriminating power, but
	// the criterion's weight must not vanish from the total).
	scores := make([]float64, len(rows))
	normalized := make([][]float64, len(m.criteria))
	for ci, criterion := range m.criteria {
		column := make([]float64, len(rows))
		for i, r := range rows {
			column[i] = criterion.Value(r.valuation)
		}
		lo, hi := column[0], column[0]
		for _, v := range column[1:] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		normalized[ci] = make([]float64, len(rows))
		for i := range column {
			n := 1.0
			if hi > lo {
				n = (column[i] - lo) / (hi - lo)
			}
			normalized[ci][i] = n
			scores[i] += criterion.Weight * n
		}
	}

	violations := make([][]string, len(rows))
	for i, r := range rows {
		for _, s := range soft {
			if s.Violated(r.candidate, r.valuation) {
				scores[i] -= s.Penalty
				violations[i] = append(violations[i], s.Name)
			}
		}
	}

	// First-seen wins on ties.
	best := 0
	for i := 1; i < len(rows); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}

	result.SelectedID = rows[best].candidate.ID
	result.Selected = rows[best].candidate
	result.Score = scores[best]
	result.Valuation = rows[best].valuation
	result.CriteriaScores = make(map[string]float64, len(m.criteria))
	for ci, criterion := range m.criteria {
		result.CriteriaScores[criterion.Name] = normalized[ci][best]
	}
	result.Violations = violations[best]
	result.RunnerUps = runnerUps(rows[best].candidate.ID, rows, scores, m.config.TopK)
	return result, nil
}

type scoredRow struct {
	candidate ActionCandidate
	valuation Valuation
}

func runnerUps(selectedID string, rows []scoredRow, scores []float64, topK int) []RunnerUp {
	var ups []RunnerUp
	for i, r := range rows {
		if r.candidate.ID == selectedID {
			continue
		}
		ups = append(ups, RunnerUp{CandidateID: r.candidate.ID, Score: scores[i]})
	}
	sort.SliceStable(ups, func(a, b int) bool { return ups[a].Score > ups[b].Score })
	if len(ups) > topK {
		ups = ups[:topK]
	}
	return ups
}

// #endregion decide

// #region adapt

// AdaptCriteria nudges the safety weight toward its target when recent
// performance feedback is poor, scaling the remaining weights so the
// total stays constant.
func (m *Matrix) AdaptCriteria(feedback float64) {
	if feedback >= m.config.FeedbackCutoff {
		return
	}

	safetyIdx := -1
	var total float64
	for i, c := range m.criteria {
		total += c.Weight
		if c.Name == m.config.SafetyCriterion {
			safetyIdx = i
		}
	}
	if safetyIdx < 0 || total <= 0 {
		return
	}

	old := m.criteria[safetyIdx].Weight
	updated := old + m.config.AdaptRate*(m.config.SafetyTarget-old)
	m.criteria[safetyIdx].Weight = updated

	rest := total - old
	if rest <= 1e-9 {
		return
	}
	scale := (total - updated) / rest
	for i := range m.criteria {
		if i != safetyIdx {
			m.criteria[i].Weight = vecmath.Clamp(m.criteria[i].Weight*scale, 0, total)
		}
	}
}

// #endregion adapt
