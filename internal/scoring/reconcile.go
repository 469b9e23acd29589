package scoring

import "github.com/mlorente/cv-screener/internal/requirements"

// Reconcile recomputes the evaluation after the interview phase. The union of
// the CV-derived matches and the interview-confirmed requirements forms a new
// satisfaction map, and the same group-aware algorithm as the first pass runs
// over it, so OR alternatives keep their semantics in both passes.
func Reconcile(reqs, initialMatching, additionalFulfilled []requirements.Requirement) *Evaluation {
	sat := make(requirements.SatisfactionMap, len(initialMatching)+len(additionalFulfilled))
	for _, r := range initialMatching {
		sat[r.ID] = true
	}
	for _, r := range additionalFulfilled {
		sat[r.ID] = true
	}

	return Score(reqs, sat)
}
