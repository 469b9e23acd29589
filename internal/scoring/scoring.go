// Package scoring aggregates per-requirement satisfaction into a discard
// decision and a numeric score. Everything here is a pure function of its
// inputs; oracle failures are the caller's problem.
package scoring

import (
	"math"

	"github.com/mlorente/cv-screener/internal/requirements"
)

// Evaluation is the outcome of scoring a requirement list against a
// satisfaction map. The three requirement slices partition the groups' members
// by the group-level verdict. Discarded implies a zero score; the reverse does
// not hold (an all-optional, all-unsatisfied list scores zero without being
// discarded).
type Evaluation struct {
	Score      float64
	Discarded  bool
	Matching   []requirements.Requirement
	Unmatching []requirements.Requirement
	NotFound   []requirements.Requirement
}

// Score evaluates requirements group by group. An OR group is satisfied when
// any member is, an AND group (including every singleton) when all members are.
// A failed mandatory group discards the candidate; a failed optional group
// sends its members to NotFound for the interview phase. Requirements missing
// from the map count as unsatisfied.
func Score(reqs []requirements.Requirement, sat requirements.SatisfactionMap) *Evaluation {
	eval := &Evaluation{}
	if len(reqs) == 0 {
		return eval
	}

	matched := make(map[string]struct{})
	for _, group := range requirements.PartitionGroups(reqs) {
		switch {
		case groupSatisfied(group, sat):
			eval.Matching = append(eval.Matching, group.Members...)
			for _, m := range group.Members {
				matched[m.ID] = struct{}{}
			}
		case group.Kind == requirements.KindMandatory:
			eval.Discarded = true
			eval.Unmatching = append(eval.Unmatching, group.Members...)
		default:
			eval.NotFound = append(eval.NotFound, group.Members...)
		}
	}

	if eval.Discarded {
		return eval
	}

	eval.Score = round2(100 * float64(len(matched)) / float64(len(reqs)))
	return eval
}

func groupSatisfied(group requirements.Group, sat requirements.SatisfactionMap) bool {
	if group.Combinator == requirements.CombinatorOR {
		for _, m := range group.Members {
			if sat.Satisfied(m.ID) {
				return true
			}
		}
		return false
	}

	for _, m := range group.Members {
		if !sat.Satisfied(m.ID) {
			return false
		}
	}
	return true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
