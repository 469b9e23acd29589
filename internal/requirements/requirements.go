package requirements

import (
	"fmt"
	"strings"
)

// Kind tells whether failing a requirement disqualifies the candidate.
type Kind string

const (
	KindMandatory Kind = "mandatory"
	KindOptional  Kind = "optional"
)

// Combinator tells how requirements sharing a group combine into one verdict.
type Combinator string

const (
	CombinatorAND Combinator = "AND"
	CombinatorOR  Combinator = "OR"
)

// Requirement is one atomic condition extracted from a job posting. Identity is
// the generated ID, never the text: two requirements with identical wording stay
// distinct entries.
type Requirement struct {
	ID         string     `json:"id"`
	Text       string     `json:"text"`
	Kind       Kind       `json:"kind"`
	Group      string     `json:"group,omitempty"`
	Combinator Combinator `json:"combinator,omitempty"`
}

func (r Requirement) Mandatory() bool {
	return r.Kind != KindOptional
}

// SatisfactionMap records per-requirement satisfaction keyed by requirement ID.
// A missing entry counts as unsatisfied.
type SatisfactionMap map[string]bool

func (m SatisfactionMap) Satisfied(id string) bool {
	return m[id]
}

// Normalize cleans up a freshly extracted requirement list: entries with empty
// text are dropped, the kind defaults to mandatory, the combinator defaults to
// AND, and stable sequential IDs (r1, r2, ...) are assigned. IDs present on the
// input are discarded; this is the single place where identity is minted.
func Normalize(reqs []Requirement) []Requirement {
	out := make([]Requirement, 0, len(reqs))
	for _, r := range reqs {
		r.Text = strings.TrimSpace(r.Text)
		if r.Text == "" {
			continue
		}
		if r.Kind != KindOptional {
			r.Kind = KindMandatory
		}
		if r.Combinator != CombinatorOR {
			r.Combinator = CombinatorAND
		}
		r.Group = strings.TrimSpace(r.Group)
		out = append(out, r)
	}

	for i := range out {
		out[i].ID = fmt.Sprintf("r%d", i+1)
	}

	return out
}

// Group is a derived cluster of requirements scored as one unit. It is computed
// transiently during scoring and never stored.
type Group struct {
	Key        string
	Kind       Kind
	Combinator Combinator
	Members    []Requirement
}

// PartitionGroups splits requirements into their logical groups, preserving
// input order. Ungrouped requirements become singleton AND groups. The first
// member seen fixes the group's kind and combinator.
func PartitionGroups(reqs []Requirement) []Group {
	groups := make([]Group, 0, len(reqs))
	index := make(map[string]int, len(reqs))

	for _, r := range reqs {
		key := r.Group
		if key == "" {
			key = "single:" + r.ID
		}

		if i, ok := index[key]; ok {
			groups[i].Members = append(groups[i].Members, r)
			continue
		}

		combinator := r.Combinator
		if r.Group == "" {
			combinator = CombinatorAND
		}

		index[key] = len(groups)
		groups = append(groups, Group{
			Key:        key,
			Kind:       r.Kind,
			Combinator: combinator,
			Members:    []Requirement{r},
		})
	}

	return groups
}

// DedupByText keeps the first occurrence of each requirement text, preserving
// order. Used to seed the interview queue so the candidate is never asked the
// same wording twice.
func DedupByText(reqs []Requirement) []Requirement {
	seen := make(map[string]struct{}, len(reqs))
	out := make([]Requirement, 0, len(reqs))
	for _, r := range reqs {
		if _, ok := seen[r.Text]; ok {
			continue
		}
		seen[r.Text] = struct{}{}
		out = append(out, r)
	}
	return out
}

// SelectByText returns every requirement from pool whose text matches one of
// the confirmed requirements. This propagates an interview confirmation to all
// duplicate-wording entries that were collapsed by DedupByText.
func SelectByText(pool, confirmed []Requirement) []Requirement {
	texts := make(map[string]struct{}, len(confirmed))
	for _, r := range confirmed {
		texts[r.Text] = struct{}{}
	}

	out := make([]Requirement, 0, len(confirmed))
	for _, r := range pool {
		if _, ok := texts[r.Text]; ok {
			out = append(out, r)
		}
	}
	return out
}
