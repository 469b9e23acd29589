// Package ai defines the narrow contract the screening core depends on for all
// natural-language judgments. Providers live in subpackages; the core only sees
// this interface and can be tested with deterministic stubs.
package ai

import (
	"context"
	"errors"

	"github.com/mlorente/cv-screener/internal/requirements"
)

var (
	// ErrMalformedResponse reports model output that could not be parsed into
	// the expected structure.
	ErrMalformedResponse = errors.New("malformed model response")

	// ErrNoRequirements reports a job posting from which no requirement could
	// be extracted.
	ErrNoRequirements = errors.New("no requirements extracted from the job posting")
)

// Speakers recorded in the interview transcript.
const (
	SpeakerInterviewer = "interviewer"
	SpeakerCandidate   = "candidate"
	SpeakerSystem      = "system"
)

// Turn is one entry of the interview transcript.
type Turn struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Judgment is the interpretation of a candidate's free-text answer about one
// requirement.
type Judgment struct {
	Satisfied bool
	Rationale string
	Raw       string
}

// Oracle performs every natural-language judgment the pipeline needs.
//
// MatchCV is expected to return one entry per input requirement ID; consumers
// must treat missing entries as unsatisfied. An empty ExtractRequirements
// result is not an error: it means no requirements were found.
type Oracle interface {
	ExtractRequirements(ctx context.Context, jobText string) ([]requirements.Requirement, error)
	MatchCV(ctx context.Context, reqs []requirements.Requirement, cvText string) (requirements.SatisfactionMap, error)
	InterpretAnswer(ctx context.Context, req requirements.Requirement, answer string) (*Judgment, error)
	Summarize(ctx context.Context, previous string, recent []Turn) (string, error)
}
