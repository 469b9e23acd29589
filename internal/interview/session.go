// Package interview drives the follow-up dialogue that resolves requirements
// the CV pass could not confirm. The turn loop is an explicit finite-state
// machine so it can be tested without any interactive I/O by injecting a
// scripted prompter and a stub oracle.
package interview

import (
	"context"
	"fmt"

	"github.com/mlorente/cv-screener/internal/ai"
	"github.com/mlorente/cv-screener/internal/requirements"

	"go.uber.org/zap"
)

// State identifies one step of the interview turn cycle.
type State int

const (
	StateSelect State = iota
	StateAsk
	StateEvaluate
	StateSummarize
	StateDone
)

func (s State) String() string {
	switch s {
	case StateSelect:
		return "select"
	case StateAsk:
		return "ask"
	case StateEvaluate:
		return "evaluate"
	case StateSummarize:
		return "summarize"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const defaultHistoryWindow = 6

// Oracle is the subset of the AI contract the session needs.
type Oracle interface {
	InterpretAnswer(ctx context.Context, req requirements.Requirement, answer string) (*ai.Judgment, error)
	Summarize(ctx context.Context, previous string, recent []ai.Turn) (string, error)
}

// Prompter presents questions to the candidate and collects free-text answers.
// It is the session's only terminal-facing collaborator.
type Prompter interface {
	Greet()
	Ask(req requirements.Requirement) (string, error)
}

// Conversation is the state owned by a single interview session. It is created
// when the session starts, mutated only by the turn sequence, and discarded
// once the outcome has been extracted.
type Conversation struct {
	Pending    []requirements.Requirement
	Fulfilled  []requirements.Requirement
	History    []ai.Turn
	Summary    string
	Current    *requirements.Requirement
	LastAnswer string
	Done       bool
}

// Outcome is what survives a finished session.
type Outcome struct {
	Fulfilled []requirements.Requirement
	Summary   string
}

// Session runs the interview loop. Each pending requirement is asked exactly
// once, in order; an oracle failure on a turn fails closed (the requirement
// stays unfulfilled, the summary keeps its previous value) instead of aborting
// the whole session.
type Session struct {
	oracle        Oracle
	prompter      Prompter
	logger        *zap.Logger
	historyWindow int
}

func NewSession(oracle Oracle, prompter Prompter, historyWindow int, logger *zap.Logger) *Session {
	if historyWindow <= 0 {
		historyWindow = defaultHistoryWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Session{
		oracle:        oracle,
		prompter:      prompter,
		logger:        logger,
		historyWindow: historyWindow,
	}
}

// QuestionFor is the canonical phrasing of the question for one requirement.
// Prompters display it and the transcript records it.
func QuestionFor(req requirements.Requirement) string {
	return fmt.Sprintf("Do you have experience with, or do you meet, this requirement?\n- %s", req.Text)
}

// Run drives the machine to completion. Cancellation is honored only at state
// transition boundaries so a turn is never left half-processed.
func (s *Session) Run(ctx context.Context, pending []requirements.Requirement, initialSummary string) (*Outcome, error) {
	conv := &Conversation{
		Pending: append([]requirements.Requirement(nil), pending...),
		Summary: initialSummary,
	}

	state := StateSelect
	for state != StateDone {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next, err := s.step(ctx, state, conv)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", state, err)
		}
		state = next
	}

	return &Outcome{Fulfilled: conv.Fulfilled, Summary: conv.Summary}, nil
}

// step executes one state and returns the next one.
func (s *Session) step(ctx context.Context, state State, conv *Conversation) (State, error) {
	switch state {
	case StateSelect:
		return s.selectNext(conv), nil
	case StateAsk:
		return s.ask(conv)
	case StateEvaluate:
		return s.evaluate(ctx, conv), nil
	case StateSummarize:
		return s.summarize(ctx, conv), nil
	default:
		return StateDone, nil
	}
}

func (s *Session) selectNext(conv *Conversation) State {
	if len(conv.Pending) == 0 {
		conv.Done = true
		conv.Current = nil
		return StateDone
	}

	head := conv.Pending[0]
	conv.Pending = conv.Pending[1:]
	conv.Current = &head
	return StateAsk
}

func (s *Session) ask(conv *Conversation) (State, error) {
	if len(conv.History) == 0 {
		s.prompter.Greet()
	}

	question := QuestionFor(*conv.Current)
	answer, err := s.prompter.Ask(*conv.Current)
	if err != nil {
		return StateDone, fmt.Errorf("reading candidate answer: %w", err)
	}

	conv.History = append(conv.History,
		ai.Turn{Speaker: ai.SpeakerInterviewer, Text: question},
		ai.Turn{Speaker: ai.SpeakerCandidate, Text: answer},
	)
	conv.LastAnswer = answer

	return StateEvaluate, nil
}

func (s *Session) evaluate(ctx context.Context, conv *Conversation) State {
	req := *conv.Current

	judgment, err := s.oracle.InterpretAnswer(ctx, req, conv.LastAnswer)
	if err != nil {
		s.logger.Warn("answer interpretation failed, treating requirement as unfulfilled",
			zap.String("requirement_id", req.ID),
			zap.Error(err),
		)
		conv.History = append(conv.History, ai.Turn{
			Speaker: ai.SpeakerSystem,
			Text:    fmt.Sprintf("evaluation of %q failed: %v", req.Text, err),
		})
		return StateSummarize
	}

	if judgment.Satisfied {
		conv.Fulfilled = append(conv.Fulfilled, req)
	}

	conv.History = append(conv.History, ai.Turn{
		Speaker: ai.SpeakerSystem,
		Text:    fmt.Sprintf("requirement %q: satisfied=%t, rationale=%s", req.Text, judgment.Satisfied, judgment.Rationale),
	})

	s.logger.Debug("answer evaluated",
		zap.String("requirement_id", req.ID),
		zap.Bool("satisfied", judgment.Satisfied),
	)

	return StateSummarize
}

func (s *Session) summarize(ctx context.Context, conv *Conversation) State {
	recent := conv.History
	if len(recent) > s.historyWindow {
		recent = recent[len(recent)-s.historyWindow:]
	}

	summary, err := s.oracle.Summarize(ctx, conv.Summary, recent)
	if err != nil {
		s.logger.Warn("summary update failed, keeping previous summary", zap.Error(err))
		return StateSelect
	}

	conv.Summary = summary
	return StateSelect
}
