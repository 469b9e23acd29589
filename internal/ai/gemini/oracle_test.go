package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mlorente/cv-screener/internal/ai"
	"github.com/mlorente/cv-screener/internal/requirements"

	"go.uber.org/zap"
)

type stubGenerator struct {
	response    string
	err         error
	lastSystem  string
	lastMessage string
}

func (s *stubGenerator) GenerateContent(_ context.Context, system, message string) (string, error) {
	s.lastSystem = system
	s.lastMessage = message
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) Model() string {
	return "stub-model"
}

func TestExtractRequirementsParsesFencedJSON(t *testing.T) {
	stub := &stubGenerator{response: "```json\n" + `{
		"requirements": [
			{"text": "Python", "kind": "mandatory", "group": null, "combinator": null},
			{"text": "CS degree", "kind": "mandatory", "group": "education", "combinator": "OR"},
			{"text": "Master in AI", "kind": "mandatory", "group": "education", "combinator": "OR"},
			{"text": "", "kind": "optional", "group": null, "combinator": null},
			{"text": "FastAPI", "kind": "opcional", "group": null, "combinator": null}
		]
	}` + "\n```"}
	oracle := NewOracle(stub, 0, zap.NewNop())

	reqs, err := oracle.ExtractRequirements(context.Background(), "some posting")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(reqs) != 4 {
		t.Fatalf("expected empty-text entry dropped, got %d requirements", len(reqs))
	}

	if reqs[0].ID != "r1" || reqs[3].ID != "r4" {
		t.Fatalf("expected sequential ids, got %+v", reqs)
	}

	if reqs[1].Group != "education" || reqs[1].Combinator != requirements.CombinatorOR {
		t.Fatalf("unexpected group parsing: %+v", reqs[1])
	}

	if reqs[3].Kind != requirements.KindOptional {
		t.Fatalf("expected spanish optional marker honored, got %q", reqs[3].Kind)
	}

	if !strings.Contains(stub.lastMessage, "some posting") {
		t.Fatalf("posting text missing from message: %q", stub.lastMessage)
	}

	if !strings.Contains(stub.lastSystem, "atomic requirements") {
		t.Fatalf("unexpected system prompt: %q", stub.lastSystem)
	}
}

func TestExtractRequirementsMalformedResponse(t *testing.T) {
	stub := &stubGenerator{response: "sorry, I cannot do that"}
	oracle := NewOracle(stub, 0, zap.NewNop())

	_, err := oracle.ExtractRequirements(context.Background(), "posting")
	if !errors.Is(err, ai.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestExtractRequirementsEmptyListIsNotAnError(t *testing.T) {
	stub := &stubGenerator{response: `{"requirements": []}`}
	oracle := NewOracle(stub, 0, zap.NewNop())

	reqs, err := oracle.ExtractRequirements(context.Background(), "posting")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reqs) != 0 {
		t.Fatalf("expected no requirements, got %d", len(reqs))
	}
}

func TestMatchCVMapsByIDWithTextFallback(t *testing.T) {
	stub := &stubGenerator{response: `{
		"items": [
			{"id": "r1", "satisfied": true, "rationale": "mentions Django"},
			{"id": "Docker", "satisfied": "true", "rationale": "echoed by text"},
			{"id": "r99", "satisfied": true, "rationale": "hallucinated"}
		]
	}`}
	oracle := NewOracle(stub, 0, zap.NewNop())

	reqs := []requirements.Requirement{
		{ID: "r1", Text: "Python", Kind: requirements.KindMandatory},
		{ID: "r2", Text: "Docker", Kind: requirements.KindOptional},
		{ID: "r3", Text: "FastAPI", Kind: requirements.KindOptional},
	}

	sat, err := oracle.MatchCV(context.Background(), reqs, "cv text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !sat.Satisfied("r1") {
		t.Fatal("expected r1 satisfied")
	}
	if !sat.Satisfied("r2") {
		t.Fatal("expected text-echoed entry mapped to r2")
	}
	if sat.Satisfied("r3") {
		t.Fatal("missing entry must fail closed")
	}
	if _, ok := sat["r99"]; ok {
		t.Fatal("hallucinated id must be ignored")
	}

	if !strings.Contains(stub.lastMessage, "- r1: Python (mandatory)") {
		t.Fatalf("requirement listing missing from message: %q", stub.lastMessage)
	}
	if !strings.Contains(stub.lastMessage, "cv text") {
		t.Fatalf("cv text missing from message: %q", stub.lastMessage)
	}
}

func TestMatchCVEmptyRequirements(t *testing.T) {
	oracle := NewOracle(&stubGenerator{}, 0, zap.NewNop())

	sat, err := oracle.MatchCV(context.Background(), nil, "cv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sat) != 0 {
		t.Fatalf("expected empty map, got %v", sat)
	}
}

func TestInterpretAnswer(t *testing.T) {
	stub := &stubGenerator{response: `{"satisfied": "yes", "rationale": "  two years with LangChain  "}`}
	oracle := NewOracle(stub, 0, zap.NewNop())

	req := requirements.Requirement{ID: "r1", Text: "LangChain", Kind: requirements.KindOptional}
	judgment, err := oracle.InterpretAnswer(context.Background(), req, "I used it for two years")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !judgment.Satisfied {
		t.Fatal("expected satisfied judgment")
	}
	if judgment.Rationale != "two years with LangChain" {
		t.Fatalf("unexpected rationale: %q", judgment.Rationale)
	}
	if judgment.Raw == "" {
		t.Fatal("expected raw response preserved")
	}

	if !strings.Contains(stub.lastMessage, "Requirement: LangChain") {
		t.Fatalf("requirement missing from message: %q", stub.lastMessage)
	}
}

func TestInterpretAnswerMalformed(t *testing.T) {
	stub := &stubGenerator{response: "not json"}
	oracle := NewOracle(stub, 0, zap.NewNop())

	req := requirements.Requirement{ID: "r1", Text: "LangChain"}
	_, err := oracle.InterpretAnswer(context.Background(), req, "answer")
	if !errors.Is(err, ai.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestSummarizeReturnsTrimmedText(t *testing.T) {
	stub := &stubGenerator{response: "\n The candidate confirmed LangChain experience. \n"}
	oracle := NewOracle(stub, 0, zap.NewNop())

	summary, err := oracle.Summarize(context.Background(), "old summary", []ai.Turn{
		{Speaker: ai.SpeakerInterviewer, Text: "Do you know LangChain?"},
		{Speaker: ai.SpeakerCandidate, Text: "Yes, two years."},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary != "The candidate confirmed LangChain experience." {
		t.Fatalf("unexpected summary: %q", summary)
	}

	if !strings.Contains(stub.lastMessage, "old summary") {
		t.Fatalf("previous summary missing from message: %q", stub.lastMessage)
	}
	if !strings.Contains(stub.lastMessage, "candidate: Yes, two years.") {
		t.Fatalf("history missing from message: %q", stub.lastMessage)
	}
}

func TestSummarizePropagatesGeneratorErrors(t *testing.T) {
	stub := &stubGenerator{err: errors.New("boom")}
	oracle := NewOracle(stub, 0, zap.NewNop())

	if _, err := oracle.Summarize(context.Background(), "", nil); err == nil {
		t.Fatal("expected error")
	}
}
