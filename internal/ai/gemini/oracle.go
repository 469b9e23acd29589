package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mlorente/cv-screener/internal/ai"
	"github.com/mlorente/cv-screener/internal/requirements"
	"github.com/mlorente/cv-screener/internal/utils"

	"go.uber.org/zap"
)

//go:embed prompts/extract_requirements.md
var extractPrompt string

//go:embed prompts/match_cv.md
var matchPrompt string

//go:embed prompts/interpret_answer.md
var interpretPrompt string

//go:embed prompts/summarize.md
var summarizePrompt string

const defaultMaxLogLength = 200

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

// Oracle implements ai.Oracle on top of a Gemini content generator. Each
// capability pairs an embedded system prompt with a message built from the
// call's inputs and parses the structured response.
type Oracle struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

// NewOracle creates the Gemini-backed oracle.
func NewOracle(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Oracle {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Oracle{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// ExtractRequirements asks the model to split the job posting into atomic
// requirements. An empty result is not an error.
func (o *Oracle) ExtractRequirements(ctx context.Context, jobText string) ([]requirements.Requirement, error) {
	message := "Job posting:\n\n" + jobText

	raw, err := o.generate(ctx, "extract_requirements", extractPrompt, message)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Requirements []struct {
			Text       string `json:"text"`
			Kind       string `json:"kind"`
			Group      string `json:"group"`
			Combinator string `json:"combinator"`
		} `json:"requirements"`
	}

	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		return nil, fmt.Errorf("%w: parse requirement list: %v", ai.ErrMalformedResponse, err)
	}

	reqs := make([]requirements.Requirement, 0, len(payload.Requirements))
	for _, item := range payload.Requirements {
		reqs = append(reqs, requirements.Requirement{
			Text:       item.Text,
			Kind:       parseKind(item.Kind),
			Group:      item.Group,
			Combinator: parseCombinator(item.Combinator),
		})
	}

	normalized := requirements.Normalize(reqs)

	o.logger.Info("requirements extracted",
		zap.Int("count", len(normalized)),
	)

	return normalized, nil
}

// MatchCV judges every requirement against the CV in a single call. The model
// echoes requirement IDs; entries it omits are simply absent from the returned
// map, which downstream scoring treats as unsatisfied.
func (o *Oracle) MatchCV(ctx context.Context, reqs []requirements.Requirement, cvText string) (requirements.SatisfactionMap, error) {
	if len(reqs) == 0 {
		return requirements.SatisfactionMap{}, nil
	}

	var lines strings.Builder
	lines.WriteString("Requirements:\n")
	for _, r := range reqs {
		fmt.Fprintf(&lines, "- %s: %s (%s)\n", r.ID, r.Text, r.Kind)
	}
	lines.WriteString("\nCV:\n")
	lines.WriteString(cvText)

	raw, err := o.generate(ctx, "match_cv", matchPrompt, lines.String())
	if err != nil {
		return nil, err
	}

	var payload struct {
		Items []struct {
			ID        string `json:"id"`
			Satisfied any    `json:"satisfied"`
			Rationale string `json:"rationale"`
		} `json:"items"`
	}

	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		return nil, fmt.Errorf("%w: parse satisfaction list: %v", ai.ErrMalformedResponse, err)
	}

	known := make(map[string]string, len(reqs))
	byText := make(map[string]string, len(reqs))
	for _, r := range reqs {
		known[r.ID] = r.ID
		byText[r.Text] = r.ID
	}

	sat := make(requirements.SatisfactionMap, len(reqs))
	for _, item := range payload.Items {
		id, ok := known[strings.TrimSpace(item.ID)]
		if !ok {
			// Some models echo the requirement text instead of the id.
			if id, ok = byText[strings.TrimSpace(item.ID)]; !ok {
				o.logger.Debug("ignoring unknown requirement in model response",
					zap.String("echoed_id", item.ID),
				)
				continue
			}
		}
		sat[id] = coerceBool(item.Satisfied)
	}

	for _, r := range reqs {
		if _, ok := sat[r.ID]; !ok {
			o.logger.Warn("requirement missing from model response, treating as unsatisfied",
				zap.String("requirement_id", r.ID),
				zap.String("requirement", utils.TruncateForLog(r.Text, o.maxLogLen)),
			)
		}
	}

	return sat, nil
}

// InterpretAnswer judges whether the candidate's free-text answer shows the
// requirement is met.
func (o *Oracle) InterpretAnswer(ctx context.Context, req requirements.Requirement, answer string) (*ai.Judgment, error) {
	message := fmt.Sprintf("Requirement: %s\nCandidate answer: %s", req.Text, answer)

	raw, err := o.generate(ctx, "interpret_answer", interpretPrompt, message)
	if err != nil {
		return nil, err
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &data); err != nil {
		return nil, fmt.Errorf("%w: parse judgment: %v", ai.ErrMalformedResponse, err)
	}

	return &ai.Judgment{
		Satisfied: coerceBool(data["satisfied"]),
		Rationale: coerceString(data["rationale"]),
		Raw:       raw,
	}, nil
}

// Summarize folds the previous summary and the recent history window into an
// updated rolling summary.
func (o *Oracle) Summarize(ctx context.Context, previous string, recent []ai.Turn) (string, error) {
	var history strings.Builder
	for _, turn := range recent {
		fmt.Fprintf(&history, "%s: %s\n", turn.Speaker, turn.Text)
	}

	if previous == "" {
		previous = "(empty)"
	}

	message := fmt.Sprintf("Previous summary:\n%s\n\nRecent history:\n%s", previous, history.String())

	raw, err := o.generate(ctx, "summarize", summarizePrompt, message)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(raw), nil
}

func (o *Oracle) generate(ctx context.Context, capability, system, message string) (string, error) {
	o.logger.Debug("gemini generate content request",
		zap.String("capability", capability),
		zap.Int("message_length", utf8.RuneCountInString(message)),
		zap.String("message_preview", utils.TruncateForLog(message, o.maxLogLen)),
	)

	raw, err := o.generator.GenerateContent(ctx, system, message)
	if err != nil {
		return "", err
	}

	o.logger.Debug("gemini generate content response",
		zap.String("capability", capability),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, o.maxLogLen)),
	)

	return raw, nil
}

func parseKind(s string) requirements.Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "optional", "opcional", "valorable", "deseable":
		return requirements.KindOptional
	default:
		return requirements.KindMandatory
	}
}

func parseCombinator(s string) requirements.Combinator {
	if strings.EqualFold(strings.TrimSpace(s), "OR") {
		return requirements.CombinatorOR
	}
	return requirements.CombinatorAND
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		lower := strings.ToLower(strings.TrimSpace(val))
		return lower == "true" || lower == "yes"
	case float64:
		return val != 0
	default:
		return false
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
