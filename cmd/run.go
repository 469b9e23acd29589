package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/mlorente/cv-screener/internal/ai"
	"github.com/mlorente/cv-screener/internal/ai/gemini"
	"github.com/mlorente/cv-screener/internal/interview"
	"github.com/mlorente/cv-screener/internal/logger"
	"github.com/mlorente/cv-screener/internal/requirements"
	"github.com/mlorente/cv-screener/internal/scoring"
	"github.com/mlorente/cv-screener/internal/secrets"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var interviewPrompt = promptui.Select{
	Label: "Some requirements were not found in the CV. Interview the candidate about them?",
	Items: []string{PromptYes, PromptNo},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the cv-screener main command",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before the interview phase")
	runCmd.Flags().Bool("skip-interview", false, "score the CV only, never interview the candidate")
	runCmd.Flags().String("job-file", "", "read the job posting from a file instead of stdin")
	runCmd.Flags().String("cv-file", "", "read the CV from a file instead of stdin")
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	logger = logger.With(zap.String("session_id", uuid.NewString()))

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the cv-screener", zap.String("version", version))

	oracle, err := newOracle(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("building the ai oracle", zap.Error(err))
	}

	jobText, err := readInput(cmd, "job-file", "Paste the job posting, finish with an empty line:")
	if err != nil {
		logger.Fatal("reading the job posting", zap.Error(err))
	}

	cvText, err := readInput(cmd, "cv-file", "Paste the CV, finish with an empty line:")
	if err != nil {
		logger.Fatal("reading the CV", zap.Error(err))
	}

	reqs, err := oracle.ExtractRequirements(ctx, jobText)
	if err != nil {
		logger.Fatal("extracting requirements", zap.Error(err))
	}

	if len(reqs) == 0 {
		logger.Warn("nothing to score", zap.Error(ai.ErrNoRequirements))
		fmt.Println("No requirements could be extracted from the job posting. Nothing to score.")
		return
	}

	fmt.Printf("Extracted %d requirements:\n", len(reqs))
	for _, r := range reqs {
		printRequirement(r)
	}

	sat, err := oracle.MatchCV(ctx, reqs, cvText)
	if err != nil {
		logger.Fatal("matching the CV", zap.Error(err))
	}

	eval := scoring.Score(reqs, sat)
	printEvaluation(eval)

	if eval.Discarded {
		printVerdict(eval)
		return
	}

	final := eval
	if len(eval.NotFound) > 0 && cmd.Flag("skip-interview").Value.String() == "false" {
		approved := true
		if cmd.Flag("auto-approve").Value.String() == "false" {
			_, action, err := interviewPrompt.Run()
			if err != nil {
				logger.Fatal("exiting", zap.Error(err))
			}
			approved = action == PromptYes
		}

		if approved {
			pending := requirements.DedupByText(eval.NotFound)

			session := interview.NewSession(oracle, &consolePrompter{}, config.Interview.HistoryWindow, logger)

			outcome, err := session.Run(ctx, pending, "")
			if err != nil {
				logger.Fatal("running the interview", zap.Error(err))
			}

			if outcome.Summary != "" {
				fmt.Printf("\nInterview summary:\n%s\n", outcome.Summary)
			}

			fulfilled := requirements.SelectByText(eval.NotFound, outcome.Fulfilled)
			final = scoring.Reconcile(reqs, eval.Matching, fulfilled)
		}
	}

	printVerdict(final)
}

func newOracle(ctx context.Context, cfg *AIConfig, baseLogger *zap.Logger) (ai.Oracle, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	genLogger := logger.WithCommonFields(baseLogger, "gemini", cfg.Gemini.Model)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	oracleLogger := logger.WithCommonFields(baseLogger, "gemini", generator.Model())

	return gemini.NewOracle(generator, cfg.Gemini.MaxLogLength, oracleLogger), nil
}

// readInput reads a text block from the file named by the flag, falling back
// to an interactive multi-line stdin read terminated by an empty line.
func readInput(cmd *cobra.Command, flagName, banner string) (string, error) {
	if path := cmd.Flag(flagName).Value.String(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}

	fmt.Println(banner)

	var lines []string
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			break
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}

	text := strings.TrimSpace(strings.Join(lines, "\n"))
	if text == "" {
		return "", errors.New("no input provided")
	}

	return text, nil
}

func printRequirement(r requirements.Requirement) {
	label := string(r.Kind)
	if r.Group != "" {
		label = fmt.Sprintf("%s, %s of group %q", label, strings.ToUpper(string(r.Combinator)), r.Group)
	}
	fmt.Printf("  [%s] %s\n", label, r.Text)
}

func printEvaluation(eval *scoring.Evaluation) {
	fmt.Printf("\nCV evaluation: score %.2f%%\n", eval.Score)

	if len(eval.Matching) > 0 {
		fmt.Println("Matching:")
		for _, r := range eval.Matching {
			printRequirement(r)
		}
	}
	if len(eval.Unmatching) > 0 {
		fmt.Println("Unmatching:")
		for _, r := range eval.Unmatching {
			printRequirement(r)
		}
	}
	if len(eval.NotFound) > 0 {
		fmt.Println("Not found in the CV:")
		for _, r := range eval.NotFound {
			printRequirement(r)
		}
	}
}

func printVerdict(eval *scoring.Evaluation) {
	if eval.Discarded {
		fmt.Printf("\nVerdict: discarded (a mandatory requirement is not met). Final score: %.2f%%\n", eval.Score)
		return
	}

	fmt.Printf("\nVerdict: not discarded. Final score: %.2f%%\n", eval.Score)
}

// consolePrompter asks interview questions on the terminal.
type consolePrompter struct{}

func (p *consolePrompter) Greet() {
	fmt.Println("\nStarting the interview. Answer each question in one line.")
}

func (p *consolePrompter) Ask(req requirements.Requirement) (string, error) {
	fmt.Println()
	fmt.Println(interview.QuestionFor(req))

	answer := promptui.Prompt{Label: "Your answer"}

	return answer.Run()
}
