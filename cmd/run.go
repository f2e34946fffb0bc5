package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/interviewd/interviewd/internal/document"
	"github.com/interviewd/interviewd/internal/interview"
	"github.com/interviewd/interviewd/internal/logger"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptSaveTranscript = "Save the transcript to a file"
	PromptShowStats      = "Show usage statistics"
	PromptQuit           = "Quit"

	// endSentinel ends the interview when typed as a candidate answer.
	endSentinel = "end interview"

	cmdInfo = "/info"
	cmdSave = "/save"
	cmdExit = "/exit"
)

var errExit = errors.New("exit requested")

var postInterviewPrompt = promptui.Select{
	Label: "Interview finished. What now?",
	Items: []string{PromptSaveTranscript, PromptShowStats, PromptQuit},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an interactive mock interview in the terminal",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("resume", "r", "", "path to the resume file (pdf or plain text)")
	runCmd.Flags().StringP("job-description", "b", "", "path to the job description file (pdf or plain text)")
	runCmd.Flags().StringP("model", "m", "", "model id to interview with")
	runCmd.Flags().StringP("transcript-file", "t", "", "file to save the transcript to (default <session id>.md)")

	runCmd.MarkFlagRequired("resume")
	runCmd.MarkFlagRequired("job-description")
	runCmd.MarkFlagRequired("model")
}

// run is the interactive interview loop for the cli.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Debug("starting the interviewd cli", zap.String("version", version))

	resume, err := document.ExtractFile(cmd.Flag("resume").Value.String())
	if err != nil {
		logger.Fatal("reading the resume", zap.Error(err))
	}

	jobDescription, err := document.ExtractFile(cmd.Flag("job-description").Value.String())
	if err != nil {
		logger.Fatal("reading the job description", zap.Error(err))
	}

	factory, err := buildFactory(config, logger)
	if err != nil {
		logger.Fatal("building the model catalog", zap.Error(err))
	}

	registry := interview.NewRegistry(factory, interview.RegistryConfig{}, logger)

	interviewCfg := buildInterviewConfig(config)
	controller := interview.NewController(interview.ControllerConfig{
		ProviderTimeout: interviewCfg.ProviderTimeout,
		MaxRetries:      interviewCfg.MaxRetries,
		RetryBackoff:    interviewCfg.RetryBackoff,
	}, logger)

	model := cmd.Flag("model").Value.String()
	session, err := registry.Create(ctx, resume, jobDescription, model)
	if err != nil {
		logger.Fatal("creating the interview session", zap.Error(err))
	}

	logger.Info("interview session created",
		zap.String("session_id", session.ID()),
		zap.String("model", session.Model()),
	)
	fmt.Printf("Type your answers below. Commands: %s, %s, %s. Typing %q finishes the interview.\n\n",
		cmdInfo, cmdSave, cmdExit, endSentinel)

	turn, err := controller.Start(ctx, session)
	if err != nil {
		logger.Fatal("starting the interview", zap.Error(err))
	}
	printTurn(turn)

	closing, err := interviewLoop(ctx, controller, session, logger)
	if errors.Is(err, errExit) {
		return
	}
	if err != nil {
		logger.Fatal("running the interview", zap.Error(err))
	}

	fmt.Printf("\nInterviewer: %s\n\n%s\n", closing.Summary, closing.NextSteps)
	printStats(closing.Usage)

	transcriptFile := cmd.Flag("transcript-file").Value.String()
	if err := postInterview(session, transcriptFile); err != nil {
		logger.Fatal("finishing up", zap.Error(err))
	}
}

func interviewLoop(ctx context.Context, controller *interview.Controller, session *interview.Session, logger *zap.Logger) (interview.ClosingResult, error) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return interview.ClosingResult{}, fmt.Errorf("reading input: %w", err)
			}
			// EOF ends the interview gracefully.
			return controller.End(ctx, session)
		}

		input := strings.TrimSpace(scanner.Text())
		switch {
		case input == "":
			continue
		case input == cmdExit:
			return interview.ClosingResult{}, errExit
		case input == cmdInfo:
			printStats(session.Statistics())
			continue
		case input == cmdSave:
			path, err := saveTranscript(session, "")
			if err != nil {
				logger.Warn("saving the transcript", zap.Error(err))
				continue
			}
			fmt.Printf("Transcript saved to %s\n", path)
			continue
		case strings.EqualFold(input, endSentinel):
			return controller.End(ctx, session)
		}

		turn, err := controller.Submit(ctx, session, input)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return interview.ClosingResult{}, errExit
			}
			logger.Warn("interviewer turn failed, try again", zap.Error(err))
			continue
		}

		printTurn(turn)
	}
}

func postInterview(session *interview.Session, transcriptFile string) error {
	for {
		_, action, err := postInterviewPrompt.Run()
		if err != nil {
			// promptui returns an error on interrupt as well.
			return nil
		}

		switch action {
		case PromptSaveTranscript:
			path, err := saveTranscript(session, transcriptFile)
			if err != nil {
				return err
			}
			fmt.Printf("Transcript saved to %s\n", path)
		case PromptShowStats:
			printStats(session.Statistics())
		case PromptQuit:
			return nil
		}
	}
}

func printTurn(turn interview.TurnResult) {
	if turn.Stage != interview.StageUnknown {
		fmt.Printf("\n[%s]\n", turn.Stage)
	}
	fmt.Printf("Interviewer: %s\n\n", turn.Content)
}

func printStats(usage interview.UsageSnapshot) {
	fmt.Printf("Model: %s\nTokens: %d in / %d out / %d total\nCost: $%.4f\nContext: %.1f%% of %d\n",
		usage.Model,
		usage.InputUnits, usage.OutputUnits, usage.TotalUnits,
		usage.CostUSD,
		usage.ContextOccupancy, usage.ContextWindow,
	)
}

// saveTranscript renders the session transcript as markdown. An empty path
// defaults to <session id>.md in the current directory.
func saveTranscript(session *interview.Session, path string) (string, error) {
	if path == "" {
		path = session.ID() + ".md"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Mock interview %s\n\n", session.ID())
	fmt.Fprintf(&b, "- Model: %s\n- Finished: %s\n\n", session.Model(), time.Now().Format(time.RFC3339))

	for _, entry := range session.Transcript() {
		speaker := "Candidate"
		if entry.Role == interview.RoleInterviewer {
			speaker = "Interviewer"
		}
		if entry.Stage != "" {
			fmt.Fprintf(&b, "**%s** (%s):\n\n%s\n\n", speaker, entry.Stage, entry.Content)
			continue
		}
		fmt.Fprintf(&b, "**%s**:\n\n%s\n\n", speaker, entry.Content)
	}

	usage := session.Statistics()
	fmt.Fprintf(&b, "---\n\nTokens: %d in / %d out / %d total. Cost: $%.4f.\n",
		usage.InputUnits, usage.OutputUnits, usage.TotalUnits, usage.CostUSD)

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing the transcript: %w", err)
	}

	return path, nil
}
