package interview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/interviewd/interviewd/internal/llm"
	"github.com/interviewd/interviewd/internal/logger"
	"github.com/interviewd/interviewd/internal/utils"
)

// The per-turn framing instructions. The stage protocol lives in the system
// prompt; each turn sends only a short instruction and relies on the
// accumulated conversation history for context.
const (
	startInstruction    = "Start the interview with the introduction and small talk stage."
	continueInstruction = "The candidate's response: %s\nContinue the interview based on the current stage and the candidate's response."
	closingInstruction  = "Provide closing remarks and explain the next steps in the hiring process."
)

// NextSteps is the static follow-up text returned with closing remarks.
const NextSteps = "Thank you for completing the mock interview. Review the transcript and statistics, " +
	"note the questions that felt hardest, and rerun the session with the same job description to practice them again."

// TurnResult is the structured outcome of one interview turn.
type TurnResult struct {
	Stage    Stage
	RawStage string
	Content  string
	Usage    UsageSnapshot
}

// ClosingResult is the structured outcome of the closing turn.
type ClosingResult struct {
	Summary   string
	NextSteps string
	Usage     UsageSnapshot
}

// ControllerConfig tunes turn execution.
type ControllerConfig struct {
	// ProviderTimeout bounds each completion call. Zero disables the bound.
	ProviderTimeout time.Duration
	// MaxRetries is the number of additional attempts for transient provider
	// errors. Timeouts and permanent errors are never retried.
	MaxRetries int
	// RetryBackoff is the initial wait between attempts; it doubles per retry.
	RetryBackoff time.Duration
}

// Controller orchestrates turn-taking for interview sessions: it frames the
// instruction, calls the completion provider, extracts stage and content,
// and updates transcript and usage as one unit under the session lock.
type Controller struct {
	cfg ControllerConfig
	log *zap.Logger
}

// NewController creates a Controller.
func NewController(cfg ControllerConfig, log *zap.Logger) *Controller {
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{cfg: cfg, log: log}
}

// Start performs the opening turn.
func (c *Controller) Start(ctx context.Context, s *Session) (TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateInProgress:
		return TurnResult{}, ErrAlreadyStarted
	case stateEnded:
		return TurnResult{}, ErrEnded
	}

	raw, err := c.complete(ctx, s, startInstruction)
	if err != nil {
		return TurnResult{}, err
	}

	result := c.recordInterviewerTurn(s, startInstruction, raw)
	s.state = stateInProgress
	s.touch()

	return result, nil
}

// Submit processes one candidate utterance. The candidate transcript entry is
// appended before the provider call and rolled back if the call fails, so a
// failed turn leaves no partial state.
func (c *Controller) Submit(ctx context.Context, s *Session, candidateText string) (TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateNotStarted:
		return TurnResult{}, ErrNotStarted
	case stateEnded:
		return TurnResult{}, ErrEnded
	}

	s.appendEntry(TranscriptEntry{Role: RoleCandidate, Content: candidateText})

	instruction := fmt.Sprintf(continueInstruction, candidateText)

	raw, err := c.complete(ctx, s, instruction)
	if err != nil {
		s.dropLastEntry()
		return TurnResult{}, err
	}

	result := c.recordInterviewerTurn(s, instruction, raw)
	s.touch()

	return result, nil
}

// End performs the closing turn. The stage label is forced to closing: models
// routinely omit the stage marker in closing remarks, and a fixed label keeps
// the final transcript entry well-formed.
func (c *Controller) End(ctx context.Context, s *Session) (ClosingResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateNotStarted:
		return ClosingResult{}, ErrNotStarted
	case stateEnded:
		return ClosingResult{}, ErrEnded
	}

	raw, err := c.complete(ctx, s, closingInstruction)
	if err != nil {
		return ClosingResult{}, err
	}

	summary := ExtractInterviewer(raw)
	if summary == "" {
		// Closing remarks often arrive without markup at all.
		summary = raw
	}

	s.appendEntry(TranscriptEntry{
		Role:    RoleInterviewer,
		Content: summary,
		Stage:   StageClosing.String(),
	})
	s.appendExchange(closingInstruction, raw)
	s.accountant.Record(closingInstruction, raw)
	s.stage = StageClosing
	s.state = stateEnded
	s.touch()

	return ClosingResult{
		Summary:   summary,
		NextSteps: NextSteps,
		Usage:     s.accountant.Snapshot(),
	}, nil
}

// recordInterviewerTurn extracts stage and content from the raw response and
// applies the transcript, history, and usage updates. Callers hold the
// session lock.
func (c *Controller) recordInterviewerTurn(s *Session, instruction, raw string) TurnResult {
	rawStage := ExtractStage(raw)
	content := ExtractInterviewer(raw)
	stage := ParseStage(rawStage)

	if stage == StageUnknown {
		logger.WithFields(c.log, logger.SessionFields(s.id, s.spec.ID)...).
			Warn("model output carried no recognizable stage label",
				zap.String(logger.FieldStage, rawStage),
				zap.String("response_preview", logger.TruncateForLog(raw, 200)))
	}

	s.appendEntry(TranscriptEntry{
		Role:    RoleInterviewer,
		Content: content,
		Stage:   rawStage,
	})
	s.appendExchange(instruction, raw)
	s.accountant.Record(instruction, raw)
	s.stage = stage

	return TurnResult{
		Stage:    stage,
		RawStage: rawStage,
		Content:  content,
		Usage:    s.accountant.Snapshot(),
	}
}

// complete runs one provider call with deadline and bounded retry. Callers
// hold the session lock, which is what serializes turns per session.
func (c *Controller) complete(ctx context.Context, s *Session, input string) (string, error) {
	backoff := c.cfg.RetryBackoff

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			c.log.Debug("retrying completion call",
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
			if err := utils.WaitFor(ctx, backoff); err != nil {
				return "", fmt.Errorf("completion provider: %w", err)
			}
			backoff *= 2
		}

		raw, err := c.callProvider(ctx, s, input)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		if errors.Is(err, ErrProviderTimeout) || llm.IsPermanent(err) || ctx.Err() != nil {
			break
		}
	}

	return "", fmt.Errorf("completion provider: %w", lastErr)
}

func (c *Controller) callProvider(ctx context.Context, s *Session, input string) (string, error) {
	callCtx := ctx
	if c.cfg.ProviderTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.cfg.ProviderTimeout)
		defer cancel()
	}

	started := time.Now()
	raw, err := s.completer.Complete(callCtx, s.system, s.history, input)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("%w after %s", ErrProviderTimeout, time.Since(started).Round(time.Millisecond))
		}
		return "", err
	}

	return raw, nil
}
