package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/interviewd/interviewd/internal/llm"
	"github.com/interviewd/interviewd/internal/logger"
)

type stubCompleter struct {
	responses []string
	index     int
	err       error
	failures  int

	calls       int
	lastSystem  string
	lastInput   string
	lastHistory []llm.Message
}

func (s *stubCompleter) Complete(_ context.Context, system string, history []llm.Message, input string) (string, error) {
	s.calls++
	s.lastSystem = system
	s.lastInput = input
	s.lastHistory = append([]llm.Message(nil), history...)

	if s.err != nil && (s.failures == 0 || s.calls <= s.failures) {
		return "", s.err
	}

	if s.index >= len(s.responses) {
		return "", errors.New("no more stub responses")
	}

	response := s.responses[s.index]
	s.index++
	return response, nil
}

type hangingCompleter struct{}

func (hangingCompleter) Complete(ctx context.Context, _ string, _ []llm.Message, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func newTestSession(completer llm.Completer) *Session {
	return newSession("session-1", "Mock resume", "Mock job description", testSpec(), completer, wordCounter{})
}

func newTestController() *Controller {
	return NewController(ControllerConfig{RetryBackoff: time.Millisecond}, zap.NewNop())
}

func TestInterviewFlow(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{responses: []string{
		"<interview_stage>introduction</interview_stage><interviewer>Hello!</interviewer>",
		"<interview_stage>technical</interview_stage><interviewer>Tell me about Go interfaces.</interviewer>",
		"<interview_stage>closing</interview_stage><interviewer>Thanks for your time.</interviewer>",
	}}

	s := newTestSession(stub)
	c := newTestController()

	start, err := c.Start(context.Background(), s)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if start.Stage != StageIntroduction {
		t.Fatalf("expected introduction stage, got %q", start.Stage)
	}
	if start.Content != "Hello!" {
		t.Fatalf("unexpected opening content: %q", start.Content)
	}
	if !strings.Contains(stub.lastSystem, "Mock resume") || !strings.Contains(stub.lastSystem, "Mock job description") {
		t.Fatalf("system prompt missing documents: %q", stub.lastSystem)
	}
	if stub.lastInput != "Start the interview with the introduction and small talk stage." {
		t.Fatalf("unexpected start instruction: %q", stub.lastInput)
	}

	wantStartUsage := len(strings.Fields(stub.lastInput))
	if start.Usage.InputUnits != wantStartUsage {
		t.Fatalf("expected %d input units after start, got %d", wantStartUsage, start.Usage.InputUnits)
	}

	submit, err := c.Submit(context.Background(), s, "I have 5 years experience")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if submit.Stage != StageTechnical {
		t.Fatalf("expected technical stage, got %q", submit.Stage)
	}
	if !strings.Contains(stub.lastInput, "The candidate's response: I have 5 years experience") {
		t.Fatalf("unexpected framing: %q", stub.lastInput)
	}
	if len(stub.lastHistory) != 2 {
		t.Fatalf("expected 2 history messages on second turn, got %d", len(stub.lastHistory))
	}
	if stub.lastHistory[1].Role != llm.RoleAssistant {
		t.Fatalf("expected assistant history entry, got %q", stub.lastHistory[1].Role)
	}

	transcript := s.Transcript()
	if len(transcript) != 3 {
		t.Fatalf("expected 3 transcript entries, got %d", len(transcript))
	}
	if transcript[0].Role != RoleInterviewer || transcript[0].Stage != "introduction" {
		t.Fatalf("unexpected first entry: %+v", transcript[0])
	}
	if transcript[1].Role != RoleCandidate || transcript[1].Content != "I have 5 years experience" {
		t.Fatalf("unexpected second entry: %+v", transcript[1])
	}
	if transcript[2].Role != RoleInterviewer || transcript[2].Stage != "technical" {
		t.Fatalf("unexpected third entry: %+v", transcript[2])
	}

	closing, err := c.End(context.Background(), s)
	if err != nil {
		t.Fatalf("end: %v", err)
	}

	if closing.Summary != "Thanks for your time." {
		t.Fatalf("unexpected summary: %q", closing.Summary)
	}
	if closing.NextSteps == "" {
		t.Fatalf("expected static next steps text")
	}

	final := s.Transcript()
	if last := final[len(final)-1]; last.Stage != StageClosing.String() {
		t.Fatalf("expected closing stage on final entry, got %q", last.Stage)
	}
	if s.Stage() != StageClosing {
		t.Fatalf("expected session stage closing, got %q", s.Stage())
	}
}

func TestEndForcesClosingStage(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{responses: []string{
		"<interview_stage>introduction</interview_stage><interviewer>Hi.</interviewer>",
		"<interview_stage>candidate</interview_stage><interviewer>Any questions? Goodbye.</interviewer>",
	}}

	s := newTestSession(stub)
	c := newTestController()

	if _, err := c.Start(context.Background(), s); err != nil {
		t.Fatalf("start: %v", err)
	}

	closing, err := c.End(context.Background(), s)
	if err != nil {
		t.Fatalf("end: %v", err)
	}

	if closing.Summary != "Any questions? Goodbye." {
		t.Fatalf("unexpected summary: %q", closing.Summary)
	}

	transcript := s.Transcript()
	if last := transcript[len(transcript)-1]; last.Stage != "closing" {
		t.Fatalf("expected forced closing stage, got %q", last.Stage)
	}
}

func TestEndWithoutMarkupFallsBackToRawText(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{responses: []string{
		"<interview_stage>introduction</interview_stage><interviewer>Hi.</interviewer>",
		"Thank you, we will be in touch.",
	}}

	s := newTestSession(stub)
	c := newTestController()

	if _, err := c.Start(context.Background(), s); err != nil {
		t.Fatalf("start: %v", err)
	}

	closing, err := c.End(context.Background(), s)
	if err != nil {
		t.Fatalf("end: %v", err)
	}

	if closing.Summary != "Thank you, we will be in touch." {
		t.Fatalf("unexpected summary: %q", closing.Summary)
	}
}

func TestLifecycleGuards(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{responses: []string{
		"<interview_stage>introduction</interview_stage><interviewer>Hi.</interviewer>",
		"<interviewer>Bye.</interviewer>",
	}}

	s := newTestSession(stub)
	c := newTestController()

	if _, err := c.Submit(context.Background(), s, "early"); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
	if _, err := c.End(context.Background(), s); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted for early end, got %v", err)
	}

	if _, err := c.Start(context.Background(), s); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := c.Start(context.Background(), s); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}

	if _, err := c.End(context.Background(), s); err != nil {
		t.Fatalf("end: %v", err)
	}
	if _, err := c.Submit(context.Background(), s, "late"); !errors.Is(err, ErrEnded) {
		t.Fatalf("expected ErrEnded, got %v", err)
	}
	if _, err := c.End(context.Background(), s); !errors.Is(err, ErrEnded) {
		t.Fatalf("expected ErrEnded for double end, got %v", err)
	}
}

func TestSubmitRollsBackCandidateEntryOnFailure(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{
		responses: []string{"<interview_stage>introduction</interview_stage><interviewer>Hi.</interviewer>"},
	}

	s := newTestSession(stub)
	c := newTestController()

	if _, err := c.Start(context.Background(), s); err != nil {
		t.Fatalf("start: %v", err)
	}

	before := s.Statistics()
	stub.err = llm.NewPermanentError(fmt.Errorf("api key rejected"))

	if _, err := c.Submit(context.Background(), s, "answer"); err == nil {
		t.Fatalf("expected provider error")
	}

	transcript := s.Transcript()
	if len(transcript) != 1 {
		t.Fatalf("expected candidate entry rollback, transcript has %d entries", len(transcript))
	}

	if after := s.Statistics(); after != before {
		t.Fatalf("usage must not change on failed turn: %+v vs %+v", before, after)
	}
}

func TestCompleteRetriesTransientErrors(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{
		responses: []string{"<interview_stage>introduction</interview_stage><interviewer>Hi.</interviewer>"},
		err:       errors.New("rate limited"),
		failures:  1,
	}

	s := newTestSession(stub)
	c := NewController(ControllerConfig{MaxRetries: 2, RetryBackoff: time.Millisecond}, zap.NewNop())

	if _, err := c.Start(context.Background(), s); err != nil {
		t.Fatalf("expected retry to recover: %v", err)
	}

	if stub.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", stub.calls)
	}
}

func TestCompleteDoesNotRetryPermanentErrors(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{err: llm.NewPermanentError(errors.New("bad request"))}

	s := newTestSession(stub)
	c := NewController(ControllerConfig{MaxRetries: 3, RetryBackoff: time.Millisecond}, zap.NewNop())

	if _, err := c.Start(context.Background(), s); err == nil {
		t.Fatalf("expected error")
	}

	if stub.calls != 1 {
		t.Fatalf("expected a single call for permanent error, got %d", stub.calls)
	}
}

func TestProviderTimeout(t *testing.T) {
	t.Parallel()

	s := newTestSession(hangingCompleter{})
	c := NewController(ControllerConfig{ProviderTimeout: 10 * time.Millisecond, RetryBackoff: time.Millisecond}, zap.NewNop())

	_, err := c.Start(context.Background(), s)
	if !errors.Is(err, ErrProviderTimeout) {
		t.Fatalf("expected ErrProviderTimeout, got %v", err)
	}

	if len(s.Transcript()) != 0 {
		t.Fatalf("timeout must not leave transcript entries")
	}

	if snap := s.Statistics(); snap.TotalUnits != 0 {
		t.Fatalf("timeout must not record usage: %+v", snap)
	}
}

func TestUnknownStageWarningCarriesStageField(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	c := NewController(ControllerConfig{RetryBackoff: time.Millisecond}, zap.New(core))

	stub := &stubCompleter{responses: []string{"<interviewer>No stage marker here.</interviewer>"}}
	s := newTestSession(stub)

	turn, err := c.Start(context.Background(), s)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if turn.Stage != StageUnknown {
		t.Fatalf("expected unknown stage, got %q", turn.Stage)
	}

	entries := logs.FilterMessage("model output carried no recognizable stage label").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(entries))
	}

	if _, ok := entries[0].ContextMap()[logger.FieldStage]; !ok {
		t.Fatalf("expected the warning to carry the %q field, got %v", logger.FieldStage, entries[0].ContextMap())
	}
}
