package interview

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/interviewd/interviewd/internal/llm"
)

type stubSessionFactory struct {
	completer llm.Completer
}

func (f stubSessionFactory) Completer(_ context.Context, modelID string) (llm.Completer, llm.ModelSpec, error) {
	return f.completer, llm.ModelSpec{
		ID:              modelID,
		Provider:        llm.ProviderOpenAI,
		ContextWindow:   1000,
		MaxOutputTokens: 100,
	}, nil
}

// gateCompleter signals when a call is in flight and holds it until released.
type gateCompleter struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gateCompleter) Complete(context.Context, string, []llm.Message, string) (string, error) {
	close(g.entered)
	<-g.release
	return "<interview_stage>introduction</interview_stage><interviewer>hello</interviewer>", nil
}

func newTestRegistry(cfg RegistryConfig) *Registry {
	factory := llm.NewFactory(nil, map[llm.Provider]llm.ProviderConfig{
		llm.ProviderAnthropic: {APIKey: "test-key"},
	}, zap.NewNop())

	return NewRegistry(factory, cfg, zap.NewNop())
}

func TestRegistryCreateAndGet(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(RegistryConfig{})

	s, err := registry.Create(context.Background(), "resume text", "job text", "claude-3-5-sonnet")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if s.ID() == "" {
		t.Fatalf("expected non-empty session id")
	}

	got, err := registry.Get(s.ID())
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got != s {
		t.Fatalf("expected the same session instance")
	}

	if registry.Len() != 1 {
		t.Fatalf("expected 1 live session, got %d", registry.Len())
	}
}

func TestRegistryCreateUnsupportedModel(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(RegistryConfig{})

	_, err := registry.Create(context.Background(), "resume", "job", "not-a-model")
	if !errors.Is(err, llm.ErrUnsupportedModel) {
		t.Fatalf("expected ErrUnsupportedModel, got %v", err)
	}

	if registry.Len() != 0 {
		t.Fatalf("failed create must not register a session")
	}
}

func TestRegistryCreateMissingDocuments(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(RegistryConfig{})

	if _, err := registry.Create(context.Background(), "  ", "job", "claude-3-5-sonnet"); err == nil {
		t.Fatalf("expected error for missing resume")
	}

	if _, err := registry.Create(context.Background(), "resume", "", "claude-3-5-sonnet"); err == nil {
		t.Fatalf("expected error for missing job description")
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(RegistryConfig{})

	_, err := registry.Get("never-issued")
	if !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("expected ErrUnknownSession, got %v", err)
	}
}

func TestRegistryRemove(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(RegistryConfig{})

	s, err := registry.Create(context.Background(), "resume", "job", "claude-3-5-sonnet")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if !registry.Remove(s.ID()) {
		t.Fatalf("expected remove to report presence")
	}

	if _, err := registry.Get(s.ID()); !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("expected ErrUnknownSession after remove, got %v", err)
	}

	if registry.Remove(s.ID()) {
		t.Fatalf("expected remove to report absence on second call")
	}
}

func TestRegistryEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(RegistryConfig{MaxSessions: 2})

	first, err := registry.Create(context.Background(), "resume", "job", "claude-3-5-sonnet")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := registry.Create(context.Background(), "resume", "job", "claude-3-5-sonnet"); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := registry.Create(context.Background(), "resume", "job", "claude-3-5-sonnet"); err != nil {
		t.Fatalf("create: %v", err)
	}

	if registry.Len() != 2 {
		t.Fatalf("expected cap of 2 sessions, got %d", registry.Len())
	}

	if _, err := registry.Get(first.ID()); !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("expected oldest session evicted, got %v", err)
	}
}

func TestRegistryExpiresIdleSessions(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(RegistryConfig{IdleTTL: 50 * time.Millisecond})

	s, err := registry.Create(context.Background(), "resume", "job", "claude-3-5-sonnet")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	time.Sleep(150 * time.Millisecond)

	if _, err := registry.Get(s.ID()); !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("expected idle session to expire, got %v", err)
	}
}

func TestRegistryGetRefreshesIdleClock(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(RegistryConfig{IdleTTL: 300 * time.Millisecond})

	s, err := registry.Create(context.Background(), "resume", "job", "claude-3-5-sonnet")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Poll past the TTL in total; each Get must reset the idle clock.
	for i := 0; i < 4; i++ {
		time.Sleep(100 * time.Millisecond)
		if _, err := registry.Get(s.ID()); err != nil {
			t.Fatalf("get after refresh %d: %v", i, err)
		}
	}
}

func TestEvictingBusySessionDoesNotBlockRegistry(t *testing.T) {
	t.Parallel()

	completer := &gateCompleter{entered: make(chan struct{}), release: make(chan struct{})}
	registry := NewRegistry(stubSessionFactory{completer: completer}, RegistryConfig{}, zap.NewNop())

	s, err := registry.Create(context.Background(), "resume", "job", "test-model")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	controller := NewController(ControllerConfig{}, zap.NewNop())

	turnDone := make(chan struct{})
	go func() {
		defer close(turnDone)
		controller.Start(context.Background(), s)
	}()
	<-completer.entered

	if !registry.Remove(s.ID()) {
		t.Fatalf("expected remove to report presence")
	}

	created := make(chan struct{})
	go func() {
		defer close(created)
		if _, err := registry.Create(context.Background(), "resume", "job", "test-model"); err != nil {
			t.Errorf("create: %v", err)
		}
	}()

	select {
	case <-created:
	case <-time.After(time.Second):
		t.Fatal("registry blocked behind a session with an in-flight turn")
	}

	close(completer.release)
	<-turnDone
}
