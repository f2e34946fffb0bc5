package interview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/interviewd/interviewd/internal/llm"
	"github.com/interviewd/interviewd/internal/logger"
	"github.com/interviewd/interviewd/internal/tokenizer"
)

// CompleterFactory resolves a model id into a ready Completer and its spec.
// *llm.Factory is the production implementation.
type CompleterFactory interface {
	Completer(ctx context.Context, modelID string) (llm.Completer, llm.ModelSpec, error)
}

// RegistryConfig tunes session lifecycle.
type RegistryConfig struct {
	// IdleTTL evicts sessions with no activity for this long. Zero keeps
	// sessions for the process lifetime.
	IdleTTL time.Duration
	// MaxSessions caps live sessions; the least recently used is evicted
	// first. Zero means unlimited.
	MaxSessions int
}

// Registry owns the mapping from opaque session ids to live sessions.
// Sessions are evicted when idle past the TTL or when the cap is exceeded;
// an in-flight turn on an evicted session still completes, but the id can no
// longer be resolved.
type Registry struct {
	factory  CompleterFactory
	sessions *expirable.LRU[string, *Session]
	log      *zap.Logger
}

// NewRegistry creates a Registry over the given completer factory.
func NewRegistry(factory CompleterFactory, cfg RegistryConfig, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}

	r := &Registry{factory: factory, log: log}
	r.sessions = expirable.NewLRU(cfg.MaxSessions, r.onEvict, cfg.IdleTTL)

	return r
}

func (r *Registry) onEvict(id string, s *Session) {
	logger.WithFields(r.log, logger.SessionFields(id, s.Model())...).
		Info("interview session dropped from registry",
			zap.Time("last_active", s.LastActive()),
		)
}

// Create builds a session for the given documents and model id and returns
// it. An unknown model yields llm.ErrUnsupportedModel and no registry entry.
func (r *Registry) Create(ctx context.Context, resume, jobDescription, modelID string) (*Session, error) {
	if strings.TrimSpace(resume) == "" {
		return nil, fmt.Errorf("resume text is required")
	}
	if strings.TrimSpace(jobDescription) == "" {
		return nil, fmt.Errorf("job description text is required")
	}

	completer, spec, err := r.factory.Completer(ctx, modelID)
	if err != nil {
		return nil, err
	}

	counter, err := tokenizer.New(spec.Encoding)
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", spec.ID, err)
	}

	s := newSession(uuid.NewString(), resume, jobDescription, spec, completer, counter)
	r.sessions.Add(s.ID(), s)

	logger.WithFields(r.log, logger.SessionFields(s.ID(), spec.ID)...).
		Info("created interview session", zap.Int("live_sessions", r.sessions.Len()))

	return s, nil
}

// Get resolves a session id. Resolution refreshes the idle clock.
func (r *Registry) Get(id string) (*Session, error) {
	s, ok := r.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSession, id)
	}

	// Re-adding resets the entry TTL; Get alone only refreshes recency.
	r.sessions.Add(id, s)

	return s, nil
}

// Remove drops a session. It reports whether the id was present.
func (r *Registry) Remove(id string) bool {
	return r.sessions.Remove(id)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return r.sessions.Len()
}
