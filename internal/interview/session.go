package interview

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/interviewd/interviewd/internal/llm"
	"github.com/interviewd/interviewd/internal/tokenizer"
)

// EntryRole tags one side of the transcript.
type EntryRole string

const (
	RoleCandidate   EntryRole = "candidate"
	RoleInterviewer EntryRole = "interviewer"
)

// TranscriptEntry is one utterance in the append-only transcript. Stage is
// populated only for interviewer entries and carries the label the model
// actually emitted.
type TranscriptEntry struct {
	Role      EntryRole `json:"role"`
	Content   string    `json:"content"`
	Stage     string    `json:"stage,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type sessionState int

const (
	stateNotStarted sessionState = iota
	stateInProgress
	stateEnded
)

// Session is the per-interview conversation state: the transcript shown to
// callers, the provider-facing message history, and the usage counters. All
// mutation happens under mu with at most one turn in flight; concurrent turns
// against the same session serialize.
type Session struct {
	id             string
	resume         string
	jobDescription string
	spec           llm.ModelSpec
	completer      llm.Completer
	system         string

	mu         sync.Mutex
	state      sessionState
	stage      Stage
	transcript []TranscriptEntry
	history    []llm.Message
	accountant *Accountant
	createdAt  time.Time

	// lastActive holds unix nanoseconds. It is atomic so the registry's
	// eviction callback can read it without contending with an in-flight
	// turn, which holds mu across the whole provider call.
	lastActive atomic.Int64
}

func newSession(id, resume, jobDescription string, spec llm.ModelSpec, completer llm.Completer, counter tokenizer.Counter) *Session {
	now := time.Now()
	s := &Session{
		id:             id,
		resume:         resume,
		jobDescription: jobDescription,
		spec:           spec,
		completer:      completer,
		system:         systemPrompt(resume, jobDescription),
		stage:          StageUnknown,
		accountant:     NewAccountant(counter, spec),
		createdAt:      now,
	}
	s.lastActive.Store(now.UnixNano())

	return s
}

// ID returns the opaque session identifier.
func (s *Session) ID() string { return s.id }

// Model returns the session's model id.
func (s *Session) Model() string { return s.spec.ID }

// Stage returns the most recently derived interview stage.
func (s *Session) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// Transcript returns a copy of the ordered transcript.
func (s *Session) Transcript() []TranscriptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]TranscriptEntry, len(s.transcript))
	copy(entries, s.transcript)
	return entries
}

// Statistics returns the current usage snapshot.
func (s *Session) Statistics() UsageSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accountant.Snapshot()
}

// LastActive reports when the session last completed an operation. It never
// takes the session lock: the registry reads it from eviction callbacks that
// run under the session map's internal lock.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// appendEntry adds a transcript entry. Callers hold mu.
func (s *Session) appendEntry(entry TranscriptEntry) {
	entry.Timestamp = time.Now()
	s.transcript = append(s.transcript, entry)
}

// dropLastEntry unwinds the most recent transcript append when a turn fails
// after the candidate entry was recorded. Callers hold mu.
func (s *Session) dropLastEntry() {
	if len(s.transcript) > 0 {
		s.transcript = s.transcript[:len(s.transcript)-1]
	}
}

// appendExchange records one provider round trip in the conversation history.
// Callers hold mu.
func (s *Session) appendExchange(input, output string) {
	s.history = append(s.history,
		llm.Message{Role: llm.RoleUser, Content: input},
		llm.Message{Role: llm.RoleAssistant, Content: output},
	)
}

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}
