package llm

import (
	"context"
	"errors"
)

// ErrUnsupportedModel indicates the requested model id is not in the catalog.
var ErrUnsupportedModel = errors.New("unsupported model")

// Role tags one side of the conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation turn as seen by a completion provider.
type Message struct {
	Role    Role
	Content string
}

// Completer submits a conversation to a backing model and returns the
// generated text. The system framing and ordered history are passed explicitly
// on every call; implementations hold no conversation state.
type Completer interface {
	Complete(ctx context.Context, system string, history []Message, input string) (string, error)
}

// PermanentError marks a provider failure that will not resolve with retries,
// such as a rejected API key or an invalid request.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// NewPermanentError wraps err as a PermanentError.
func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err carries a PermanentError.
func IsPermanent(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm)
}
