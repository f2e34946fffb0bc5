package interview

import "errors"

var (
	// ErrUnknownSession indicates the session id was never issued or has been evicted.
	ErrUnknownSession = errors.New("unknown interview session")
	// ErrAlreadyStarted indicates a start call on a session that is past the opening turn.
	ErrAlreadyStarted = errors.New("interview already started")
	// ErrNotStarted indicates a candidate message arrived before the opening turn.
	ErrNotStarted = errors.New("interview has not started")
	// ErrEnded indicates a turn was attempted after closing remarks.
	ErrEnded = errors.New("interview has ended")
	// ErrProviderTimeout indicates the completion call exceeded its deadline.
	ErrProviderTimeout = errors.New("completion provider timed out")
)
