package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure crossing a repository boundary.
type ErrorKind int

const (
	// KindValidation: caller input failed a local precondition. Nothing was
	// sent to the marketplace and nothing was written.
	KindValidation ErrorKind = iota + 1
	// KindApplication: the marketplace understood the request and declined it.
	KindApplication
	// KindTransport: network, timeout, or malformed response.
	KindTransport
	// KindBestEffort: a non-fatal step (seeding, bulk mark-as-read) failed and
	// was skipped.
	KindBestEffort
	// KindSuperseded: the request was abandoned or a newer request for the
	// same query started; its result was discarded.
	KindSuperseded
)

// String returns a short label for logs.
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindApplication:
		return "application"
	case KindTransport:
		return "transport"
	case KindBestEffort:
		return "best_effort"
	case KindSuperseded:
		return "superseded"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is the typed failure value returned by the marketplace client and the
// repositories.
type Error struct {
	Kind    ErrorKind
	Op      string // e.g. "place bid"
	Message string // human-readable, shown to users
	Err     error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op + " failed"
}

func (e *Error) Unwrap() error { return e.Err }

// ValidationError returns a KindValidation error.
func ValidationError(op, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: msg}
}

// ApplicationError returns a KindApplication error carrying the server message.
func ApplicationError(op, msg string) *Error {
	if msg == "" {
		msg = "failed to " + op
	}
	return &Error{Kind: KindApplication, Op: op, Message: msg}
}

// TransportError wraps a transport-level cause. The message stays generic;
// the cause is available through errors.Unwrap.
func TransportError(op string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Message: "failed to " + op + ": network error", Err: err}
}

// SupersededError marks a discarded result.
func SupersededError(op string, err error) *Error {
	return &Error{Kind: KindSuperseded, Op: op, Message: op + " superseded", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
