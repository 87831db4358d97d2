package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the invocation boundary can choose a status
// code without inspecting message text.
type Kind int

const (
	// KindInternal covers everything unanticipated: store outages,
	// unrecognized event shapes, broken invariants. Mapped to HTTP 500 with a
	// generic body; detail goes to the logs only.
	KindInternal Kind = iota

	// KindClient marks malformed client input (bad JSON body, broken
	// multipart framing). Mapped to HTTP 400 with the message as body.
	KindClient

	// KindAuthProvider marks a failure reported by the identity provider
	// (error in the callback query, rejected code exchange). Mapped to
	// HTTP 401 with a rendered error page.
	KindAuthProvider
)

func (k Kind) String() string {
	switch k {
	case KindClient:
		return "client"
	case KindAuthProvider:
		return "auth_provider"
	default:
		return "internal"
	}
}

// Error carries a Kind through an error chain.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error from a message.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Err: errors.New(msg)}
}

// Newf creates a classified error from a format string.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies an existing error, preserving the chain for errors.Is/As.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// KindOf reports the Kind of the first classified error in the chain,
// defaulting to KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Common sentinel errors.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrFileNotFound    = errors.New("file not found")
)
