// Package apierr defines the gateway's error taxonomy: a small set of
// sentinel kinds every component wraps its failures in, so the tool server
// can classify any error into a stable JSON-RPC error without type-switching
// on component-specific error structs.
package apierr

import (
	"errors"
	"fmt"
)

// Kind is a stable error classification surfaced to callers.
type Kind string

const (
	NotFound           Kind = "not_found"
	InvalidArgument    Kind = "invalid_argument"
	OutOfBounds        Kind = "out_of_bounds"
	Unavailable        Kind = "unavailable"
	ExtractionFailed   Kind = "extraction_failed"
	IntegrityViolation Kind = "integrity_violation"
	Internal           Kind = "internal"
)

// Error is a sentinel error carrying a Kind and a human-readable message.
// Component errors wrap one of the package-level sentinels (NotFoundErr,
// InvalidArgumentErr, ...) via fmt.Errorf("...: %w", err) so errors.Is still
// matches the kind after wrapping.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return e.Msg
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels to wrap with fmt.Errorf("...: %w", apierr.NotFoundErr) and match
// with errors.Is.
var (
	NotFoundErr           = &Error{Kind: NotFound}
	InvalidArgumentErr    = &Error{Kind: InvalidArgument}
	OutOfBoundsErr        = &Error{Kind: OutOfBounds}
	UnavailableErr        = &Error{Kind: Unavailable}
	ExtractionFailedErr   = &Error{Kind: ExtractionFailed}
	IntegrityViolationErr = &Error{Kind: IntegrityViolation}
	InternalErr           = &Error{Kind: Internal}
)

// New builds an *Error with a formatted message under the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error, preserving it for errors.Is
// and errors.Unwrap via %w.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w: %w", msg, &Error{Kind: kind}, err)
}

// KindOf classifies any error into a Kind, defaulting to Internal when no
// component-level kind was attached.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// IsNotFound reports whether err carries the NotFound kind.
func IsNotFound(err error) bool { return KindOf(err) == NotFound }

// InvalidArgumentf builds an InvalidArgument error.
func InvalidArgumentf(format string, args ...any) error {
	return New(InvalidArgument, format, args...)
}

// NotFoundf builds a NotFound error.
func NotFoundf(format string, args ...any) error {
	return New(NotFound, format, args...)
}

// Unavailablef builds an Unavailable error.
func Unavailablef(format string, args ...any) error {
	return New(Unavailable, format, args...)
}

// ExtractionFailedf builds an ExtractionFailed error, wrapping cause.
func ExtractionFailedf(cause error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if cause != nil {
		return fmt.Errorf("%s: %w: %w", msg, &Error{Kind: ExtractionFailed}, cause)
	}
	return New(ExtractionFailed, "%s", msg)
}

// Internalf builds an Internal error.
func Internalf(format string, args ...any) error {
	return New(Internal, format, args...)
}
