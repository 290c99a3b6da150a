package loop

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCandidates is returned when no pair satisfies the constraints
	ErrNoCandidates = errors.New("no loop candidates found")

	// ErrDegenerateInput is returned when the track cannot form any pair at all
	ErrDegenerateInput = errors.New("degenerate input")

	// ErrInvalidConfiguration is returned when the constraints contradict each other
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// ErrorKind classifies engine failures
type ErrorKind int

const (
	KindNoCandidates ErrorKind = iota
	KindDegenerateInput
	KindInvalidConfiguration
)

func (k ErrorKind) String() string {
	switch k {
	case KindNoCandidates:
		return "no_candidates"
	case KindDegenerateInput:
		return "degenerate_input"
	case KindInvalidConfiguration:
		return "invalid_configuration"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindNoCandidates:
		return ErrNoCandidates
	case KindDegenerateInput:
		return ErrDegenerateInput
	default:
		return ErrInvalidConfiguration
	}
}

// Error is the structured failure returned by Find
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind.sentinel(), e.Msg)
}

// Is reports whether target is the sentinel matching the error kind
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
