// Package engineerr defines the closed set of error kinds the season-cycle
// engine surfaces to its callers. Every package in the engine wraps its
// errors with one of these sentinels via fmt.Errorf("...: %w", ...) so
// callers can errors.Is/errors.As regardless of which layer raised it.
package engineerr

import (
	"errors"
	"fmt"
)

// Kind identifies which class of failure occurred.
type Kind string

const (
	KindPhaseViolation    Kind = "phase_violation"
	KindCapViolation      Kind = "cap_violation"
	KindInvalidTx         Kind = "invalid_transaction"
	KindPersistenceFailed Kind = "persistence_failure"
	KindSimulatorFailed   Kind = "simulator_failure"
	KindDuplicateEvent    Kind = "duplicate_event"
	KindNotFound          Kind = "not_found"
)

// Sentinels for errors.Is comparisons.
var (
	ErrPhaseViolation    = errors.New("phase violation")
	ErrCapViolation      = errors.New("cap violation")
	ErrInvalidTx         = errors.New("invalid transaction")
	ErrPersistenceFailed = errors.New("persistence failure")
	ErrSimulatorFailed   = errors.New("simulator failure")
	ErrDuplicateEvent    = errors.New("duplicate event")
	ErrNotFound          = errors.New("not found")
)

func sentinelFor(k Kind) error {
	switch k {
	case KindPhaseViolation:
		return ErrPhaseViolation
	case KindCapViolation:
		return ErrCapViolation
	case KindInvalidTx:
		return ErrInvalidTx
	case KindPersistenceFailed:
		return ErrPersistenceFailed
	case KindSimulatorFailed:
		return ErrSimulatorFailed
	case KindDuplicateEvent:
		return ErrDuplicateEvent
	case KindNotFound:
		return ErrNotFound
	default:
		return errors.New(string(k))
	}
}

// Error is a typed engine error carrying its Kind plus optional structured
// reasons (used by the Transaction Validator to report multiple rejections
// at once).
type Error struct {
	Kind    Kind
	Message string
	Reasons []string
	cause   error
}

func (e *Error) Error() string {
	if len(e.Reasons) > 0 {
		return fmt.Sprintf("%s: %s (%d reasons)", e.Kind, e.Message, len(e.Reasons))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	if e.cause != nil {
		return e.cause
	}
	return sentinelFor(e.Kind)
}

// New builds a typed error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a typed error that also unwraps to cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// WithReasons attaches a list of human-readable rejection reasons, used by
// the Transaction Validator.
func WithReasons(kind Kind, message string, reasons []string) *Error {
	return &Error{Kind: kind, Message: message, Reasons: reasons}
}

// Is supports errors.Is(err, engineerr.ErrCapViolation) style checks against
// an *Error built through this package.
func (e *Error) Is(target error) bool {
	return errors.Is(sentinelFor(e.Kind), target)
}
