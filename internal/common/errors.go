// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Input errors.
	ErrEmptyInput     = errors.New("empty input")
	ErrMalformedInput = errors.New("malformed input")
	ErrInputNotFound  = errors.New("input not found")

	// Configuration errors.
	ErrThresholdRange = errors.New("threshold out of range")
	ErrInvalidConfig  = errors.New("invalid configuration")

	// Mining errors.
	ErrSupportLookup = errors.New("subset support lookup miss")
	ErrInvariant     = errors.New("mining invariant violated")
)

// Kind classifies pipeline errors for the run report and exit status.
type Kind string

// Error kinds.
const (
	KindNone      Kind = ""
	KindInput     Kind = "input_validation"
	KindThreshold Kind = "threshold_config"
	KindMining    Kind = "mining"
	KindIO        Kind = "io"
	KindCanceled  Kind = "canceled"
)

// InputValidationError reports malformed or empty raw input.
type InputValidationError struct {
	Err    error
	Detail string
}

func (e *InputValidationError) Error() string {
	return formatKind("input validation", e.Detail, e.Err)
}

func (e *InputValidationError) Unwrap() error {
	return e.Err
}

// NewInputError wraps a sentinel with detail about the offending input.
func NewInputError(err error, format string, args ...any) error {
	return &InputValidationError{Err: err, Detail: fmt.Sprintf(format, args...)}
}

// ThresholdConfigError reports a threshold or setting outside its valid range.
type ThresholdConfigError struct {
	Err    error
	Field  string
	Detail string
}

func (e *ThresholdConfigError) Error() string {
	if e.Field != "" {
		return formatKind("threshold config", e.Field+": "+e.Detail, e.Err)
	}
	return formatKind("threshold config", e.Detail, e.Err)
}

func (e *ThresholdConfigError) Unwrap() error {
	return e.Err
}

// NewThresholdError builds a ThresholdConfigError for field.
func NewThresholdError(field, format string, args ...any) error {
	return &ThresholdConfigError{Err: ErrThresholdRange, Field: field, Detail: fmt.Sprintf(format, args...)}
}

// MiningError reports an internal invariant violation while mining. It
// indicates a bug rather than bad input.
type MiningError struct {
	Err    error
	Detail string
}

func (e *MiningError) Error() string {
	return formatKind("mining", e.Detail, e.Err)
}

func (e *MiningError) Unwrap() error {
	return e.Err
}

// NewMiningError wraps a sentinel with detail about the violated invariant.
func NewMiningError(err error, format string, args ...any) error {
	return &MiningError{Err: err, Detail: fmt.Sprintf(format, args...)}
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// KindOf classifies err. Errors that match none of the pipeline kinds are
// reported as KindIO since every remaining failure comes from the filesystem.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}

	var inputErr *InputValidationError
	var thresholdErr *ThresholdConfigError
	var miningErr *MiningError

	switch {
	case errors.As(err, &miningErr):
		return KindMining
	case errors.As(err, &thresholdErr):
		return KindThreshold
	case errors.As(err, &inputErr):
		return KindInput
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindIO
	}
}

// IsFatal reports whether err signals a bug that must be surfaced verbatim.
func IsFatal(err error) bool {
	return KindOf(err) == KindMining
}

func formatKind(kind, detail string, err error) string {
	switch {
	case detail == "" && err == nil:
		return kind + " error"
	case detail == "":
		return fmt.Sprintf("%s error: %v", kind, err)
	case err == nil:
		return fmt.Sprintf("%s error: %s", kind, detail)
	default:
		return fmt.Sprintf("%s error: %v: %s", kind, err, detail)
	}
}
