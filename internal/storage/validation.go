// Package storage provides the run history store for the basket pipeline.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/the-basket-must-flow/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrInvalidRun     = errors.New("invalid run report")
	ErrInvalidLimit   = errors.New("limit must be positive")
	ErrRunNotFound    = errors.New("run not found")
	ErrAmbiguousRunID = errors.New("run id prefix matches more than one run")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRun checks the fields the runs table requires.
func validateRun(r *model.RunReport) error {
	if r == nil {
		return fmt.Errorf("%w: run", ErrNilParameter)
	}
	if r.RunID == "" {
		return fmt.Errorf("%w: missing run ID", ErrInvalidRun)
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidRun)
	}
	switch r.Status {
	case model.StatusSuccess, model.StatusFailure:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRun, r.Status)
	}
	return nil
}
