package types

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed input rejected at a boundary. The
// offending input is never partially applied.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError reports a concurrent write collision on an event under the
// single-writer-per-key invariant. Callers decide whether to retry.
type ConflictError struct {
	Kind    string
	ID      string
	Version int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s: stale write at version %d", e.Kind, e.ID, e.Version)
}

// NotFoundError reports a referenced object absent from a collaborator store.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
