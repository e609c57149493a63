package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a workflow operation was rejected.
type ErrorKind string

const (
	KindUnauthorized ErrorKind = "unauthorized"
	KindNotFound     ErrorKind = "not_found"
	KindInvalidState ErrorKind = "invalid_state"
	KindValidation   ErrorKind = "validation_failed"
	KindConflict     ErrorKind = "conflict"
	// KindIntegrity means the decision and stage writes may have diverged.
	// It is never retried and needs an operator.
	KindIntegrity ErrorKind = "integrity"
	KindInternal  ErrorKind = "internal"
)

var (
	// ErrRecordNotFound is returned by repositories when a row does not exist.
	ErrRecordNotFound = errors.New("record not found")
	// ErrStaleWrite is returned when a compare-and-swap update matched no row.
	ErrStaleWrite = errors.New("stale write")
)

// WorkflowError is the structured failure returned by every core operation.
type WorkflowError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *WorkflowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *WorkflowError) Unwrap() error { return e.Err }

func newError(kind ErrorKind, format string, args ...any) *WorkflowError {
	return &WorkflowError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func unauthorized(format string, args ...any) error { return newError(KindUnauthorized, format, args...) }
func notFound(format string, args ...any) error     { return newError(KindNotFound, format, args...) }
func invalidState(format string, args ...any) error { return newError(KindInvalidState, format, args...) }
func validation(format string, args ...any) error   { return newError(KindValidation, format, args...) }
func conflict(format string, args ...any) error     { return newError(KindConflict, format, args...) }

func integrity(err error, format string, args ...any) error {
	e := newError(KindIntegrity, format, args...)
	e.Err = err
	return e
}

// KindOf returns the kind of a workflow error, or KindInternal for anything else.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var we *WorkflowError
	if errors.As(err, &we) {
		return we.Kind
	}
	if errors.Is(err, ErrRecordNotFound) {
		return KindNotFound
	}
	if errors.Is(err, ErrStaleWrite) {
		return KindConflict
	}
	return KindInternal
}

// MessageOf returns the human readable reason carried by err.
func MessageOf(err error) string {
	var we *WorkflowError
	if errors.As(err, &we) {
		return we.Message
	}
	return err.Error()
}

// wrapRepoErr converts repository sentinels into workflow errors.
func wrapRepoErr(err error, entity string, id uint) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrRecordNotFound):
		return notFound("%s %d not found", entity, id)
	case errors.Is(err, ErrStaleWrite):
		return &WorkflowError{Kind: KindConflict, Message: fmt.Sprintf("%s %d was modified concurrently", entity, id), Err: err}
	}
	var we *WorkflowError
	if errors.As(err, &we) {
		return err
	}
	return fmt.Errorf("%s %d: %w", entity, id, err)
}
