// Package apperror is the error taxonomy shared by the file pipeline.
// Callers branch on Kind; Message is safe to show across the trust boundary
// only for the caller-recoverable kinds.
package apperror

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindValidation
	KindQuota
	KindStorage
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation_failed"
	case KindQuota:
		return "quota_exceeded"
	case KindStorage:
		return "storage_failure"
	case KindTimeout:
		return "timeout"
	default:
		return "internal_failure"
	}
}

// Recoverable reports whether the caller can act on the message
// (fix input, wait, retry later).
func (k Kind) Recoverable() bool {
	switch k {
	case KindNotFound, KindConflict, KindValidation, KindQuota:
		return true
	}
	return false
}

type Error struct {
	Kind    Kind
	Message string
	// ResetAt is set for KindQuota when the ceiling is window based.
	ResetAt time.Time
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Message: msg} }

func Conflict(msg string) *Error { return &Error{Kind: KindConflict, Message: msg} }

func Validation(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }

func Quota(msg string, resetAt time.Time) *Error {
	return &Error{Kind: KindQuota, Message: msg, ResetAt: resetAt}
}

func Storage(msg string, err error) *Error {
	return &Error{Kind: KindStorage, Message: msg, Err: err}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

func Timeout(msg string, err error) *Error {
	return &Error{Kind: KindTimeout, Message: msg, Err: err}
}

// As extracts the first *Error in the chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf classifies any error. Foreign errors are internal unless they
// carry a deadline.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindInternal
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	ae, ok := As(err)
	return ok && ae.Kind == kind
}

// Classify keeps typed errors as they are and wraps anything else in the
// given fallback kind, promoting deadline errors to KindTimeout.
func Classify(err error, fallback Kind, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout(msg, err)
	}
	return &Error{Kind: fallback, Message: msg, Err: err}
}
