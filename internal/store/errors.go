package store

import (
	"errors"
	"fmt"
)

// Kind categorizes store failures.
type Kind string

const (
	// KindNotFound indicates no document exists for the key.
	KindNotFound Kind = "NOT_FOUND"

	// KindConflict indicates a document already exists for the key.
	KindConflict Kind = "CONFLICT"

	// KindInvalid indicates a malformed request (bad field name, empty id).
	KindInvalid Kind = "INVALID"

	// KindBackend indicates the backend itself failed.
	KindBackend Kind = "BACKEND"
)

// Error is returned by every Container operation.
type Error struct {
	Kind      Kind
	Op        string
	Container string
	ID        string
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s", e.Op, e.Container)
	if e.ID != "" {
		msg += fmt.Sprintf(" id=%s", e.ID)
	}
	msg += fmt.Sprintf(": %s", e.Kind)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a store error of KindNotFound.
func IsNotFound(err error) bool {
	return isKind(err, KindNotFound)
}

// IsConflict reports whether err is a store error of KindConflict.
func IsConflict(err error) bool {
	return isKind(err, KindConflict)
}

func isKind(err error, kind Kind) bool {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Kind == kind
	}
	return false
}
