package store

import (
	"errors"
	"fmt"
)

// Error classes shared by every store implementation. Callers classify
// failures with errors.Is against these, never by message.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrDuplicate     = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransient marks failures that may succeed on a later attempt:
	// lost connections, serialization failures, deadlocks, lock timeouts and
	// statement cancellations. The reminder claimer retries only these.
	ErrTransient = errors.New("transient store failure")
)

// Entity-specific variants. Each still matches its class.
var (
	ErrUserNotFound       = fmt.Errorf("%w: user", ErrNotFound)
	ErrTaskNotFound       = fmt.Errorf("%w: task", ErrNotFound)
	ErrAttachmentNotFound = fmt.Errorf("%w: attachment", ErrNotFound)
	ErrUsernameExists     = fmt.Errorf("%w: username", ErrDuplicate)
	ErrBlobNotFound       = fmt.Errorf("%w: attachment contents", ErrNotFound)
)

// IsNotFoundError reports whether err is any not-found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError reports whether err is any uniqueness conflict.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsTransientError reports whether err was classified as retryable.
func IsTransientError(err error) bool {
	return errors.Is(err, ErrTransient)
}

// StoreError records which entity and operation a storage failure came
// from. It unwraps to the classified cause.
type StoreError struct {
	Entity    string
	Operation string
	Message   string
	Err       error
}

func (e *StoreError) Error() string {
	msg := e.Entity + " " + e.Operation + " failed: " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError wraps err with entity and operation context.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{Entity: entity, Operation: operation, Message: message, Err: err}
}
