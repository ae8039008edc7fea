package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil", err: nil, expected: false},
		{name: "ErrNotFound", err: ErrNotFound, expected: true},
		{name: "ErrTaskNotFound", err: ErrTaskNotFound, expected: true},
		{name: "wrapped ErrUserNotFound", err: fmt.Errorf("failed to find user: %w", ErrUserNotFound), expected: true},
		{name: "store error wrapping ErrTaskNotFound", err: NewStoreError("task", "get", "lookup", ErrTaskNotFound), expected: true},
		{name: "duplicate", err: ErrUsernameExists, expected: false},
		{name: "unrelated", err: errors.New("boom"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsNotFoundError(tt.err))
		})
	}
}

func TestIsDuplicateError(t *testing.T) {
	assert.True(t, IsDuplicateError(ErrUsernameExists))
	assert.True(t, IsDuplicateError(fmt.Errorf("create: %w", ErrDuplicate)))
	assert.False(t, IsDuplicateError(ErrTaskNotFound))
	assert.False(t, IsDuplicateError(nil))
}

func TestIsTransientError(t *testing.T) {
	assert.True(t, IsTransientError(fmt.Errorf("%w: connection reset", ErrTransient)))
	assert.True(t, IsTransientError(NewStoreError("task", "claim", "update", ErrTransient)))
	assert.False(t, IsTransientError(ErrTaskNotFound))
	assert.False(t, IsTransientError(nil))
}

func TestStoreError(t *testing.T) {
	cause := errors.New("driver error")

	withCause := NewStoreError("task", "claim", "conditional update", cause)
	assert.Equal(t, "task claim failed: conditional update: driver error", withCause.Error())
	assert.ErrorIs(t, withCause, cause)

	withoutCause := NewStoreError("user", "create", "bad input", nil)
	assert.Equal(t, "user create failed: bad input", withoutCause.Error())
	assert.Nil(t, withoutCause.Unwrap())
}
