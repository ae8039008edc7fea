package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/tasktracker-api/internal/domain"
)

// Common service errors. Callers test for them with errors.Is; the API
// layer maps them to HTTP status codes.
var (
	// ErrNotOwned indicates a resource is owned by a different user than the
	// one making the request. Maps to 403 Forbidden.
	ErrNotOwned = errors.New("resource is owned by another user")

	// ErrTaskNotOwned is ErrNotOwned for tasks.
	ErrTaskNotOwned = fmt.Errorf("%w: you can only modify your own tasks", ErrNotOwned)

	// ErrAttachmentNotOwned is ErrNotOwned for attachments, which inherit
	// the ownership of their task.
	ErrAttachmentNotOwned = fmt.Errorf("%w: you can only change attachments on your own tasks", ErrNotOwned)

	// ErrInvalidCredentials indicates a username/password pair did not match.
	// It does not reveal which half was wrong. Maps to 401 Unauthorized.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrInvalidPagination indicates page or page_size is out of range.
	ErrInvalidPagination = fmt.Errorf("%w: page must be >= 1 and page_size between 1 and %d", domain.ErrValidation, MaxPageSize)

	// ErrInvalidSort indicates an unknown sort field or order.
	ErrInvalidSort = fmt.Errorf("%w: invalid sort field or order", domain.ErrValidation)
)
