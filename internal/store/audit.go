package store

import (
	"context"

	"github.com/phrazzld/tasktracker-api/internal/domain"
)

// AuditStore persists append-only audit events.
type AuditStore interface {
	// Append writes event and assigns its ID.
	Append(ctx context.Context, event *domain.AuditEvent) error

	// ListByResource returns the events recorded for one resource, oldest first.
	ListByResource(ctx context.Context, resourceType, resourceID string) ([]domain.AuditEvent, error)
}
