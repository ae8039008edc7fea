package audit

import (
	"context"
	"fmt"

	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/events"
	"github.com/phrazzld/tasktracker-api/internal/store"
)

// StoreHandler persists emitted audit events.
type StoreHandler struct {
	store store.AuditStore
}

// NewStoreHandler creates a handler that appends events to s.
func NewStoreHandler(s store.AuditStore) *StoreHandler {
	return &StoreHandler{store: s}
}

var _ events.EventHandler = (*StoreHandler)(nil)

// HandleEvent implements events.EventHandler.
func (h *StoreHandler) HandleEvent(ctx context.Context, event *domain.AuditEvent) error {
	if err := h.store.Append(ctx, event); err != nil {
		return fmt.Errorf("failed to persist audit event: %w", err)
	}
	return nil
}
