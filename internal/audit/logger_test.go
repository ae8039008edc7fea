package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/events"
	"github.com/phrazzld/tasktracker-api/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuditStore struct {
	appended  []*domain.AuditEvent
	appendErr error
}

func (s *fakeAuditStore) Append(ctx context.Context, event *domain.AuditEvent) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	event.ID = int64(len(s.appended) + 1)
	s.appended = append(s.appended, event)
	return nil
}

func (s *fakeAuditStore) ListByResource(ctx context.Context, resourceType, resourceID string) ([]domain.AuditEvent, error) {
	return nil, nil
}

func TestLogger_Append(t *testing.T) {
	stamp := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)
	auditStore := &fakeAuditStore{}
	emitter := events.NewInMemoryEventEmitter(nil)
	emitter.RegisterHandler(NewStoreHandler(auditStore))

	logger, logs := testutils.NewTestLogger()
	sink := NewLogger(emitter, logger, WithNow(func() time.Time { return stamp }))

	userID := int64(4)
	sink.Append(context.Background(), domain.AuditActionTaskCreated, &userID,
		domain.AuditResourceTask, "12", map[string]any{"title": "x"})

	require.Len(t, auditStore.appended, 1)
	event := auditStore.appended[0]
	assert.Equal(t, domain.AuditActionTaskCreated, event.ActionType)
	assert.Equal(t, &userID, event.UserID)
	assert.Equal(t, "12", event.ResourceID)
	assert.Equal(t, stamp, event.Timestamp)
	assert.Len(t, logs.EntriesWithMessage("audit event"), 1)
}

func TestLogger_Append_SwallowsErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler events.EventHandler
	}{
		{
			name:    "store failure",
			handler: NewStoreHandler(&fakeAuditStore{appendErr: errors.New("db down")}),
		},
		{
			name: "handler panic",
			handler: events.EventHandlerFunc(func(ctx context.Context, e *domain.AuditEvent) error {
				panic("handler exploded")
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emitter := events.NewInMemoryEventEmitter(nil)
			emitter.RegisterHandler(tt.handler)
			logger, logs := testutils.NewTestLogger()
			sink := NewLogger(emitter, logger)

			assert.NotPanics(t, func() {
				sink.Append(context.Background(), domain.AuditActionReminderSent, nil,
					domain.AuditResourceReminder, "1", nil)
			})

			failures := logs.EntriesWithMessage("failed to record audit event")
			require.Len(t, failures, 1)
			assert.Equal(t, "audit_logger", failures[0]["component"])
		})
	}
}
