package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/store"
)

// PostgresAuditStore implements store.AuditStore on the audit_events table.
type PostgresAuditStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAuditStore creates a new PostgresAuditStore.
func NewPostgresAuditStore(db store.DBTX, logger *slog.Logger) *PostgresAuditStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAuditStore{
		db:     db,
		logger: logger.With(slog.String("component", "audit_store")),
	}
}

var _ store.AuditStore = (*PostgresAuditStore)(nil)

// Append implements store.AuditStore.Append
func (s *PostgresAuditStore) Append(ctx context.Context, event *domain.AuditEvent) error {
	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	payload, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to encode audit metadata: %w", err)
	}

	var userID sql.NullInt64
	if event.UserID != nil {
		userID = sql.NullInt64{Int64: *event.UserID, Valid: true}
	}

	query := `
		INSERT INTO audit_events (action_type, user_id, resource_type, resource_id, metadata, timestamp)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6)
		RETURNING id
	`

	err = s.db.QueryRowContext(ctx, query,
		string(event.ActionType),
		userID,
		event.ResourceType,
		event.ResourceID,
		string(payload),
		event.Timestamp.UTC(),
	).Scan(&event.ID)
	if err != nil {
		s.logger.Error("failed to append audit event",
			slog.String("action_type", string(event.ActionType)),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	return nil
}

// ListByResource implements store.AuditStore.ListByResource
func (s *PostgresAuditStore) ListByResource(
	ctx context.Context,
	resourceType, resourceID string,
) ([]domain.AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action_type, user_id, resource_type, resource_id, metadata, timestamp
		FROM audit_events
		WHERE resource_type = $1 AND resource_id = $2
		ORDER BY timestamp ASC, id ASC
	`, resourceType, resourceID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	events := []domain.AuditEvent{}
	for rows.Next() {
		var (
			event    domain.AuditEvent
			action   string
			userID   sql.NullInt64
			metadata []byte
		)
		if err := rows.Scan(&event.ID, &action, &userID, &event.ResourceType,
			&event.ResourceID, &metadata, &event.Timestamp); err != nil {
			return nil, MapError(err)
		}
		event.ActionType = domain.AuditAction(action)
		if userID.Valid {
			id := userID.Int64
			event.UserID = &id
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode audit metadata: %w", err)
			}
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return events, nil
}
