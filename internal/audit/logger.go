package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/events"
)

// Sink appends audit events. Implementations must never fail back into the
// caller: errors are logged and dropped.
type Sink interface {
	Append(
		ctx context.Context,
		action domain.AuditAction,
		userID *int64,
		resourceType, resourceID string,
		metadata map[string]any,
	)
}

// Logger is the Sink backed by an event emitter.
type Logger struct {
	emitter events.EventEmitter
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Logger.
type Option func(*Logger)

// WithNow overrides the timestamp source.
func WithNow(now func() time.Time) Option {
	return func(l *Logger) {
		l.now = now
	}
}

// NewLogger creates a Logger that emits events through emitter.
func NewLogger(emitter events.EventEmitter, logger *slog.Logger, opts ...Option) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Logger{
		emitter: emitter,
		logger:  logger.With(slog.String("component", "audit_logger")),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var _ Sink = (*Logger)(nil)

// Append implements Sink. The event timestamp is taken at append time.
func (l *Logger) Append(
	ctx context.Context,
	action domain.AuditAction,
	userID *int64,
	resourceType, resourceID string,
	metadata map[string]any,
) {
	event := &domain.AuditEvent{
		ActionType:   action,
		UserID:       userID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     metadata,
		Timestamp:    l.now().UTC(),
	}

	if err := l.emit(ctx, event); err != nil {
		l.logger.Error("failed to record audit event",
			slog.String("action_type", string(action)),
			slog.String("resource_type", resourceType),
			slog.String("resource_id", resourceID),
			slog.String("error", err.Error()))
		return
	}

	l.logger.Info("audit event",
		slog.String("action_type", string(action)),
		slog.String("resource_type", resourceType),
		slog.String("resource_id", resourceID))
}

func (l *Logger) emit(ctx context.Context, event *domain.AuditEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("audit handler panicked: %v", r)
		}
	}()
	return l.emitter.EmitEvent(ctx, event)
}
