package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/store"
)

const attachmentColumns = `id, task_id, filename, file_size, content_type, storage_path, uploaded_at`

// PostgresAttachmentStore implements store.AttachmentStore on the
// attachments table.
type PostgresAttachmentStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAttachmentStore creates a new PostgresAttachmentStore.
// If logger is nil, a default logger will be used.
func NewPostgresAttachmentStore(db store.DBTX, logger *slog.Logger) *PostgresAttachmentStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAttachmentStore{
		db:     db,
		logger: logger.With(slog.String("component", "attachment_store")),
	}
}

var _ store.AttachmentStore = (*PostgresAttachmentStore)(nil)

// WithTx implements store.AttachmentStore.WithTx
func (s *PostgresAttachmentStore) WithTx(tx *sql.Tx) store.AttachmentStore {
	return &PostgresAttachmentStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.AttachmentStore.Create
func (s *PostgresAttachmentStore) Create(ctx context.Context, attachment *domain.Attachment) error {
	if err := attachment.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO attachments (task_id, filename, file_size, content_type, storage_path, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		attachment.TaskID,
		attachment.Filename,
		attachment.FileSize,
		attachment.ContentType,
		attachment.StoragePath,
		attachment.UploadedAt.UTC(),
	).Scan(&attachment.ID)
	if err != nil {
		s.logger.Error("failed to create attachment",
			slog.Int64("task_id", attachment.TaskID),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	s.logger.Debug("attachment created",
		slog.Int64("attachment_id", attachment.ID),
		slog.Int64("task_id", attachment.TaskID))
	return nil
}

// GetByID implements store.AttachmentStore.GetByID
func (s *PostgresAttachmentStore) GetByID(ctx context.Context, id int64) (*domain.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments WHERE id = $1`

	attachment, err := scanAttachment(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrAttachmentNotFound
		}
		s.logger.Error("failed to get attachment",
			slog.Int64("attachment_id", id),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return attachment, nil
}

// ListByTask implements store.AttachmentStore.ListByTask
func (s *PostgresAttachmentStore) ListByTask(ctx context.Context, taskID int64) ([]domain.Attachment, error) {
	query := `SELECT ` + attachmentColumns + `
		FROM attachments
		WHERE task_id = $1
		ORDER BY uploaded_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, store.NewStoreError("attachment", "list", fmt.Sprintf("attachments of task %d", taskID), MapError(err))
	}
	defer func() { _ = rows.Close() }()

	attachments := []domain.Attachment{}
	for rows.Next() {
		attachment, err := scanAttachment(rows)
		if err != nil {
			return nil, MapError(err)
		}
		attachments = append(attachments, *attachment)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return attachments, nil
}

// Delete implements store.AttachmentStore.Delete
func (s *PostgresAttachmentStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM attachments WHERE id = $1`, id)
	if err != nil {
		s.logger.Error("failed to delete attachment",
			slog.Int64("attachment_id", id),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	return CheckRowsAffected(result, store.ErrAttachmentNotFound)
}

func scanAttachment(row rowScanner) (*domain.Attachment, error) {
	var a domain.Attachment
	if err := row.Scan(
		&a.ID,
		&a.TaskID,
		&a.Filename,
		&a.FileSize,
		&a.ContentType,
		&a.StoragePath,
		&a.UploadedAt,
	); err != nil {
		return nil, err
	}
	a.UploadedAt = a.UploadedAt.UTC()
	return &a, nil
}
