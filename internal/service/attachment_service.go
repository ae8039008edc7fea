package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/phrazzld/tasktracker-api/internal/audit"
	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/events"
	"github.com/phrazzld/tasktracker-api/internal/store"
)

// DefaultMaxUploadBytes is the upload limit when none is configured.
const DefaultMaxUploadBytes int64 = 10 << 20

// sniffLen is how much of an upload is inspected to detect its type.
const sniffLen = 3072

// UploadInput describes one uploaded file. ContentType is what the client
// declared and may be empty.
type UploadInput struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// AttachmentService manages files attached to tasks. Like tasks, any
// authenticated user may read attachments; only the task owner may add or
// remove them.
type AttachmentService interface {
	UploadAttachment(ctx context.Context, userID, taskID int64, input UploadInput) (*domain.Attachment, error)
	ListAttachments(ctx context.Context, taskID int64) ([]domain.Attachment, error)
	OpenAttachment(ctx context.Context, taskID, attachmentID int64) (*domain.Attachment, io.ReadCloser, error)
	DeleteAttachment(ctx context.Context, userID, taskID, attachmentID int64) error
}

type attachmentServiceImpl struct {
	tasks       store.TaskStore
	attachments store.AttachmentStore
	blobs       store.BlobStore
	audit       audit.Sink
	maxBytes    int64
	now         func() time.Time
	logger      *slog.Logger
}

// NewAttachmentService creates an AttachmentService. A non-positive
// maxBytes uses DefaultMaxUploadBytes.
func NewAttachmentService(
	tasks store.TaskStore,
	attachments store.AttachmentStore,
	blobs store.BlobStore,
	sink audit.Sink,
	maxBytes int64,
	logger *slog.Logger,
) (AttachmentService, error) {
	if tasks == nil {
		return nil, errors.New("tasks store cannot be nil")
	}
	if attachments == nil {
		return nil, errors.New("attachments store cannot be nil")
	}
	if blobs == nil {
		return nil, errors.New("blob store cannot be nil")
	}
	if sink == nil {
		return nil, errors.New("audit sink cannot be nil")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &attachmentServiceImpl{
		tasks:       tasks,
		attachments: attachments,
		blobs:       blobs,
		audit:       sink,
		maxBytes:    maxBytes,
		now:         time.Now,
		logger:      logger.With(slog.String("component", "attachment_service")),
	}, nil
}

// UploadAttachment stores input on a task owned by userID. The filename is
// sanitized and, when the client sent no useful content type, the type is
// detected from the first bytes.
func (s *attachmentServiceImpl) UploadAttachment(
	ctx context.Context,
	userID, taskID int64,
	input UploadInput,
) (*domain.Attachment, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve task: %w", err)
	}
	if !task.IsOwnedBy(userID) {
		return nil, ErrAttachmentNotOwned
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(input.Body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if n == 0 {
		return nil, domain.ErrAttachmentEmpty
	}
	head = head[:n]

	contentType := input.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(head).String()
	}

	filename := domain.SanitizeFilename(input.Filename)
	body := io.LimitReader(io.MultiReader(bytes.NewReader(head), input.Body), s.maxBytes+1)
	path, size, err := s.blobs.Save(ctx, taskID, filename, body)
	if err != nil {
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}
	if size > s.maxBytes {
		s.discardBlob(ctx, path)
		return nil, fmt.Errorf("%w: limit is %d bytes", domain.ErrAttachmentTooLarge, s.maxBytes)
	}

	attachment := &domain.Attachment{
		TaskID:      taskID,
		Filename:    filename,
		FileSize:    size,
		ContentType: contentType,
		StoragePath: path,
		UploadedAt:  s.now().UTC(),
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		s.discardBlob(ctx, path)
		return nil, fmt.Errorf("failed to create attachment: %w", err)
	}

	s.logger.Info("attachment uploaded",
		slog.Int64("attachment_id", attachment.ID),
		slog.Int64("task_id", taskID),
		slog.Int64("user_id", userID),
		slog.Int64("size", size))
	s.audit.Append(ctx, domain.AuditActionAttachmentUploaded, &userID, domain.AuditResourceAttachment,
		strconv.FormatInt(attachment.ID, 10), map[string]any{
			"task_id":   taskID,
			"filename":  filename,
			"file_size": size,
		})

	return attachment, nil
}

// ListAttachments returns the attachments of an existing task.
func (s *attachmentServiceImpl) ListAttachments(ctx context.Context, taskID int64) ([]domain.Attachment, error) {
	if _, err := s.tasks.GetByID(ctx, taskID); err != nil {
		return nil, fmt.Errorf("failed to retrieve task: %w", err)
	}

	attachments, err := s.attachments.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	return attachments, nil
}

// OpenAttachment returns an attachment's metadata and contents. The caller
// closes the reader.
func (s *attachmentServiceImpl) OpenAttachment(
	ctx context.Context,
	taskID, attachmentID int64,
) (*domain.Attachment, io.ReadCloser, error) {
	attachment, err := s.findOnTask(ctx, taskID, attachmentID)
	if err != nil {
		return nil, nil, err
	}

	body, err := s.blobs.Open(ctx, attachment.StoragePath)
	if err != nil {
		s.logger.Error("attachment contents missing",
			slog.Int64("attachment_id", attachmentID),
			slog.String("error", err.Error()))
		return nil, nil, fmt.Errorf("failed to open attachment: %w", err)
	}
	return attachment, body, nil
}

// DeleteAttachment removes an attachment from a task owned by userID. The
// row goes first; a blob left behind by a failed file removal is logged.
func (s *attachmentServiceImpl) DeleteAttachment(ctx context.Context, userID, taskID, attachmentID int64) error {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("failed to retrieve task: %w", err)
	}
	if !task.IsOwnedBy(userID) {
		return ErrAttachmentNotOwned
	}

	attachment, err := s.findOnTask(ctx, taskID, attachmentID)
	if err != nil {
		return err
	}
	if err := s.attachments.Delete(ctx, attachmentID); err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	s.discardBlob(ctx, attachment.StoragePath)

	s.logger.Info("attachment deleted",
		slog.Int64("attachment_id", attachmentID),
		slog.Int64("task_id", taskID),
		slog.Int64("user_id", userID))
	s.audit.Append(ctx, domain.AuditActionAttachmentDeleted, &userID, domain.AuditResourceAttachment,
		strconv.FormatInt(attachmentID, 10), map[string]any{
			"task_id":  taskID,
			"filename": attachment.Filename,
		})

	return nil
}

// findOnTask loads an attachment and checks it belongs to taskID. An
// attachment on another task is reported as not found.
func (s *attachmentServiceImpl) findOnTask(ctx context.Context, taskID, attachmentID int64) (*domain.Attachment, error) {
	attachment, err := s.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve attachment: %w", err)
	}
	if attachment.TaskID != taskID {
		return nil, fmt.Errorf("failed to retrieve attachment: %w", store.ErrAttachmentNotFound)
	}
	return attachment, nil
}

func (s *attachmentServiceImpl) discardBlob(ctx context.Context, path string) {
	if err := s.blobs.Delete(ctx, path); err != nil && !errors.Is(err, store.ErrBlobNotFound) {
		s.logger.Warn("failed to remove attachment contents",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

// BlobCleanupHandler removes a task's attachment contents once the task is
// deleted. Attachment rows cascade with the task in the database.
type BlobCleanupHandler struct {
	blobs  store.BlobStore
	logger *slog.Logger
}

// NewBlobCleanupHandler creates a BlobCleanupHandler.
func NewBlobCleanupHandler(blobs store.BlobStore, logger *slog.Logger) *BlobCleanupHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BlobCleanupHandler{
		blobs:  blobs,
		logger: logger.With(slog.String("component", "blob_cleanup")),
	}
}

var _ events.EventHandler = (*BlobCleanupHandler)(nil)

// HandleEvent implements events.EventHandler. Events other than task
// deletion are ignored.
func (h *BlobCleanupHandler) HandleEvent(ctx context.Context, event *domain.AuditEvent) error {
	if event.ActionType != domain.AuditActionTaskDeleted || event.ResourceType != domain.AuditResourceTask {
		return nil
	}
	taskID, err := strconv.ParseInt(event.ResourceID, 10, 64)
	if err != nil {
		return fmt.Errorf("task deletion event has invalid resource id %q: %w", event.ResourceID, err)
	}
	if err := h.blobs.DeleteTask(ctx, taskID); err != nil {
		return fmt.Errorf("failed to remove attachments of task %d: %w", taskID, err)
	}
	h.logger.Debug("task attachments removed", slog.Int64("task_id", taskID))
	return nil
}
