package store

import (
	"context"
	"database/sql"
	"io"

	"github.com/phrazzld/tasktracker-api/internal/domain"
)

// AttachmentStore persists attachment metadata. File contents are kept in
// a BlobStore; StoragePath links the two. Rows cascade with their task.
type AttachmentStore interface {
	// Create saves attachment and assigns its ID and upload time.
	Create(ctx context.Context, attachment *domain.Attachment) error

	// GetByID returns ErrAttachmentNotFound if the attachment does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Attachment, error)

	// ListByTask returns a task's attachments, oldest first.
	ListByTask(ctx context.Context, taskID int64) ([]domain.Attachment, error)

	// Delete returns ErrAttachmentNotFound if the attachment does not exist.
	Delete(ctx context.Context, id int64) error

	// WithTx returns an AttachmentStore that runs its queries inside tx.
	WithTx(tx *sql.Tx) AttachmentStore
}

// BlobStore holds attachment contents. Paths are opaque keys returned by
// Save and are always grouped under the owning task.
type BlobStore interface {
	// Save writes r under taskID and returns the new path and the number of
	// bytes written. filename must already be sanitized.
	Save(ctx context.Context, taskID int64, filename string, r io.Reader) (path string, size int64, err error)

	// Open returns the contents at path, or ErrBlobNotFound.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the contents at path. A missing blob is ErrBlobNotFound.
	Delete(ctx context.Context, path string) error

	// DeleteTask removes every blob stored under taskID.
	DeleteTask(ctx context.Context, taskID int64) error
}
