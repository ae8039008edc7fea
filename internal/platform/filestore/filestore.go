package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/tasktracker-api/internal/store"
	"github.com/spf13/afero"
)

// File modes for created directories and blobs.
const (
	dirMode  = 0o750
	fileMode = 0o640
)

// ErrInvalidPath is returned for paths that are absolute or leave the
// storage root.
var ErrInvalidPath = fmt.Errorf("%w: invalid blob path", store.ErrInvalidEntity)

// FileStore implements store.BlobStore on an afero filesystem.
type FileStore struct {
	fs     afero.Fs
	logger *slog.Logger
}

var _ store.BlobStore = (*FileStore)(nil)

// New creates a FileStore rooted at dir on the local disk, creating dir if
// needed.
func New(dir string, logger *slog.Logger) (*FileStore, error) {
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return NewWithFs(afero.NewBasePathFs(osFs, dir), logger), nil
}

// NewWithFs creates a FileStore on fsys. Tests pass afero.NewMemMapFs().
func NewWithFs(fsys afero.Fs, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		fs:     fsys,
		logger: logger.With(slog.String("component", "file_store")),
	}
}

// Save implements store.BlobStore. Each blob gets a unique name so two
// uploads of the same filename never collide.
func (s *FileStore) Save(ctx context.Context, taskID int64, filename string, r io.Reader) (string, int64, error) {
	if filename == "" || strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") {
		return "", 0, ErrInvalidPath
	}
	dir := strconv.FormatInt(taskID, 10)
	key := path.Join(dir, uuid.NewString()+"-"+filename)

	if err := s.fs.MkdirAll(dir, dirMode); err != nil {
		return "", 0, fmt.Errorf("failed to create task directory: %w", err)
	}

	f, err := s.fs.OpenFile(filepath.FromSlash(key), os.O_WRONLY|os.O_CREATE|os.O_EXCL, fileMode)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create blob: %w", err)
	}

	n, copyErr := io.Copy(f, &contextReader{ctx: ctx, r: r})
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		if rmErr := s.fs.Remove(filepath.FromSlash(key)); rmErr != nil {
			s.logger.Warn("failed to remove partial blob",
				slog.String("path", key),
				slog.String("error", rmErr.Error()))
		}
		return "", 0, fmt.Errorf("failed to write blob: %w", err)
	}

	s.logger.Debug("blob saved", slog.String("path", key), slog.Int64("size", n))
	return key, n, nil
}

// Open implements store.BlobStore.
func (s *FileStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if !validKey(key) {
		return nil, ErrInvalidPath
	}
	f, err := s.fs.Open(filepath.FromSlash(key))
	if err != nil {
		return nil, mapNotExist(err)
	}
	return f, nil
}

// Delete implements store.BlobStore.
func (s *FileStore) Delete(_ context.Context, key string) error {
	if !validKey(key) {
		return ErrInvalidPath
	}
	if err := s.fs.Remove(filepath.FromSlash(key)); err != nil {
		return mapNotExist(err)
	}
	return nil
}

// DeleteTask implements store.BlobStore. A task without blobs is not an error.
func (s *FileStore) DeleteTask(_ context.Context, taskID int64) error {
	if err := s.fs.RemoveAll(strconv.FormatInt(taskID, 10)); err != nil {
		return fmt.Errorf("failed to remove task blobs: %w", err)
	}
	return nil
}

func validKey(key string) bool {
	return key != "" && filepath.IsLocal(filepath.FromSlash(key))
}

func mapNotExist(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", store.ErrBlobNotFound, err)
	}
	return err
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
