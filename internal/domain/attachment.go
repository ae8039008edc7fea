package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Attachment validation errors
var (
	ErrAttachmentEmpty       = fmt.Errorf("%w: file is empty", ErrValidation)
	ErrAttachmentTooLarge    = fmt.Errorf("%w: file exceeds the upload size limit", ErrValidation)
	ErrAttachmentTaskEmpty   = fmt.Errorf("%w: attachment task cannot be empty", ErrValidation)
	ErrAttachmentPathEmpty   = fmt.Errorf("%w: attachment storage path cannot be empty", ErrValidation)
	ErrAttachmentNameInvalid = fmt.Errorf("%w: attachment filename is invalid", ErrValidation)
)

// MaxFilenameLength limits stored attachment names.
const MaxFilenameLength = 255

// DefaultFilename replaces names that sanitize to nothing.
const DefaultFilename = "file"

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// Attachment is the metadata of a file uploaded to a task. The contents live
// in blob storage under StoragePath.
type Attachment struct {
	ID          int64     `json:"id"`
	TaskID      int64     `json:"task_id"`
	Filename    string    `json:"filename"`
	FileSize    int64     `json:"file_size"`
	ContentType string    `json:"content_type,omitempty"`
	StoragePath string    `json:"-"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Validate checks if the Attachment has valid data.
func (a *Attachment) Validate() error {
	if a.TaskID <= 0 {
		return ErrAttachmentTaskEmpty
	}
	if a.Filename == "" || len(a.Filename) > MaxFilenameLength || SanitizeFilename(a.Filename) != a.Filename {
		return ErrAttachmentNameInvalid
	}
	if a.FileSize <= 0 {
		return ErrAttachmentEmpty
	}
	if a.StoragePath == "" {
		return ErrAttachmentPathEmpty
	}
	return nil
}

// SanitizeFilename reduces name to letters, digits, '.', '_' and '-' so it
// can never escape the task's storage directory. Spaces become underscores,
// ".." and '~' are removed, and long names are cut to MaxFilenameLength
// keeping the extension.
func SanitizeFilename(name string) string {
	name = strings.NewReplacer("/", "", `\`, "", "..", "", "~", "", " ", "_").Replace(name)
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	// Removing characters can create a new "..".
	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", "")
	}

	if len(name) > MaxFilenameLength {
		ext := ""
		if i := strings.LastIndex(name, "."); i > 0 && len(name)-i <= 16 {
			ext = name[i:]
		}
		name = name[:MaxFilenameLength-len(ext)] + ext
	}

	if name == "" || name == "." {
		return DefaultFilename
	}
	return name
}
