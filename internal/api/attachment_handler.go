package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/phrazzld/tasktracker-api/internal/api/shared"
	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/platform/logger"
	"github.com/phrazzld/tasktracker-api/internal/service"
)

// AttachmentFormField is the multipart field that carries an upload.
const AttachmentFormField = "file"

// multipartOverhead is allowed on top of the file limit for boundaries and
// part headers.
const multipartOverhead = 64 << 10

// multipartMemory is how much of a form is held in memory before spilling
// to temporary files.
const multipartMemory = 1 << 20

// AttachmentHandler serves the /api/tasks/{id}/attachments endpoints.
type AttachmentHandler struct {
	attachments service.AttachmentService
	maxBytes    int64
}

// NewAttachmentHandler creates an AttachmentHandler. maxBytes bounds the
// request body; the service enforces the exact file limit.
func NewAttachmentHandler(attachments service.AttachmentService, maxBytes int64) *AttachmentHandler {
	if maxBytes <= 0 {
		maxBytes = service.DefaultMaxUploadBytes
	}
	return &AttachmentHandler{attachments: attachments, maxBytes: maxBytes}
}

// UploadAttachment handles POST /api/tasks/{id}/attachments with a
// multipart/form-data body holding one file in the "file" field.
func (h *AttachmentHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathID(w, r, "id")
	if !ok {
		return
	}

	limit := h.maxBytes + multipartOverhead
	if r.ContentLength > limit {
		HandleAPIError(w, r, fmt.Errorf("%w: request body is %d bytes", domain.ErrAttachmentTooLarge, r.ContentLength), "")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		HandleAPIError(w, r, uploadFormError(err), "")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(AttachmentFormField)
	if err != nil {
		HandleAPIError(w, r, uploadFormError(err), "")
		return
	}
	defer func() { _ = file.Close() }()

	attachment, err := h.attachments.UploadAttachment(r.Context(), userID, taskID, service.UploadInput{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to upload attachment")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/tasks/%d/attachments/%d", taskID, attachment.ID))
	shared.RespondWithJSON(w, r, http.StatusCreated, attachmentToResponse(attachment))
}

// ListAttachments handles GET /api/tasks/{id}/attachments.
func (h *AttachmentHandler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	_, taskID, ok := handleUserIDAndPathID(w, r, "id")
	if !ok {
		return
	}

	attachments, err := h.attachments.ListAttachments(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list attachments")
		return
	}

	resp := AttachmentListResponse{Attachments: make([]AttachmentResponse, 0, len(attachments))}
	for i := range attachments {
		resp.Attachments = append(resp.Attachments, attachmentToResponse(&attachments[i]))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// DownloadAttachment handles GET /api/tasks/{id}/attachments/{attachmentID}
// by streaming the stored contents.
func (h *AttachmentHandler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	_, taskID, ok := handleUserIDAndPathID(w, r, "id")
	if !ok {
		return
	}
	attachmentID, err := getPathID(r, "attachmentID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	attachment, body, err := h.attachments.OpenAttachment(r.Context(), taskID, attachmentID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to download attachment")
		return
	}
	defer func() { _ = body.Close() }()

	contentType := attachment.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(attachment.FileSize, 10))
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": attachment.Filename}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		logger.FromContext(r.Context()).Warn("attachment download interrupted",
			slog.Int64("attachment_id", attachmentID),
			slog.String("error", err.Error()))
	}
}

// DeleteAttachment handles DELETE /api/tasks/{id}/attachments/{attachmentID}.
func (h *AttachmentHandler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathID(w, r, "id")
	if !ok {
		return
	}
	attachmentID, err := getPathID(r, "attachmentID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.attachments.DeleteAttachment(r.Context(), userID, taskID, attachmentID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete attachment")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// uploadFormError classifies a failure to read the multipart form.
func uploadFormError(err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return fmt.Errorf("%w: %v", domain.ErrAttachmentTooLarge, err)
	case errors.Is(err, http.ErrMissingFile):
		return fmt.Errorf("%w: multipart field %q is required", domain.ErrValidation, AttachmentFormField)
	default:
		return fmt.Errorf("%w: request must be multipart/form-data", domain.ErrValidation)
	}
}
