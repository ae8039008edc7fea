package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/phrazzld/tasktracker-api/internal/api/shared"
	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/service"
	"github.com/phrazzld/tasktracker-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sampleAttachment(id, taskID int64) *domain.Attachment {
	return &domain.Attachment{
		ID:          id,
		TaskID:      taskID,
		Filename:    "report.pdf",
		FileSize:    5,
		ContentType: "application/pdf",
		StoragePath: "4/abc-report.pdf",
		UploadedAt:  handlerNow,
	}
}

// newUploadRequest builds a multipart upload for task 4 by user 2.
func newUploadRequest(t *testing.T, field, filename, contentType, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="` + field + `"; filename="` + filename + `"`}
	if contentType != "" {
		header["Content-Type"] = []string{contentType}
	}
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/tasks/4/attachments", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = req.WithContext(shared.WithUserID(req.Context(), 2))
	return withURLParams(req, "id", "4")
}

func TestAttachmentHandler_Upload(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &MockAttachmentService{}
		var uploaded string
		svc.On("UploadAttachment", mock.Anything, int64(2), int64(4), mock.MatchedBy(func(in service.UploadInput) bool {
			return in.Filename == "report.pdf" && in.ContentType == "application/pdf"
		})).Run(func(args mock.Arguments) {
			b, _ := io.ReadAll(args.Get(3).(service.UploadInput).Body)
			uploaded = string(b)
		}).Return(sampleAttachment(9, 4), nil)

		rec := httptest.NewRecorder()
		NewAttachmentHandler(svc, 1024).UploadAttachment(rec,
			newUploadRequest(t, AttachmentFormField, "report.pdf", "application/pdf", "%PDF-"))

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "/api/tasks/4/attachments/9", rec.Header().Get("Location"))
		assert.Equal(t, "%PDF-", uploaded)

		var resp AttachmentResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(9), resp.ID)
		assert.Equal(t, "report.pdf", resp.Filename)
		assert.NotContains(t, rec.Body.String(), "storage_path")
	})

	t.Run("missing file field", func(t *testing.T) {
		svc := &MockAttachmentService{}
		rec := httptest.NewRecorder()
		NewAttachmentHandler(svc, 1024).UploadAttachment(rec,
			newUploadRequest(t, "document", "report.pdf", "", "x"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `multipart field \"file\" is required`)
		svc.AssertNotCalled(t, "UploadAttachment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("not multipart", func(t *testing.T) {
		svc := &MockAttachmentService{}
		rec := httptest.NewRecorder()
		req := withURLParams(newRequest(http.MethodPost, "/api/tasks/4/attachments", `{"file":"x"}`, 2), "id", "4")
		NewAttachmentHandler(svc, 1024).UploadAttachment(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("body over the limit", func(t *testing.T) {
		svc := &MockAttachmentService{}
		rec := httptest.NewRecorder()
		NewAttachmentHandler(svc, 16).UploadAttachment(rec,
			newUploadRequest(t, AttachmentFormField, "big.bin", "", strings.Repeat("x", multipartOverhead+64)))

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		svc.AssertNotCalled(t, "UploadAttachment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("not the owner", func(t *testing.T) {
		svc := &MockAttachmentService{}
		svc.On("UploadAttachment", mock.Anything, int64(2), int64(4), mock.Anything).
			Return(nil, service.ErrAttachmentNotOwned)

		rec := httptest.NewRecorder()
		NewAttachmentHandler(svc, 1024).UploadAttachment(rec,
			newUploadRequest(t, AttachmentFormField, "a.txt", "", "x"))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		svc := &MockAttachmentService{}
		rec := httptest.NewRecorder()
		req := withURLParams(httptest.NewRequest(http.MethodPost, "/api/tasks/4/attachments", nil), "id", "4")
		NewAttachmentHandler(svc, 1024).UploadAttachment(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAttachmentHandler_List(t *testing.T) {
	svc := &MockAttachmentService{}
	svc.On("ListAttachments", mock.Anything, int64(4)).
		Return([]domain.Attachment{*sampleAttachment(1, 4), *sampleAttachment(2, 4)}, nil)
	svc.On("ListAttachments", mock.Anything, int64(5)).Return(nil, store.ErrTaskNotFound)

	rec := httptest.NewRecorder()
	NewAttachmentHandler(svc, 0).ListAttachments(rec,
		withURLParams(newRequest(http.MethodGet, "/api/tasks/4/attachments", "", 3), "id", "4"))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp AttachmentListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Attachments, 2)
	assert.Equal(t, int64(2), resp.Attachments[1].ID)

	rec = httptest.NewRecorder()
	NewAttachmentHandler(svc, 0).ListAttachments(rec,
		withURLParams(newRequest(http.MethodGet, "/api/tasks/5/attachments", "", 3), "id", "5"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttachmentHandler_Download(t *testing.T) {
	t.Run("streams contents", func(t *testing.T) {
		svc := &MockAttachmentService{}
		svc.On("OpenAttachment", mock.Anything, int64(4), int64(9)).
			Return(sampleAttachment(9, 4), io.NopCloser(strings.NewReader("%PDF-")), nil)

		rec := httptest.NewRecorder()
		NewAttachmentHandler(svc, 0).DownloadAttachment(rec, withURLParams(
			newRequest(http.MethodGet, "/api/tasks/4/attachments/9", "", 3), "id", "4", "attachmentID", "9"))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "%PDF-", rec.Body.String())
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.Equal(t, "5", rec.Header().Get("Content-Length"))
		assert.Equal(t, "attachment; filename=report.pdf", rec.Header().Get("Content-Disposition"))
	})

	t.Run("unknown attachment", func(t *testing.T) {
		svc := &MockAttachmentService{}
		svc.On("OpenAttachment", mock.Anything, int64(4), int64(9)).
			Return(nil, nil, store.ErrAttachmentNotFound)

		rec := httptest.NewRecorder()
		NewAttachmentHandler(svc, 0).DownloadAttachment(rec, withURLParams(
			newRequest(http.MethodGet, "/api/tasks/4/attachments/9", "", 3), "id", "4", "attachmentID", "9"))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Attachment not found")
	})

	t.Run("bad attachment id", func(t *testing.T) {
		svc := &MockAttachmentService{}
		rec := httptest.NewRecorder()
		NewAttachmentHandler(svc, 0).DownloadAttachment(rec, withURLParams(
			newRequest(http.MethodGet, "/api/tasks/4/attachments/x", "", 3), "id", "4", "attachmentID", "x"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAttachmentHandler_Delete(t *testing.T) {
	svc := &MockAttachmentService{}
	svc.On("DeleteAttachment", mock.Anything, int64(2), int64(4), int64(9)).Return(nil)
	svc.On("DeleteAttachment", mock.Anything, int64(3), int64(4), int64(9)).Return(service.ErrAttachmentNotOwned)

	rec := httptest.NewRecorder()
	NewAttachmentHandler(svc, 0).DeleteAttachment(rec, withURLParams(
		newRequest(http.MethodDelete, "/api/tasks/4/attachments/9", "", 2), "id", "4", "attachmentID", "9"))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	NewAttachmentHandler(svc, 0).DeleteAttachment(rec, withURLParams(
		newRequest(http.MethodDelete, "/api/tasks/4/attachments/9", "", 3), "id", "4", "attachmentID", "9"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	svc.AssertExpectations(t)
}
