package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/phrazzld/tasktracker-api/internal/api/shared"
	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/platform/logger"
	"github.com/phrazzld/tasktracker-api/internal/service"
)

// TaskHandler serves the /api/tasks endpoints.
type TaskHandler struct {
	tasks service.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks service.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// CreateTask handles POST /api/tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.tasks.CreateTask(r.Context(), userID, req.toInput())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/tasks/%d", task.ID))
	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(task))
}

// GetTask handles GET /api/tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	_, taskID, ok := handleUserIDAndPathID(w, r, "id")
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// UpdateTask handles PATCH /api/tasks/{id}.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.tasks.UpdateTask(r.Context(), userID, taskID, req.toInput())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// DeleteTask handles DELETE /api/tasks/{id}.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.tasks.DeleteTask(r.Context(), userID, taskID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete task")
		return
	}

	logger.FromContext(r.Context()).Debug("task deleted", slog.Int64("task_id", taskID))
	w.WriteHeader(http.StatusNoContent)
}

// ListTasks handles GET /api/tasks. Supported query parameters: status,
// priority, tag, search, owner (a user ID or "me"), due_before, due_after
// (RFC 3339), sort_by, sort_order, page and page_size.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	query, err := parseTaskQuery(r.URL.Query(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	page, err := h.tasks.ListTasks(r.Context(), query)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, pageToResponse(page))
}

func parseTaskQuery(values url.Values, userID int64) (service.TaskQuery, error) {
	q := service.TaskQuery{
		Status:    domain.TaskStatus(values.Get("status")),
		Priority:  domain.TaskPriority(values.Get("priority")),
		Tag:       values.Get("tag"),
		Search:    values.Get("search"),
		SortBy:    values.Get("sort_by"),
		SortOrder: values.Get("sort_order"),
	}

	var err error
	if q.Page, err = parseIntParam(values, "page"); err != nil {
		return q, err
	}
	if q.PageSize, err = parseIntParam(values, "page_size"); err != nil {
		return q, err
	}
	if q.DueBefore, err = parseTimeParam(values, "due_before"); err != nil {
		return q, err
	}
	if q.DueAfter, err = parseTimeParam(values, "due_after"); err != nil {
		return q, err
	}

	switch owner := values.Get("owner"); owner {
	case "":
	case "me":
		q.OwnerUserID = userID
	default:
		id, err := strconv.ParseInt(owner, 10, 64)
		if err != nil || id <= 0 {
			return q, fmt.Errorf("%w: owner must be a user ID or \"me\"", domain.ErrValidation)
		}
		q.OwnerUserID = id
	}

	return q, nil
}

func parseIntParam(values url.Values, name string) (int, error) {
	raw := values.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrValidation, name)
	}
	return n, nil
}

func parseTimeParam(values url.Values, name string) (*time.Time, error) {
	raw := values.Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an RFC 3339 timestamp", domain.ErrValidation, name)
	}
	t = t.UTC()
	return &t, nil
}
