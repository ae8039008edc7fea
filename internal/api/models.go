package api

import (
	"time"

	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/service"
)

// RegisterRequest is the payload of POST /api/auth/register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest is the payload of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	UserID       int64  `json:"user_id"`
	Username     string `json:"username"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	// ExpiresAt is the RFC 3339 expiry of the access token.
	ExpiresAt string `json:"expires_at"`
}

// RefreshTokenRequest is the payload of POST /api/auth/refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse carries a new token pair.
type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
}

// ChangePasswordRequest is the payload of POST /api/auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=8,max=72"`
}

// CreateTaskRequest is the payload of POST /api/tasks.
type CreateTaskRequest struct {
	Title       string     `json:"title"       validate:"required,max=200"`
	Description string     `json:"description" validate:"max=5000"`
	Status      string     `json:"status"      validate:"omitempty,oneof=todo in_progress done"`
	Priority    string     `json:"priority"    validate:"omitempty,oneof=low medium high"`
	DueDate     *time.Time `json:"due_date"`
	Tags        []string   `json:"tags"        validate:"max=20,dive,min=1,max=50"`
}

// UpdateTaskRequest is the payload of PATCH /api/tasks/{id}. Omitted fields
// are unchanged; clear_due_date removes the due date.
type UpdateTaskRequest struct {
	Title        *string    `json:"title"          validate:"omitempty,min=1,max=200"`
	Description  *string    `json:"description"    validate:"omitempty,max=5000"`
	Status       *string    `json:"status"         validate:"omitempty,oneof=todo in_progress done"`
	Priority     *string    `json:"priority"       validate:"omitempty,oneof=low medium high"`
	DueDate      *time.Time `json:"due_date"`
	ClearDueDate bool       `json:"clear_due_date"`
	Tags         *[]string  `json:"tags"           validate:"omitempty,max=20,dive,min=1,max=50"`
}

// TaskResponse is the JSON form of a task.
type TaskResponse struct {
	ID             int64      `json:"id"`
	OwnerUserID    int64      `json:"owner_user_id"`
	OwnerUsername  string     `json:"owner_username,omitempty"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	DueDate        *time.Time `json:"due_date"`
	Tags           []string   `json:"tags"`
	ReminderSentAt *time.Time `json:"reminder_sent_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Pagination describes the page returned by a list endpoint.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// TaskListResponse is returned by GET /api/tasks.
type TaskListResponse struct {
	Tasks      []TaskResponse `json:"tasks"`
	Pagination Pagination     `json:"pagination"`
}

// AttachmentResponse is the JSON form of an attachment's metadata.
type AttachmentResponse struct {
	ID          int64     `json:"id"`
	TaskID      int64     `json:"task_id"`
	Filename    string    `json:"filename"`
	FileSize    int64     `json:"file_size"`
	ContentType string    `json:"content_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// AttachmentListResponse is returned by GET /api/tasks/{id}/attachments.
type AttachmentListResponse struct {
	Attachments []AttachmentResponse `json:"attachments"`
}

// WorkerStatusResponse is returned by GET /api/worker/status.
type WorkerStatusResponse struct {
	Running          bool       `json:"running"`
	JobRegistered    bool       `json:"job_registered"`
	NextRun          *time.Time `json:"next_run"`
	LastReminderSent *time.Time `json:"last_reminder_sent"`
	Schedule         string     `json:"schedule"`
}

// TriggerResponse is returned by POST /api/worker/trigger.
type TriggerResponse struct {
	Message    string    `json:"message"`
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Found      int       `json:"found"`
	Sent       int       `json:"sent"`
	Skipped    int       `json:"skipped"`
	Errors     int       `json:"errors"`
}

// HealthCheck is the result of one component check.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]HealthCheck `json:"checks,omitempty"`
}

func taskToResponse(task *domain.Task) TaskResponse {
	tags := task.Tags
	if tags == nil {
		tags = []string{}
	}
	return TaskResponse{
		ID:             task.ID,
		OwnerUserID:    task.OwnerUserID,
		OwnerUsername:  task.OwnerUsername,
		Title:          task.Title,
		Description:    task.Description,
		Status:         string(task.Status),
		Priority:       string(task.Priority),
		DueDate:        task.DueDate,
		Tags:           tags,
		ReminderSentAt: task.ReminderSentAt,
		CreatedAt:      task.CreatedAt,
		UpdatedAt:      task.UpdatedAt,
	}
}

func pageToResponse(page *service.TaskPage) TaskListResponse {
	tasks := make([]TaskResponse, 0, len(page.Tasks))
	for i := range page.Tasks {
		tasks = append(tasks, taskToResponse(&page.Tasks[i]))
	}
	return TaskListResponse{
		Tasks: tasks,
		Pagination: Pagination{
			Page:       page.Page,
			PageSize:   page.PageSize,
			Total:      page.Total,
			TotalPages: page.TotalPages,
		},
	}
}

func (req CreateTaskRequest) toInput() service.CreateTaskInput {
	return service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      domain.TaskStatus(req.Status),
		Priority:    domain.TaskPriority(req.Priority),
		DueDate:     req.DueDate,
		Tags:        req.Tags,
	}
}

func (req UpdateTaskRequest) toInput() service.UpdateTaskInput {
	input := service.UpdateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		DueDate:      req.DueDate,
		ClearDueDate: req.ClearDueDate,
		Tags:         req.Tags,
	}
	if req.Status != nil {
		status := domain.TaskStatus(*req.Status)
		input.Status = &status
	}
	if req.Priority != nil {
		priority := domain.TaskPriority(*req.Priority)
		input.Priority = &priority
	}
	return input
}

func attachmentToResponse(a *domain.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:          a.ID,
		TaskID:      a.TaskID,
		Filename:    a.Filename,
		FileSize:    a.FileSize,
		ContentType: a.ContentType,
		UploadedAt:  a.UploadedAt,
	}
}
