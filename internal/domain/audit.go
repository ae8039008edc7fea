package domain

import "time"

// AuditAction enumerates the actions recorded in the audit log.
type AuditAction string

// Audit actions
const (
	AuditActionUserRegistered  AuditAction = "USER_REGISTERED"
	AuditActionUserLogin       AuditAction = "USER_LOGIN"
	AuditActionPasswordChanged AuditAction = "PASSWORD_CHANGED"
	AuditActionTaskCreated     AuditAction = "TASK_CREATED"
	AuditActionTaskUpdated     AuditAction = "TASK_UPDATED"
	AuditActionTaskDeleted     AuditAction = "TASK_DELETED"
	AuditActionReminderSent    AuditAction = "REMINDER_SENT"

	AuditActionAttachmentUploaded AuditAction = "ATTACHMENT_UPLOADED"
	AuditActionAttachmentDeleted  AuditAction = "ATTACHMENT_DELETED"
)

// Audit resource types
const (
	AuditResourceUser       = "user"
	AuditResourceTask       = "task"
	AuditResourceReminder   = "reminder"
	AuditResourceAttachment = "attachment"
)

// AuditEvent is an immutable, append-only record of something that happened.
// UserID is nil for system-initiated actions such as reminders.
type AuditEvent struct {
	ID           int64          `json:"id"`
	ActionType   AuditAction    `json:"action_type"`
	UserID       *int64         `json:"user_id,omitempty"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}
