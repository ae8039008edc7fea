// Package events decouples the producers of audit events from the components
// that record them.
//
// Services and the reminder worker emit domain.AuditEvent values through an
// EventEmitter without knowing which handlers persist or forward them.
package events
