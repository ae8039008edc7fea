// Package audit records the append-only audit trail.
//
// Logger is the sink used by services and the reminder worker. It stamps
// each event and hands it to an events.EventEmitter; StoreHandler is the
// emitter handler that persists events to the audit_events table.
package audit
