// Package worker runs named background jobs on a fixed interval.
//
// The Scheduler owns its goroutines: it is constructed and started by the
// composition root and stopped on shutdown. Each job has at most one
// execution in flight; a tick that arrives while the previous execution is
// still running is skipped rather than queued. Jobs can also be run on
// demand with TriggerNow, which bypasses the overlap guard.
package worker
