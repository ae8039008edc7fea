// Package reminder implements the reminder job: it selects tasks due within
// the reminder window, claims each one with a conditional update so
// concurrent runs never remind twice, and records a REMINDER_SENT audit
// event for every successful claim.
//
// A task is a candidate at time now when its due date lies in
// [now, now+window] and its reminder marker is either unset or older than
// now-window. The marker re-arms purely on elapsed time; a task whose marker
// aged out is reminded again even if its due date never changed.
//
// Scheduling lives in package worker. Runner.Run is safe to call
// concurrently with itself; the claim is the only arbiter between runs.
package reminder
