// Package service contains the application's use cases. It coordinates the
// stores defined in internal/store, applies ownership rules, and records
// audit events for user-initiated changes.
//
// Services receive their dependencies through constructors and never depend
// on a concrete storage implementation. Multi-step writes run inside
// store.RunInTransaction.
package service
