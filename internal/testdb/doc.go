//go:build integration

// Package testdb starts disposable PostgreSQL and Redis containers for
// integration tests and provides helpers for isolating test data.
//
// Tests that only need a consistent snapshot should run inside WithTx so
// their changes roll back automatically. Tests that exercise concurrent
// connections, such as racing reminder claims, must commit their data and
// call Truncate between cases instead.
package testdb
