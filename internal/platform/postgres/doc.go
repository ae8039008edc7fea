// Package postgres provides PostgreSQL implementations of the persistence
// interfaces defined in internal/store, the embedded goose migrations for
// the schema, and the mapping from driver errors to store errors.
package postgres
