// Package store defines the persistence interfaces used by the services and
// the reminder worker, along with the error values shared by every
// implementation and the transaction helper.
package store
