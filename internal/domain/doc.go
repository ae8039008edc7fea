// Package domain defines the core business entities of the task tracker:
// users, the tasks they own, and the append-only audit events recorded
// against them. Entities carry their own validation rules but no
// persistence or transport concerns.
package domain
