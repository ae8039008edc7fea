// Package auth issues and validates the HMAC-signed JWT access and refresh
// tokens used by the API, and verifies bcrypt password hashes.
package auth
