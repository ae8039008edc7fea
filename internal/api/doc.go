// Package api adapts HTTP requests to the task, user and reminder services:
// it decodes and validates payloads, maps service errors to status codes and
// writes JSON responses. Routing lives in cmd/server.
package api
