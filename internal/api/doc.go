// Package api implements the HTTP REST API for Todo Core.
//
// This package provides:
//   - POST /register and POST /login, returning a signed JWT
//   - Task CRUD under /todos, scoped to the caller's email
//   - GET /activity, the caller's own audit trail
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - TLS support for production deployments
//
// # Security
//
// Every /todos route passes through authMiddleware. A missing
// Authorization header is 401; a token with a bad signature, bad format
// or past expiry is 403. The header may hold "Bearer <token>" or the raw
// token. Ownership failures on update and delete are reported as 404 so
// other users' task ids cannot be probed.
//
// # Events
//
// When an EventPublisher is supplied, each successful create, update and
// delete is announced on todocore/events/{user_id}/tasks. Publishing
// failures are logged and never change the HTTP response.
package api
