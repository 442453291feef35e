// Package todo stores per-user task records for Todo Core.
//
// Tasks are owned by an email address taken from the caller's verified
// token. Reads and writes are always filtered by that email, and a task
// owned by someone else is reported exactly like a missing one.
package todo
