// Package auth provides account storage and credential handling for Todo Core.
//
// It covers:
//   - bcrypt password hashing with a configurable cost (default 10)
//   - HS256 JWT access tokens carrying id, email and username (24h default)
//   - The users table, keyed by a unique email
//
// There are no refresh tokens and no revocation: a correctly signed,
// unexpired token is the whole credential. Request-level enforcement lives
// in the api package middleware.
package auth
