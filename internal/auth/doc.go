// Package auth implements authentication for the Hearth HTTP API.
//
// It provides:
//   - Argon2id password hashing in PHC string format
//   - A SQLite-backed user repository
//   - Stateless JWT session tokens (HS256) with a sid claim
//   - The session Gate: registration, login, validation, logout
//
// Session tokens are validated by signature and expiry alone, so the hot
// path (every authenticated request) never queries the database. Logout
// revokes the token's session ID in memory until its natural expiry.
package auth
