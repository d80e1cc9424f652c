// Package store provides a SQLite emission log for signup form sessions.
//
// Every value an engine's signals produce can be appended here, stamped
// with its session id and logical seq. The log is a diagnostic trace: it
// is read back by `signupflow trace`, never used to restore a form.
//
// # Critical Patterns
//
// Logical time:
//   - Rows are keyed and ordered by (session_id, seq), never by wall time
//
// Idempotent writes:
//   - PRIMARY KEY (session_id, seq) with ON CONFLICT DO NOTHING, so a
//     retried write of the same emission is a no-op
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - one open connection: SQLite has a single writer anyway
package store
