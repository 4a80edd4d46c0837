// Package session provides the persistent key/value store that holds the client's
// bearer credential and cached user profile across process restarts.
//
// # Layout
//
// Exactly two logical keys are persisted: [KeyToken] (the raw bearer string) and
// [KeyUser] (the JSON-serialized profile). There is no versioning, no expiry and no
// encryption; expiry is enforced by the server and surfaces only as HTTP 401.
//
// # Back ends
//
//   - [MemoryStore]: process-local map, for tests and short-lived tools.
//   - [FileStore]: a single JSON document on disk, rewritten atomically.
//   - [RedisStore]: Redis keys under a configurable prefix.
//
// # Architecture boundaries
//
// This package owns persistence only. It does NOT know about HTTP, the Auth Service,
// or the in-memory session held by goDesk.Manager.
//
// # What this package must NOT do
//
//   - Import goDesk, transport, or api (no upward imports).
//   - Interpret or validate tokens beyond the display-only [InspectToken].
package session
