// Package goDesk is the client-side session layer for the helpdesk service: it
// logs users in, keeps the bearer token and profile in a persistent store,
// attaches the token to every outbound request, and drops the session when
// the server rejects it.
//
// A [Manager] is built once per process through [Builder.Build] and is safe to
// call from multiple goroutines. Call [Manager.Hydrate] before consulting
// [Manager.State]; until then State reports Loading.
//
// # Architecture boundaries
//
// goDesk is the public surface. It exposes [Manager], [Builder], [Config], and
// value types (User, Result, State, MetricsSnapshot). Persistence lives in
// session, request decoration and 401 handling in transport, endpoint wiring in
// api, and view gating in middleware. The transport wipes the store on a 401
// and notifies the Manager before navigating, so memory and store agree by the
// time the login view is reached.
//
// # What this package must NOT do
//
//   - Retry or refresh tokens; a rejected session is simply dropped.
//   - Surface Go errors from Manager operations; outcomes are Result and State.
//   - Invent error categories beyond the server detail and the fallback message.
//   - Import middleware (it imports goDesk).
package goDesk
