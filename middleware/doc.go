// Package middleware gates views on the client-side session held by goDesk.Manager.
//
// # Guards
//
//   - [Decide]: pure mapping from a session snapshot to pending, redirect or render.
//   - [Guard]: http middleware applying Decide to each request.
//   - [RequireRole]: authorization gate for role-restricted views, layered inside Guard.
//
// Guard injects the [goDesk.State] it decided on into the request context; read it
// with [StateFromContext].
//
// # Architecture boundaries
//
// This package translates session state into HTTP outcomes. It does NOT
// authenticate anything itself. All state comes from a [StateSource].
//
// # What this package must NOT do
//
//   - Read or write the session store.
//   - Call the remote service.
//   - Remember the attempted destination across a redirect.
package middleware
