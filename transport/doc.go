// Package transport is the single pipeline every goDesk API call flows through.
//
// # Outbound
//
// [Transport] is an [net/http.RoundTripper] that reads the bearer credential from a
// [session.Store] before every request and attaches it as
// "Authorization: Bearer <token>". Requests with a body default to a JSON content
// type unless the caller set one, and every request gets an X-Request-ID.
//
// # Inbound
//
// A 401 response on any request removes the token and the cached user from the
// store, notifies every registered [Observer], and asks the [Navigator] to go to the
// login entry point. The response is still returned; nothing is swallowed.
//
// [Client] layers JSON helpers on top and turns non-2xx responses into [*APIError].
//
// # What this package must NOT do
//
//   - Import goDesk (the session manager listens through [Observer] instead).
//   - Retry requests or refresh credentials.
package transport
