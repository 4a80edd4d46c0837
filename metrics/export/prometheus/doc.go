// Package prometheus renders goDesk session metrics in Prometheus text
// exposition format.
//
// [NewExporter] accepts a [goDesk.Manager] and exposes an [http.Handler]. Counter
// names are godesk_*_total; the single histogram is
// godesk_request_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate session state.
package prometheus
