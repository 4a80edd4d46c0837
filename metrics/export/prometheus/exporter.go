package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	goDesk "github.com/MrEthical07/goDesk"
)

// Source is anything that can report goDesk metrics. *goDesk.Manager is one.
type Source interface {
	MetricsSnapshot() goDesk.MetricsSnapshot
	AuditDropped() uint64
}

type counterDef struct {
	ID   goDesk.MetricID
	Help string
}

var counterDefs = []counterDef{
	{goDesk.MetricLoginSuccess, "Successful logins."},
	{goDesk.MetricLoginFailure, "Failed logins."},
	{goDesk.MetricRegisterSuccess, "Accepted registrations."},
	{goDesk.MetricRegisterFailure, "Rejected registrations."},
	{goDesk.MetricLogout, "Logout calls."},
	{goDesk.MetricHydrateRestored, "Hydrations that restored a stored session."},
	{goDesk.MetricHydrateEmpty, "Hydrations that found no usable session."},
	{goDesk.MetricSessionInvalidated, "Sessions dropped after a 401 from the service."},
	{goDesk.MetricRequestTotal, "Requests sent through the authenticated transport."},
	{goDesk.MetricRequestFailure, "Requests ending in a transport error or non-2xx status."},
}

const (
	latencyName = "godesk_request_latency_seconds"
	latencyHelp = "Round-trip latency of requests through the authenticated transport."
)

// Exporter renders goDesk metrics in Prometheus text exposition format.
type Exporter struct {
	source Source
}

// NewExporter creates an exporter reading from m.
func NewExporter(m *goDesk.Manager) *Exporter {
	return &Exporter{source: m}
}

// NewExporterFromSource creates an exporter from a custom [Source].
func NewExporterFromSource(source Source) *Exporter {
	return &Exporter{source: source}
}

// Handler returns an http.Handler that serves the metrics.
func (p *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current metrics. It is empty when metrics are disabled
// and nothing was dropped.
//
//	Performance: one snapshot, no locks.
func (p *Exporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(4096)

	for _, def := range counterDefs {
		writeCounter(&b, counterName(def.ID), def.Help, snapshot.Counters[def.ID])
	}

	if raw, ok := snapshot.Histograms[goDesk.MetricRequestLatency]; ok {
		writeHistogram(&b, latencyName, latencyHelp, cumulativeBuckets(raw))
	}

	writeCounter(&b, "godesk_audit_dropped_total", "Audit events dropped on a full dispatcher buffer.", dropped)

	return b.String()
}

func counterName(id goDesk.MetricID) string {
	return "godesk_" + strings.TrimSuffix(id.String(), "_total") + "_total"
}

// bucketLabels are the le values for goDesk.HistogramBounds plus +Inf.
var bucketLabels = func() []string {
	out := make([]string, 0, len(goDesk.HistogramBounds)+1)
	for _, d := range goDesk.HistogramBounds {
		out = append(out, strconv.FormatFloat(d.Seconds(), 'g', -1, 64))
	}
	return append(out, "+Inf")
}()

func cumulativeBuckets(raw []uint64) []uint64 {
	out := make([]uint64, len(bucketLabels))
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}

func writeCounter(b *strings.Builder, name, help string, value uint64) {
	writeHeader(b, name, help, "counter")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func writeHistogram(b *strings.Builder, name, help string, cumulative []uint64) {
	writeHeader(b, name, help, "histogram")

	for i, le := range bucketLabels {
		b.WriteString(name)
		b.WriteString("_bucket{le=\"")
		b.WriteString(le)
		b.WriteString("\"} ")
		b.WriteString(strconv.FormatUint(cumulative[i], 10))
		b.WriteByte('\n')
	}

	b.WriteString(name)
	b.WriteString("_count ")
	b.WriteString(strconv.FormatUint(cumulative[len(cumulative)-1], 10))
	b.WriteByte('\n')

	// Snapshots carry bucket counts only.
	b.WriteString(name)
	b.WriteString("_sum 0\n")
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}
