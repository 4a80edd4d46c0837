package api

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/MrEthical07/goDesk/transport"
)

// Dashboard wraps /api/dashboard.
type Dashboard struct {
	c *transport.Client
}

// Stats returns the dashboard counters.
func (d *Dashboard) Stats(ctx context.Context) (Object, error) {
	var out Object
	err := d.c.Get(ctx, "/api/dashboard/stats", nil, &out)
	return out, err
}

// SLASummary returns the SLA compliance summary.
func (d *Dashboard) SLASummary(ctx context.Context) (Object, error) {
	var out Object
	err := d.c.Get(ctx, "/api/dashboard/sla-summary", nil, &out)
	return out, err
}

// Maintenance wraps /api/maintenance.
type Maintenance struct {
	c *transport.Client
}

// ChecklistItems returns the checklist for a category; empty means all.
func (m *Maintenance) ChecklistItems(ctx context.Context, category string) ([]Object, error) {
	var out []Object
	err := m.c.Get(ctx, "/api/maintenance/checklist-items", url.Values{"category": {category}}, &out)
	return out, err
}

// CreateSession records a completed maintenance session.
func (m *Maintenance) CreateSession(ctx context.Context, data Object) (Object, error) {
	var out Object
	err := m.c.Post(ctx, "/api/maintenance/sessions", data, &out)
	return out, err
}

// Backup wraps /api/backup.
type Backup struct {
	c *transport.Client
}

// Reports lists backup reports matching params.
func (b *Backup) Reports(ctx context.Context, params url.Values) ([]Object, error) {
	var out []Object
	err := b.c.Get(ctx, "/api/backup/reports", params, &out)
	return out, err
}

// CreateReport files a backup report.
func (b *Backup) CreateReport(ctx context.Context, data Object) (Object, error) {
	var out Object
	err := b.c.Post(ctx, "/api/backup/reports", data, &out)
	return out, err
}

// Export wraps /api/export.
type Export struct {
	c *transport.Client
}

// Tickets requests a ticket export and streams the generated file. The caller
// closes the returned body.
func (e *Export) Tickets(ctx context.Context, data Object) (io.ReadCloser, string, error) {
	body, hdr, err := e.c.Download(ctx, http.MethodPost, "/api/export/tickets", data)
	if err != nil {
		return nil, "", err
	}
	return body, hdr.Get("Content-Type"), nil
}

// Upload wraps /api/upload.
type Upload struct {
	c *transport.Client
}

// Image uploads an image as multipart field "file".
func (u *Upload) Image(ctx context.Context, filename string, r io.Reader) (Object, error) {
	var out Object
	err := u.c.PostMultipart(ctx, "/api/upload/image", "file", filename, r, &out)
	return out, err
}

// Knowledge wraps /api/knowledge.
type Knowledge struct {
	c *transport.Client
}

// Search queries the knowledge base; an empty category searches all.
func (k *Knowledge) Search(ctx context.Context, query, category string) ([]Object, error) {
	var out []Object
	err := k.c.Get(ctx, "/api/knowledge/search", url.Values{"query": {query}, "category": {category}}, &out)
	return out, err
}
