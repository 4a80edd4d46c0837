package api

import (
	"context"
	"net/url"
	"strconv"

	"github.com/MrEthical07/goDesk/transport"
)

// Tickets wraps /api/tickets.
type Tickets struct {
	c *transport.Client
}

func ticketPath(id int64) string {
	return "/api/tickets/" + strconv.FormatInt(id, 10)
}

// List returns tickets matching params (status, priority, page, ...).
func (t *Tickets) List(ctx context.Context, params url.Values) ([]Object, error) {
	var out []Object
	err := t.c.Get(ctx, "/api/tickets", params, &out)
	return out, err
}

// Get returns one ticket.
func (t *Tickets) Get(ctx context.Context, id int64) (Object, error) {
	var out Object
	err := t.c.Get(ctx, ticketPath(id), nil, &out)
	return out, err
}

// Create creates a ticket and returns the stored record.
func (t *Tickets) Create(ctx context.Context, data Object) (Object, error) {
	var out Object
	err := t.c.Post(ctx, "/api/tickets", data, &out)
	return out, err
}

// Update replaces ticket fields.
func (t *Tickets) Update(ctx context.Context, id int64, data Object) (Object, error) {
	var out Object
	err := t.c.Put(ctx, ticketPath(id), data, &out)
	return out, err
}

// Delete removes a ticket.
func (t *Tickets) Delete(ctx context.Context, id int64) error {
	return t.c.Delete(ctx, ticketPath(id), nil)
}

// Categories wraps /api/categories.
type Categories struct {
	c *transport.Client
}

// List returns all categories.
func (c *Categories) List(ctx context.Context) ([]Object, error) {
	var out []Object
	err := c.c.Get(ctx, "/api/categories", nil, &out)
	return out, err
}

// Create adds a category.
func (c *Categories) Create(ctx context.Context, data Object) (Object, error) {
	var out Object
	err := c.c.Post(ctx, "/api/categories", data, &out)
	return out, err
}
