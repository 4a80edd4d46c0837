// Package api holds the request builders for the helpdesk service: the Auth
// Service consumed by goDesk.Manager, and the domain modules (tickets, categories,
// dashboard, maintenance, backup, export, upload, knowledge) that views call
// directly.
//
// Every call rides a [transport.Client], so all of them get credential injection
// and uniform 401 handling. Domain payloads are passed through as JSON; this
// package does not model ticket semantics.
package api

import "github.com/MrEthical07/goDesk/transport"

// Object is a JSON object passed through unchanged.
type Object = map[string]any

// API groups every module over one client.
type API struct {
	Auth        *Auth
	Tickets     *Tickets
	Categories  *Categories
	Dashboard   *Dashboard
	Maintenance *Maintenance
	Backup      *Backup
	Export      *Export
	Upload      *Upload
	Knowledge   *Knowledge
}

// New wires every module to c using the default auth endpoints.
func New(c *transport.Client) *API {
	return &API{
		Auth:        NewAuth(c, "", ""),
		Tickets:     &Tickets{c: c},
		Categories:  &Categories{c: c},
		Dashboard:   &Dashboard{c: c},
		Maintenance: &Maintenance{c: c},
		Backup:      &Backup{c: c},
		Export:      &Export{c: c},
		Upload:      &Upload{c: c},
		Knowledge:   &Knowledge{c: c},
	}
}
