package goDesk

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"

	"github.com/MrEthical07/goDesk/api"
	internalaudit "github.com/MrEthical07/goDesk/internal/audit"
)

// RoleAdmin is the role value granting administrative views.
const RoleAdmin = "admin"

// Credentials is the login payload.
type Credentials = api.Credentials

// UserID accepts both numeric and string identifiers from the server.
type UserID string

// UnmarshalJSON implements [json.Unmarshaler].
func (id *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = UserID(n.String())
	return nil
}

// MarshalJSON emits numeric identifiers as numbers.
func (id UserID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// User is the authenticated profile. Fields beyond these are persisted with the
// session but not interpreted.
type User struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

func (u *User) clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	return &out
}

// parseUser decodes a stored or server-sent profile. A JSON null or a
// non-object is rejected.
func parseUser(raw []byte) (*User, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, ErrMalformedLoginResponse
	}
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Registration is the user-creation payload. Extra carries any additional
// fields the server accepts and is merged into the JSON body.
type Registration struct {
	Username string
	Password string
	Email    string
	FullName string
	Role     string
	Extra    map[string]any
}

// MarshalJSON flattens Extra next to the named fields. Named fields win.
func (r Registration) MarshalJSON() ([]byte, error) {
	body := make(map[string]any, len(r.Extra)+5)
	for k, v := range r.Extra {
		body[k] = v
	}
	body["username"] = r.Username
	body["password"] = r.Password
	if r.Email != "" {
		body["email"] = r.Email
	}
	if r.FullName != "" {
		body["full_name"] = r.FullName
	}
	if r.Role != "" {
		body["role"] = r.Role
	}
	return json.Marshal(body)
}

// Result is the outcome of Login and Register. Error is empty on success.
type Result struct {
	Success bool
	User    *User
	Error   string
}

// State is a point-in-time view of the Manager.
type State struct {
	User          *User
	Loading       bool
	Error         string
	Authenticated bool
}

// AuditEvent is a structured audit record emitted by the Manager.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the Manager's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
