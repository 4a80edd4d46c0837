package goDesk

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/MrEthical07/goDesk/session"
	"github.com/MrEthical07/goDesk/transport"
)

const (
	auditEventLoginSuccess       = "login_success"
	auditEventLoginFailure       = "login_failure"
	auditEventRegisterSuccess    = "register_success"
	auditEventRegisterFailure    = "register_failure"
	auditEventLogout             = "logout"
	auditEventSessionRestored    = "session_restored"
	auditEventSessionInvalidated = "session_invalidated"
)

// AuditErrorCode is the coarse failure class recorded on audit events. Server
// detail text is never copied into audit records.
type AuditErrorCode string

const (
	auditErrUnauthorized      AuditErrorCode = "unauthorized"
	auditErrRejected          AuditErrorCode = "rejected"
	auditErrServer            AuditErrorCode = "server_error"
	auditErrMalformedResponse AuditErrorCode = "malformed_response"
	auditErrStoreUnavailable  AuditErrorCode = "store_unavailable"
	auditErrTransport         AuditErrorCode = "transport_error"
)

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}
	var apiErr *transport.APIError
	switch {
	case errors.As(err, &apiErr):
		switch {
		case apiErr.Unauthorized():
			return auditErrUnauthorized
		case apiErr.StatusCode >= 500:
			return auditErrServer
		default:
			return auditErrRejected
		}
	case errors.Is(err, ErrMalformedLoginResponse):
		return auditErrMalformedResponse
	case errors.Is(err, session.ErrStoreUnavailable):
		return auditErrStoreUnavailable
	default:
		return auditErrTransport
	}
}

func (m *Manager) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	user *User,
	username string,
	code AuditErrorCode,
	metadataBuilder func() map[string]string,
) {
	if m == nil || m.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Username:  username,
		Success:   success,
		Metadata:  metadata,
	}
	if user != nil {
		event.UserID = string(user.ID)
		if event.Username == "" {
			event.Username = user.Username
		}
	}
	if code != "" {
		event.Error = string(code)
	}

	m.audit.Emit(ctx, event)
}

func invalidationMetadata(inv transport.Invalidation) func() map[string]string {
	return func() map[string]string {
		return map[string]string{
			"method":     inv.Method,
			"url":        inv.URL,
			"status":     strconv.Itoa(inv.StatusCode),
			"request_id": inv.RequestID,
		}
	}
}
