package goDesk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/MrEthical07/goDesk/api"
	internalaudit "github.com/MrEthical07/goDesk/internal/audit"
	"github.com/MrEthical07/goDesk/session"
	"github.com/MrEthical07/goDesk/transport"
)

// Manager owns the client-side session: the bearer token and the user profile,
// kept in memory and mirrored in a [session.Store]. It is safe for concurrent
// use. Operations report outcomes through [Result] and [State] and never
// return Go errors.
type Manager struct {
	config  Config
	store   session.Store
	client  *transport.Client
	api     *api.API
	logger  *slog.Logger
	metrics *Metrics
	audit   *internalaudit.Dispatcher

	hydrateOnce sync.Once

	// commitMu orders store writes with the matching in-memory update so the
	// store and memory never disagree about which pair is current. It is never
	// held across an HTTP call.
	commitMu sync.Mutex

	mu      sync.RWMutex
	token   string
	user    *User
	rawUser string
	loading bool
	err     string
}

// Config returns the configuration the Manager was built with.
func (m *Manager) Config() Config {
	return m.config
}

// Client returns the authenticated HTTP client for application calls.
func (m *Manager) Client() *transport.Client {
	return m.client
}

// API returns the domain request modules bound to [Manager.Client].
func (m *Manager) API() *api.API {
	return m.api
}

// Store returns the persistent session store.
func (m *Manager) Store() session.Store {
	return m.store
}

/*
====================================
HYDRATE
====================================
*/

// Hydrate restores a persisted session. Only the first call does any work.
// Loading is false once it returns, whatever it found.
//
//	Performance: 2 store reads on the first call, none afterwards.
func (m *Manager) Hydrate(ctx context.Context) {
	m.hydrateOnce.Do(func() {
		m.hydrate(ctx)
	})
}

func (m *Manager) hydrate(ctx context.Context) {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()
	defer func() {
		m.mu.Lock()
		m.loading = false
		m.mu.Unlock()
	}()

	token, user, raw, ok := m.readStored(ctx)
	if !ok {
		m.metrics.Inc(MetricHydrateEmpty)
		return
	}

	m.mu.Lock()
	m.token, m.user, m.rawUser = token, user, raw
	m.mu.Unlock()

	m.metrics.Inc(MetricHydrateRestored)
	m.emitAudit(ctx, auditEventSessionRestored, true, user, "", "", nil)
	m.logger.DebugContext(ctx, "goDesk: session restored", "username", user.Username)
}

// readStored returns the persisted pair when both halves are present and the
// profile decodes. Anything else counts as no session.
func (m *Manager) readStored(ctx context.Context) (string, *User, string, bool) {
	token, ok, err := m.store.Get(ctx, session.KeyToken)
	if err != nil {
		m.logger.WarnContext(ctx, "goDesk: hydrate token read failed", "error", err)
		return "", nil, "", false
	}
	if !ok || token == "" {
		return "", nil, "", false
	}

	raw, ok, err := m.store.Get(ctx, session.KeyUser)
	if err != nil {
		m.logger.WarnContext(ctx, "goDesk: hydrate user read failed", "error", err)
		return "", nil, "", false
	}
	if !ok || raw == "" {
		return "", nil, "", false
	}

	user, err := parseUser([]byte(raw))
	if err != nil {
		m.logger.WarnContext(ctx, "goDesk: stored user profile is corrupt, ignoring session", "error", err)
		return "", nil, "", false
	}
	return token, user, raw, true
}

/*
====================================
LOGIN / REGISTER / LOGOUT
====================================
*/

// Login exchanges credentials for a session. On success the token and profile
// are persisted before the result is returned. On failure Error carries the
// server detail or the configured fallback and the previous session is kept.
//
//	Performance: 1 HTTP round trip, 2 store writes on success.
func (m *Manager) Login(ctx context.Context, creds Credentials) Result {
	m.setError("")

	resp, err := m.api.Auth.Login(ctx, creds)
	var user *User
	var raw string
	if err == nil {
		user, raw, err = decodeLogin(resp)
	}
	if err == nil {
		err = m.commit(ctx, resp.AccessToken, user, raw)
	}
	if err != nil {
		msg := transport.MessageOr(err, m.config.Messages.LoginFailed)
		m.setError(msg)
		m.metrics.Inc(MetricLoginFailure)
		m.emitAudit(ctx, auditEventLoginFailure, false, nil, creds.Username, auditErrorCode(err), nil)
		m.logger.InfoContext(ctx, "goDesk: login failed", "username", creds.Username, "error", err)
		return Result{Error: msg}
	}

	m.metrics.Inc(MetricLoginSuccess)
	m.emitAudit(ctx, auditEventLoginSuccess, true, user, "", "", nil)
	m.logger.InfoContext(ctx, "goDesk: login succeeded", "username", user.Username, "role", user.Role)
	return Result{Success: true, User: user.clone()}
}

// Register creates an account and then logs in with the same username and
// password. A failed registration never attempts the login.
//
//	Performance: 1 HTTP round trip plus Login on success.
func (m *Manager) Register(ctx context.Context, reg Registration) Result {
	m.setError("")

	if err := m.api.Auth.Register(ctx, reg); err != nil {
		msg := transport.MessageOr(err, m.config.Messages.RegisterFailed)
		m.setError(msg)
		m.metrics.Inc(MetricRegisterFailure)
		m.emitAudit(ctx, auditEventRegisterFailure, false, nil, reg.Username, auditErrorCode(err), nil)
		m.logger.InfoContext(ctx, "goDesk: registration failed", "username", reg.Username, "error", err)
		return Result{Error: msg}
	}

	m.metrics.Inc(MetricRegisterSuccess)
	m.emitAudit(ctx, auditEventRegisterSuccess, true, nil, reg.Username, "", nil)
	return m.Login(ctx, Credentials{Username: reg.Username, Password: reg.Password})
}

// Logout drops the session locally. Store failures are logged and otherwise
// ignored. Calling Logout without a session is a no-op apart from clearing Error.
//
//	Performance: 2 store removals, no HTTP.
func (m *Manager) Logout(ctx context.Context) {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	if err := session.Clear(ctx, m.store); err != nil {
		m.logger.WarnContext(ctx, "goDesk: logout store cleanup failed", "error", err)
	}

	m.mu.Lock()
	user := m.user
	m.token, m.user, m.rawUser = "", nil, ""
	m.err = ""
	m.mu.Unlock()

	m.metrics.Inc(MetricLogout)
	m.emitAudit(ctx, auditEventLogout, true, user, "", "", nil)
}

// SessionInvalidated implements [transport.Observer]. The transport has already
// wiped the store; the in-memory session is reset before navigation happens.
func (m *Manager) SessionInvalidated(ctx context.Context, inv transport.Invalidation) {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	// A login may have committed between the transport's wipe and now.
	if err := session.Clear(ctx, m.store); err != nil {
		m.logger.WarnContext(ctx, "goDesk: store cleanup after rejection failed", "error", err)
	}

	m.mu.Lock()
	user := m.user
	m.token, m.user, m.rawUser = "", nil, ""
	m.err = ""
	m.mu.Unlock()

	m.metrics.Inc(MetricSessionInvalidated)
	m.emitAudit(ctx, auditEventSessionInvalidated, false, user, "", auditErrUnauthorized, invalidationMetadata(inv))
}

func decodeLogin(resp api.LoginResponse) (*User, string, error) {
	if resp.AccessToken == "" {
		return nil, "", fmt.Errorf("%w: missing access_token", ErrMalformedLoginResponse)
	}
	user, err := parseUser(resp.User)
	if err != nil {
		if errors.Is(err, ErrMalformedLoginResponse) {
			return nil, "", fmt.Errorf("%w: missing user", ErrMalformedLoginResponse)
		}
		return nil, "", fmt.Errorf("%w: %v", ErrMalformedLoginResponse, err)
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, resp.User); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMalformedLoginResponse, err)
	}
	return user, buf.String(), nil
}

// commit writes token then user to the store and only then swaps the pair in
// memory. If the second write fails the store is put back to the previous pair.
func (m *Manager) commit(ctx context.Context, token string, user *User, raw string) error {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	if err := m.store.Set(ctx, session.KeyToken, token); err != nil {
		return storeError(err)
	}
	if err := m.store.Set(ctx, session.KeyUser, raw); err != nil {
		m.restoreStored(context.WithoutCancel(ctx))
		return storeError(err)
	}

	m.mu.Lock()
	m.token, m.user, m.rawUser = token, user, raw
	m.mu.Unlock()
	return nil
}

func (m *Manager) restoreStored(ctx context.Context) {
	m.mu.RLock()
	token, raw := m.token, m.rawUser
	m.mu.RUnlock()

	var err error
	if token == "" {
		err = session.Clear(ctx, m.store)
	} else if err = m.store.Set(ctx, session.KeyToken, token); err == nil {
		err = m.store.Set(ctx, session.KeyUser, raw)
	}
	if err != nil {
		m.logger.ErrorContext(ctx, "goDesk: store rollback after failed login write failed", "error", err)
	}
}

func storeError(err error) error {
	if errors.Is(err, session.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
}

/*
====================================
STATE
====================================
*/

// IsAuthorized reports whether the current user has exactly role.
func (m *Manager) IsAuthorized(role string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil && m.user.Role == role
}

// IsAdmin is IsAuthorized(RoleAdmin).
func (m *Manager) IsAdmin() bool {
	return m.IsAuthorized(RoleAdmin)
}

// ClearError resets the last failure message.
func (m *Manager) ClearError() {
	m.setError("")
}

// State returns a snapshot. The User pointer is a copy.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return State{
		User:          m.user.clone(),
		Loading:       m.loading,
		Error:         m.err,
		Authenticated: m.token != "" && m.user != nil,
	}
}

func (m *Manager) setError(msg string) {
	m.mu.Lock()
	m.err = msg
	m.mu.Unlock()
}

/*
====================================
OBSERVABILITY
====================================
*/

func (m *Manager) observeResponse(_ *http.Request, resp *http.Response, err error, elapsed time.Duration) {
	m.metrics.Inc(MetricRequestTotal)
	if err != nil || resp.StatusCode < 200 || resp.StatusCode > 299 {
		m.metrics.Inc(MetricRequestFailure)
	}
	m.metrics.Observe(MetricRequestLatency, elapsed)
}

// MetricsSnapshot returns the current counters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// AuditDropped returns how many audit events were dropped on a full buffer.
func (m *Manager) AuditDropped() uint64 {
	return m.audit.Dropped()
}

// Close flushes buffered audit events and stops the dispatcher. It does not
// touch the session.
func (m *Manager) Close() {
	m.audit.Close()
}

var _ transport.Observer = (*Manager)(nil)
