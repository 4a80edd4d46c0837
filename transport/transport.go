package transport

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/MrEthical07/goDesk/session"
	"github.com/google/uuid"
)

const (
	// HeaderRequestID carries a per-request UUID.
	HeaderRequestID = "X-Request-ID"
	// ContentTypeJSON is the default media type for request bodies.
	ContentTypeJSON = "application/json"
	// DefaultLoginRoute is where the navigator is sent after a 401.
	DefaultLoginRoute = "/login"
)

// Invalidation describes a server-side session rejection observed on the wire.
type Invalidation struct {
	Method     string
	URL        string
	StatusCode int
	RequestID  string
	At         time.Time
}

// Observer is notified synchronously after the store has been wiped and before
// navigation happens.
type Observer interface {
	SessionInvalidated(ctx context.Context, inv Invalidation)
}

// ObserverFunc adapts a function to [Observer].
type ObserverFunc func(ctx context.Context, inv Invalidation)

// SessionInvalidated calls f.
func (f ObserverFunc) SessionInvalidated(ctx context.Context, inv Invalidation) {
	f(ctx, inv)
}

// ResponseHook sees every completed round trip. resp is nil when err is not.
type ResponseHook func(req *http.Request, resp *http.Response, err error, elapsed time.Duration)

// Option configures a [Transport].
type Option func(*Transport)

// WithBase sets the underlying round tripper. Defaults to http.DefaultTransport.
func WithBase(rt http.RoundTripper) Option {
	return func(t *Transport) {
		if rt != nil {
			t.base = rt
		}
	}
}

// WithNavigator sets the navigator used after a 401.
func WithNavigator(n Navigator) Option {
	return func(t *Transport) {
		if n != nil {
			t.navigator = n
		}
	}
}

// WithLoginRoute overrides [DefaultLoginRoute].
func WithLoginRoute(route string) Option {
	return func(t *Transport) {
		if route != "" {
			t.loginRoute = route
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transport) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithUserAgent sets a User-Agent for requests that do not carry one.
func WithUserAgent(ua string) Option {
	return func(t *Transport) {
		t.userAgent = ua
	}
}

// Transport injects the session credential into outbound requests and reacts to
// session rejection on inbound responses. It is safe for concurrent use.
type Transport struct {
	base       http.RoundTripper
	store      session.Store
	navigator  Navigator
	loginRoute string
	userAgent  string
	logger     *slog.Logger
	now        func() time.Time

	mu        sync.RWMutex
	observers []Observer
	hooks     []ResponseHook
}

// New creates a [Transport] reading credentials from store.
func New(store session.Store, opts ...Option) *Transport {
	t := &Transport{
		base:       http.DefaultTransport,
		store:      store,
		navigator:  NopNavigator{},
		loginRoute: DefaultLoginRoute,
		logger:     slog.New(slog.DiscardHandler),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// LoginRoute returns the navigation target used after a 401.
func (t *Transport) LoginRoute() string {
	return t.loginRoute
}

// Subscribe registers an invalidation observer. Observers run in registration order.
func (t *Transport) Subscribe(o Observer) {
	if o == nil {
		return
	}
	t.mu.Lock()
	t.observers = append(t.observers, o)
	t.mu.Unlock()
}

// OnResponse registers a hook that sees every round trip.
func (t *Transport) OnResponse(h ResponseHook) {
	if h == nil {
		return
	}
	t.mu.Lock()
	t.hooks = append(t.hooks, h)
	t.mu.Unlock()
}

// RoundTrip implements [http.RoundTripper]. The caller's request is not modified.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	out := req.Clone(ctx)
	if out.Header == nil {
		out.Header = make(http.Header)
	}

	token, ok, err := t.store.Get(ctx, session.KeyToken)
	switch {
	case err != nil:
		t.logger.WarnContext(ctx, "transport: token read failed, sending unauthenticated", "error", err)
	case ok && token != "":
		out.Header.Set("Authorization", "Bearer "+token)
	}

	if out.Header.Get("Content-Type") == "" && out.Body != nil && out.Body != http.NoBody {
		out.Header.Set("Content-Type", ContentTypeJSON)
	}
	if out.Header.Get(HeaderRequestID) == "" {
		out.Header.Set(HeaderRequestID, uuid.NewString())
	}
	if t.userAgent != "" && out.Header.Get("User-Agent") == "" {
		out.Header.Set("User-Agent", t.userAgent)
	}

	start := t.now()
	resp, err := t.base.RoundTrip(out)
	t.runHooks(out, resp, err, t.now().Sub(start))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		t.invalidate(ctx, out, resp.StatusCode)
	}
	return resp, nil
}

func (t *Transport) runHooks(req *http.Request, resp *http.Response, err error, elapsed time.Duration) {
	t.mu.RLock()
	hooks := t.hooks
	t.mu.RUnlock()

	for _, h := range hooks {
		h(req, resp, err, elapsed)
	}
}

// invalidate wipes the store, tells observers, then navigates. All three run on
// a context detached from the request: a rejected token must not survive a
// cancelled caller.
func (t *Transport) invalidate(ctx context.Context, req *http.Request, status int) {
	wipeCtx := context.WithoutCancel(ctx)
	if err := session.Clear(wipeCtx, t.store); err != nil {
		t.logger.ErrorContext(ctx, "transport: session wipe after 401 failed", "error", err)
	}

	inv := Invalidation{
		Method:     req.Method,
		URL:        req.URL.Redacted(),
		StatusCode: status,
		RequestID:  req.Header.Get(HeaderRequestID),
		At:         t.now(),
	}
	t.logger.InfoContext(ctx, "transport: session rejected by server",
		"method", inv.Method, "url", inv.URL, "request_id", inv.RequestID)

	t.mu.RLock()
	observers := t.observers
	t.mu.RUnlock()

	for _, o := range observers {
		o.SessionInvalidated(wipeCtx, inv)
	}

	t.navigator.Navigate(wipeCtx, t.loginRoute)
}

var _ http.RoundTripper = (*Transport)(nil)
