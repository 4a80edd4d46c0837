package middleware

import (
	"context"
	"net/http"

	goDesk "github.com/MrEthical07/goDesk"
)

// Decision is the outcome of evaluating a protected view.
type Decision int

const (
	// DecisionPending means hydration has not finished; show a placeholder.
	DecisionPending Decision = iota
	// DecisionRedirect means there is no session; send the user to login.
	DecisionRedirect
	// DecisionRender means the protected view may be shown.
	DecisionRender
)

// String returns the decision name.
func (d Decision) String() string {
	switch d {
	case DecisionPending:
		return "pending"
	case DecisionRedirect:
		return "redirect"
	case DecisionRender:
		return "render"
	default:
		return "unknown"
	}
}

// DefaultLoginRoute is where unauthenticated requests are redirected.
const DefaultLoginRoute = "/login"

// StateSource supplies session snapshots. *goDesk.Manager implements it.
type StateSource interface {
	State() goDesk.State
}

// StateSourceFunc adapts a function to [StateSource].
type StateSourceFunc func() goDesk.State

// State implements [StateSource].
func (f StateSourceFunc) State() goDesk.State {
	return f()
}

// Decide maps a snapshot to a Decision. Loading wins over everything else.
func Decide(state goDesk.State) Decision {
	switch {
	case state.Loading:
		return DecisionPending
	case !state.Authenticated:
		return DecisionRedirect
	default:
		return DecisionRender
	}
}

type options struct {
	loginRoute  string
	placeholder http.Handler
	forbidden   http.Handler
}

// Option configures Guard and RequireRole.
type Option func(*options)

// WithLoginRoute overrides [DefaultLoginRoute].
func WithLoginRoute(route string) Option {
	return func(o *options) {
		if route != "" {
			o.loginRoute = route
		}
	}
}

// WithPlaceholder sets the handler served while the session is still loading.
func WithPlaceholder(h http.Handler) Option {
	return func(o *options) {
		if h != nil {
			o.placeholder = h
		}
	}
}

// WithForbidden sets the handler RequireRole serves on a role mismatch.
func WithForbidden(h http.Handler) Option {
	return func(o *options) {
		if h != nil {
			o.forbidden = h
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		loginRoute:  DefaultLoginRoute,
		placeholder: http.HandlerFunc(noContent),
		forbidden:   http.HandlerFunc(forbidden),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func noContent(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusNoContent)
}

func forbidden(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, "forbidden", http.StatusForbidden)
}

type stateContextKey struct{}

// StateFromContext returns the snapshot Guard rendered the request with.
func StateFromContext(ctx context.Context) (goDesk.State, bool) {
	st, ok := ctx.Value(stateContextKey{}).(goDesk.State)
	return st, ok
}

// Guard protects next. While loading it serves the placeholder (204 by
// default), without a session it redirects with 302 Found to the login route,
// and otherwise it calls next with the snapshot in the request context. The
// requested path is not carried to the login route.
func Guard(source StateSource, opts ...Option) func(http.Handler) http.Handler {
	o := buildOptions(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if source == nil {
				http.Redirect(w, r, o.loginRoute, http.StatusFound)
				return
			}

			state := source.State()
			switch Decide(state) {
			case DecisionPending:
				o.placeholder.ServeHTTP(w, r)
			case DecisionRedirect:
				http.Redirect(w, r, o.loginRoute, http.StatusFound)
			default:
				ctx := context.WithValue(r.Context(), stateContextKey{}, state)
				next.ServeHTTP(w, r.WithContext(ctx))
			}
		})
	}
}
