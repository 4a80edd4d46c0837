package middleware

import (
	"net/http"

	goDesk "github.com/MrEthical07/goDesk"
)

// RequireRole lets a request through only when the current user has exactly
// role; anything else gets the forbidden handler (403 by default). It does not
// redirect: mount it inside [Guard] so unauthenticated requests never reach it.
func RequireRole(source StateSource, role string, opts ...Option) func(http.Handler) http.Handler {
	o := buildOptions(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state, ok := StateFromContext(r.Context())
			if !ok && source != nil {
				state = source.State()
			}
			if state.User == nil || state.User.Role != role {
				o.forbidden.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin is RequireRole(source, goDesk.RoleAdmin).
func RequireAdmin(source StateSource, opts ...Option) func(http.Handler) http.Handler {
	return RequireRole(source, goDesk.RoleAdmin, opts...)
}
