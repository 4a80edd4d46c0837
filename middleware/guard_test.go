package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	goDesk "github.com/MrEthical07/goDesk"
)

func staticState(st goDesk.State) StateSource {
	return StateSourceFunc(func() goDesk.State { return st })
}

var (
	pendingState = goDesk.State{Loading: true}
	anonState    = goDesk.State{}
	agentState   = goDesk.State{Authenticated: true, User: &goDesk.User{ID: "7", Username: "budi", Role: "agent"}}
	adminState   = goDesk.State{Authenticated: true, User: &goDesk.User{ID: "1", Username: "root", Role: goDesk.RoleAdmin}}
)

func protected(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("secret"))
	})
}

func TestDecide(t *testing.T) {
	cases := []struct {
		name  string
		state goDesk.State
		want  Decision
	}{
		{"pending", pendingState, DecisionPending},
		{"pending even with session", goDesk.State{Loading: true, Authenticated: true, User: agentState.User}, DecisionPending},
		{"anonymous", anonState, DecisionRedirect},
		{"authenticated", agentState, DecisionRender},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Decide(tc.state); got != tc.want {
				t.Fatalf("Decide() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestGuardPendingServesPlaceholder(t *testing.T) {
	var called bool
	h := Guard(staticState(pendingState))(protected(&called))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tickets", nil))

	if called {
		t.Fatalf("protected handler must not run while loading")
	}
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Fatalf("placeholder must be empty, got %q", rr.Body.String())
	}
	if loc := rr.Header().Get("Location"); loc != "" {
		t.Fatalf("placeholder must not redirect, got Location %q", loc)
	}
}

func TestGuardCustomPlaceholder(t *testing.T) {
	var called bool
	spinner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	h := Guard(staticState(pendingState), WithPlaceholder(spinner))(protected(&called))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusAccepted || called {
		t.Fatalf("expected custom placeholder, got %d called=%v", rr.Code, called)
	}
}

func TestGuardRedirectsAnonymousAndDropsDestination(t *testing.T) {
	var called bool
	h := Guard(staticState(anonState))(protected(&called))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tickets/new?draft=1", nil))

	if called {
		t.Fatalf("protected handler must not run without a session")
	}
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/login" {
		t.Fatalf("expected Location /login, got %q", loc)
	}
}

func TestGuardCustomLoginRoute(t *testing.T) {
	var called bool
	h := Guard(staticState(anonState), WithLoginRoute("/masuk"))(protected(&called))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reports", nil))
	if loc := rr.Header().Get("Location"); loc != "/masuk" {
		t.Fatalf("expected /masuk, got %q", loc)
	}
}

func TestGuardNilSourceRedirects(t *testing.T) {
	var called bool
	h := Guard(nil)(protected(&called))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if called || rr.Code != http.StatusFound {
		t.Fatalf("nil source must redirect, got %d called=%v", rr.Code, called)
	}
}

func TestGuardRendersAndInjectsState(t *testing.T) {
	var seen goDesk.State
	var ok bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, ok = StateFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	h := Guard(staticState(agentState))(next)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/maintenance", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !ok || seen.User == nil || seen.User.Username != "budi" {
		t.Fatalf("expected injected state, got %+v ok=%v", seen, ok)
	}
}

func TestGuardReevaluatesPerRequest(t *testing.T) {
	current := pendingState
	src := StateSourceFunc(func() goDesk.State { return current })
	var called bool
	h := Guard(src)(protected(&called))

	codes := make([]int, 0, 3)
	for _, st := range []goDesk.State{pendingState, anonState, agentState} {
		current = st
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rr.Code)
	}

	want := []int{http.StatusNoContent, http.StatusFound, http.StatusOK}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("request %d: expected %d, got %d", i, want[i], codes[i])
		}
	}
}

func TestStateFromContextMissing(t *testing.T) {
	if _, ok := StateFromContext(context.Background()); ok {
		t.Fatalf("expected no state in bare context")
	}
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		name  string
		state goDesk.State
		code  int
	}{
		{"admin allowed", adminState, http.StatusOK},
		{"agent forbidden", agentState, http.StatusForbidden},
		{"anonymous forbidden", anonState, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var called bool
			h := RequireAdmin(staticState(tc.state))(protected(&called))

			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/backup", nil))
			if rr.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rr.Code)
			}
			if called != (tc.code == http.StatusOK) {
				t.Fatalf("handler called=%v for code %d", called, tc.code)
			}
		})
	}
}

func TestRequireRoleInsideGuardUsesRenderedState(t *testing.T) {
	// The source flips after Guard decides; RequireRole must see the same snapshot.
	calls := 0
	src := StateSourceFunc(func() goDesk.State {
		calls++
		if calls == 1 {
			return adminState
		}
		return agentState
	})

	var called bool
	h := Guard(src)(RequireAdmin(src)(protected(&called)))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/backup", nil))
	if rr.Code != http.StatusOK || !called {
		t.Fatalf("expected admin view to render, got %d", rr.Code)
	}
	if calls != 1 {
		t.Fatalf("expected a single state read, got %d", calls)
	}
}

func TestRequireRoleCustomForbidden(t *testing.T) {
	var called bool
	deny := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusFound)
	})
	h := RequireRole(staticState(agentState), "supervisor", WithForbidden(deny))(protected(&called))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reports", nil))
	if rr.Code != http.StatusFound || called {
		t.Fatalf("expected custom forbidden handler, got %d", rr.Code)
	}
}
