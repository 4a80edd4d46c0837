// Package fakedesk is an in-memory helpdesk service speaking the same HTTP API
// as the real backend. It issues HS256 access tokens and rejects stale ones
// with 401, so session handling can be exercised end to end without a
// database. Used by tests and the http-views example.
package fakedesk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Account is a registered user.
type Account struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`

	password string
}

type claims struct {
	Generation int `json:"gen"`
	jwt.RegisteredClaims
}

// Server holds users, tickets and the signing key. Safe for concurrent use.
type Server struct {
	secret   []byte
	tokenTTL time.Duration

	mu         sync.Mutex
	generation int
	nextUserID int64
	users      map[string]*Account
	tickets    []map[string]any
	categories []map[string]any
	hits       map[string]int
}

// New returns a Server with a fixed signing key and a few seed categories and
// tickets.
func New() *Server {
	return &Server{
		secret:     []byte("fakedesk-signing-key"),
		tokenTTL:   time.Hour,
		nextUserID: 1,
		users:      make(map[string]*Account),
		categories: []map[string]any{
			{"id": 1, "name": "Hardware"},
			{"id": 2, "name": "Network"},
		},
		tickets: []map[string]any{
			{"id": 1, "title": "Printer offline", "status": "open", "category_id": 1},
			{"id": 2, "title": "VPN drops", "status": "in_progress", "category_id": 2},
		},
		hits: make(map[string]int),
	}
}

// AddUser registers an account directly.
func (s *Server) AddUser(username, password, role string) Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.addUserLocked(username, password, role, "", "")
}

func (s *Server) addUserLocked(username, password, role, email, fullName string) *Account {
	if role == "" {
		role = "user"
	}
	a := &Account{
		ID:       s.nextUserID,
		Username: username,
		Role:     role,
		Email:    email,
		FullName: fullName,
		password: password,
	}
	s.nextUserID++
	s.users[username] = a
	return a
}

// RevokeAll invalidates every token issued so far.
func (s *Server) RevokeAll() {
	s.mu.Lock()
	s.generation++
	s.mu.Unlock()
}

// Hits returns how many requests reached "METHOD /path".
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// Handler returns the HTTP API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", s.count(s.login))
	mux.HandleFunc("POST /api/auth/register", s.count(s.register))

	mux.HandleFunc("GET /api/tickets", s.count(s.authed(s.listTickets)))
	mux.HandleFunc("POST /api/tickets", s.count(s.authed(s.createTicket)))
	mux.HandleFunc("GET /api/tickets/{id}", s.count(s.authed(s.getTicket)))
	mux.HandleFunc("GET /api/categories", s.count(s.authed(s.listCategories)))
	mux.HandleFunc("GET /api/dashboard/stats", s.count(s.authed(s.stats)))
	mux.HandleFunc("GET /api/dashboard/sla-summary", s.count(s.authed(s.slaSummary)))
	mux.HandleFunc("GET /api/knowledge/search", s.count(s.authed(s.knowledge)))
	mux.HandleFunc("GET /api/maintenance/checklist-items", s.count(s.authed(s.checklist)))
	mux.HandleFunc("GET /api/backup/reports", s.count(s.authed(s.backupReports)))
	return mux
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	s.mu.Lock()
	acct, ok := s.users[body.Username]
	gen := s.generation
	s.mu.Unlock()

	if !ok || acct.password != body.Password {
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}

	token, err := s.issue(acct.Username, gen)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "token signing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"user":         acct,
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Email    string `json:"email"`
		FullName string `json:"full_name"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	if body.Username == "" || body.Password == "" {
		writeDetail(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[body.Username]; exists {
		writeDetail(w, http.StatusBadRequest, "Username already registered")
		return
	}
	acct := s.addUserLocked(body.Username, body.Password, body.Role, body.Email, body.FullName)
	writeJSON(w, http.StatusOK, acct)
}

func (s *Server) issue(username string, gen int) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Generation: gen,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    "fakedesk",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	})
	return tok.SignedString(s.secret)
}

var errStaleToken = errors.New("stale token")

func (s *Server) verify(header string) (*Account, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return nil, errors.New("missing bearer token")
	}

	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Generation != s.generation {
		return nil, errStaleToken
	}
	acct, ok := s.users[c.Subject]
	if !ok {
		return nil, fmt.Errorf("unknown subject %q", c.Subject)
	}
	return acct, nil
}

func (s *Server) authed(next func(http.ResponseWriter, *http.Request, *Account)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acct, err := s.verify(r.Header.Get("Authorization"))
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next(w, r, acct)
	}
}

func (s *Server) count(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.Method+" "+r.URL.Path]++
		s.mu.Unlock()
		next(w, r)
	}
}

// ---------------------------------------------------------------------------
// Domain
// ---------------------------------------------------------------------------

func (s *Server) listTickets(w http.ResponseWriter, r *http.Request, _ *Account) {
	status := r.URL.Query().Get("status")

	s.mu.Lock()
	out := make([]map[string]any, 0, len(s.tickets))
	for _, t := range s.tickets {
		if status == "" || t["status"] == status {
			out = append(out, t)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getTicket(w http.ResponseWriter, r *http.Request, _ *Account) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid ticket id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tickets {
		if t["id"] == id {
			writeJSON(w, http.StatusOK, t)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Ticket not found")
}

func (s *Server) createTicket(w http.ResponseWriter, r *http.Request, acct *Account) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	s.mu.Lock()
	body["id"] = len(s.tickets) + 1
	body["status"] = "open"
	body["created_by"] = acct.Username
	s.tickets = append(s.tickets, body)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, body)
}

func (s *Server) listCategories(w http.ResponseWriter, _ *http.Request, _ *Account) {
	s.mu.Lock()
	out := append([]map[string]any(nil), s.categories...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) stats(w http.ResponseWriter, _ *http.Request, _ *Account) {
	s.mu.Lock()
	counts := map[string]int{}
	for _, t := range s.tickets {
		if st, ok := t["status"].(string); ok {
			counts[st]++
		}
	}
	total := len(s.tickets)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"total_tickets": total,
		"by_status":     counts,
	})
}

func (s *Server) slaSummary(w http.ResponseWriter, _ *http.Request, _ *Account) {
	writeJSON(w, http.StatusOK, map[string]any{
		"within_sla": 1,
		"breached":   0,
	})
}

func (s *Server) knowledge(w http.ResponseWriter, r *http.Request, _ *Account) {
	q := strings.ToLower(r.URL.Query().Get("query"))

	s.mu.Lock()
	out := make([]map[string]any, 0)
	for _, t := range s.tickets {
		if title, ok := t["title"].(string); ok && strings.Contains(strings.ToLower(title), q) {
			out = append(out, map[string]any{"ticket_id": t["id"], "title": title})
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) checklist(w http.ResponseWriter, r *http.Request, _ *Account) {
	items := []map[string]any{
		{"id": 1, "category": "Hardware", "item": "Clean printer heads"},
		{"id": 2, "category": "Network", "item": "Check switch uptime"},
	}
	category := r.URL.Query().Get("category")
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if category == "" || it["category"] == category {
			out = append(out, it)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) backupReports(w http.ResponseWriter, _ *http.Request, acct *Account) {
	if acct.Role != "admin" {
		writeDetail(w, http.StatusForbidden, "Admin only")
		return
	}
	writeJSON(w, http.StatusOK, []map[string]any{
		{"id": 1, "target": "db-primary", "status": "ok"},
	})
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
