package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/MrEthical07/goDesk/session"
)

func newTestClient(t *testing.T, h http.Handler, store session.Store, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, New(store, opts...), 0)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	tr := New(session.NewMemoryStore())
	if _, err := NewClient("not a url", tr, 0); err == nil {
		t.Fatal("expected error for relative base url")
	}
	if _, err := NewClient("http://localhost:8000", nil, 0); err == nil {
		t.Fatal("expected error for nil transport")
	}
	c, err := NewClient("", tr, 0)
	if err != nil {
		t.Fatalf("default base url: %v", err)
	}
	if c.BaseURL() != DefaultBaseURL {
		t.Fatalf("expected default base url, got %q", c.BaseURL())
	}
}

func TestClientJSONRoundTrip(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/tickets", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]any
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		in["id"] = 7
		_ = json.NewEncoder(w).Encode(in)
	})
	c := newTestClient(t, mux, session.NewMemoryStore())

	var out map[string]any
	if err := c.Post(context.Background(), "/api/tickets", map[string]any{"title": "printer"}, &out); err != nil {
		t.Fatalf("post: %v", err)
	}
	if out["title"] != "printer" || out["id"] != float64(7) {
		t.Fatalf("unexpected response %v", out)
	}
}

func TestClientQueryDropsEmptyValues(t *testing.T) {
	var rawQuery string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[]`))
	}), session.NewMemoryStore())

	var out []any
	q := url.Values{"query": {"vpn"}, "category": {""}}
	if err := c.Get(context.Background(), "/api/knowledge/search", q, &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if rawQuery != "query=vpn" {
		t.Fatalf("unexpected query %q", rawQuery)
	}
}

func TestClientNonSuccessBecomesAPIError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"Username already registered"}`))
	}), session.NewMemoryStore())

	err := c.Post(context.Background(), "/api/auth/register", map[string]string{"username": "u"}, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", apiErr.StatusCode)
	}
	if d, ok := Detail(err); !ok || d != "Username already registered" {
		t.Fatalf("unexpected detail %q ok=%v", d, ok)
	}
	if IsUnauthorized(err) {
		t.Fatal("400 is not unauthorized")
	}
}

func TestClientStructuredDetailFallsBack(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":[{"loc":["body","username"],"msg":"field required"}]}`))
	}), session.NewMemoryStore())

	err := c.Post(context.Background(), "/api/auth/login", map[string]string{}, nil)
	if got := MessageOr(err, "Login gagal"); got != "Login gagal" {
		t.Fatalf("expected fallback message, got %q", got)
	}
}

func TestClientUnauthorizedStillRejectsAfterWipe(t *testing.T) {
	store := seededStore(t)
	nav := &recordingNavigator{}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Could not validate credentials"}`))
	}), store, WithNavigator(nav))

	err := c.Get(context.Background(), "/api/tickets", nil, nil)
	if !IsUnauthorized(err) {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatal("expected store wiped")
	}
	if len(nav.Targets()) != 1 {
		t.Fatalf("expected one navigation, got %v", nav.Targets())
	}
}

func TestClientRawHTTPClientIsAuthenticated(t *testing.T) {
	var auth string
	c := newTestClient(t, http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
	}), seededStore(t))

	resp, err := c.HTTPClient().Get(c.BaseURL() + "/api/categories")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if auth != "Bearer tok-123" {
		t.Fatalf("expected bearer on background call, got %q", auth)
	}
}

func TestPostMultipartSendsFileField(t *testing.T) {
	var (
		contentType string
		filename    string
		content     string
	)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		filename, content = hdr.Filename, string(b)
		_, _ = w.Write([]byte(`{"url":"/uploads/a.png"}`))
	}), session.NewMemoryStore())

	var out struct {
		URL string `json:"url"`
	}
	if err := c.PostMultipart(context.Background(), "/api/upload/image", "file", "a.png", strings.NewReader("PNG"), &out); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(contentType, "multipart/form-data; boundary=") {
		t.Fatalf("expected multipart content type, got %q", contentType)
	}
	if filename != "a.png" || content != "PNG" || out.URL != "/uploads/a.png" {
		t.Fatalf("unexpected upload: %q %q %+v", filename, content, out)
	}
}

func TestDownloadStreamsBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("id,title\n1,printer\n"))
	}), session.NewMemoryStore())

	body, hdr, err := c.Download(context.Background(), http.MethodPost, "/api/export/tickets", map[string]string{"format": "csv"})
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer body.Close()
	b, _ := io.ReadAll(body)
	if string(b) != "id,title\n1,printer\n" || hdr.Get("Content-Type") != "text/csv" {
		t.Fatalf("unexpected download %q %q", b, hdr.Get("Content-Type"))
	}
}

func TestDecodeEmptyBodyLeavesOutUntouched(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), session.NewMemoryStore())

	out := map[string]any{"kept": true}
	if err := c.Delete(context.Background(), "/api/tickets/1", &out); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if out["kept"] != true {
		t.Fatalf("unexpected mutation %v", out)
	}
}
