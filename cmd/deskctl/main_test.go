package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrEthical07/goDesk/internal/fakedesk"
)

type cliTest struct {
	fake      *fakedesk.Server
	baseURL   string
	storePath string
}

func newCLITest(t *testing.T) *cliTest {
	t.Helper()
	fake := fakedesk.New()
	fake.AddUser("sari", "s3cret", "admin")
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)
	return &cliTest{
		fake:      fake,
		baseURL:   srv.URL,
		storePath: filepath.Join(t.TempDir(), "session.json"),
	}
}

func (c *cliTest) run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"-api", c.baseURL, "-store-path", c.storePath}, args...)
	code := run(context.Background(), full, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestCLISessionAcrossInvocations(t *testing.T) {
	c := newCLITest(t)

	code, out, errOut := c.run(t, "login", "-u", "sari", "-p", "s3cret")
	if code != exitOK {
		t.Fatalf("login exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "logged in as sari (admin)") {
		t.Fatalf("unexpected login output %q", out)
	}

	code, out, errOut = c.run(t, "whoami")
	if code != exitOK {
		t.Fatalf("whoami exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "user:  sari") || !strings.Contains(out, "(valid)") {
		t.Fatalf("unexpected whoami output %q", out)
	}

	code, out, errOut = c.run(t, "tickets", "-status", "open")
	if code != exitOK {
		t.Fatalf("tickets exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "Printer offline") || strings.Contains(out, "VPN drops") {
		t.Fatalf("unexpected tickets output %q", out)
	}
	if c.fake.Hits("GET /api/tickets") != 1 {
		t.Fatalf("expected one ticket request")
	}

	code, out, _ = c.run(t, "logout")
	if code != exitOK || !strings.Contains(out, "logged out") {
		t.Fatalf("logout exit %d output %q", code, out)
	}

	code, _, errOut = c.run(t, "whoami")
	if code != exitFail || !strings.Contains(errOut, "not logged in") {
		t.Fatalf("expected whoami to fail after logout, exit %d stderr %q", code, errOut)
	}
}

func TestCLIWrongPasswordShowsServerDetail(t *testing.T) {
	c := newCLITest(t)

	code, _, errOut := c.run(t, "login", "-u", "sari", "-p", "nope")
	if code != exitFail {
		t.Fatalf("expected failure exit, got %d", code)
	}
	if !strings.Contains(errOut, "Incorrect username or password") {
		t.Fatalf("expected server detail, got %q", errOut)
	}
}

func TestCLIDomainCommandNeedsSession(t *testing.T) {
	c := newCLITest(t)

	code, _, errOut := c.run(t, "categories")
	if code != exitFail || !strings.Contains(errOut, "not logged in") {
		t.Fatalf("exit %d stderr %q", code, errOut)
	}
	if c.fake.Hits("GET /api/categories") != 0 {
		t.Fatalf("no request should reach the server without a session")
	}
}

func TestCLIRevokedTokenDropsStoredSession(t *testing.T) {
	c := newCLITest(t)

	if code, _, errOut := c.run(t, "login", "-u", "sari", "-p", "s3cret"); code != exitOK {
		t.Fatalf("login exit %d: %s", code, errOut)
	}
	c.fake.RevokeAll()

	code, _, errOut := c.run(t, "stats")
	if code != exitFail {
		t.Fatalf("expected stats to fail, exit %d", code)
	}
	if !strings.Contains(errOut, "session rejected") || !strings.Contains(errOut, "Could not validate credentials") {
		t.Fatalf("unexpected stderr %q", errOut)
	}

	code, _, errOut = c.run(t, "whoami")
	if code != exitFail || !strings.Contains(errOut, "not logged in") {
		t.Fatalf("revoked session should be gone, exit %d stderr %q", code, errOut)
	}
}

func TestCLIRegisterLogsIn(t *testing.T) {
	c := newCLITest(t)

	code, out, errOut := c.run(t, "register", "-u", "dewi", "-p", "pw", "-email", "dewi@example.com")
	if code != exitOK {
		t.Fatalf("register exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "registered and logged in as dewi (user)") {
		t.Fatalf("unexpected register output %q", out)
	}

	code, out, _ = c.run(t, "whoami")
	if code != exitOK || !strings.Contains(out, "email: dewi@example.com") {
		t.Fatalf("whoami exit %d output %q", code, out)
	}
}

func TestCLIUsageErrors(t *testing.T) {
	c := newCLITest(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"frobnicate"}},
		{"login without user", []string{"login", "-p", "x"}},
		{"bad global flag", []string{"-nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GODESK_PASSWORD", "")
			if code, _, _ := c.run(t, tt.args...); code != exitUsage {
				t.Fatalf("expected usage exit, got %d", code)
			}
		})
	}
}

func TestCLIMetricsCommand(t *testing.T) {
	c := newCLITest(t)

	code, out, _ := c.run(t, "metrics")
	if code != exitOK {
		t.Fatalf("metrics exit %d", code)
	}
	if !strings.Contains(out, "hydrate_empty") {
		t.Fatalf("expected hydrate counter, got %q", out)
	}
}
