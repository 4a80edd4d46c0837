package goDesk

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goDesk/session"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, "/api/auth/login", cfg.API.LoginPath)
	assert.Equal(t, "/api/auth/register", cfg.API.RegisterPath)
	assert.Equal(t, "/login", cfg.Routes.Login)
	assert.Equal(t, "/", cfg.Routes.Home)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	assert.Equal(t, "Login gagal", cfg.Messages.LoginFailed)
	assert.Equal(t, "Registrasi gagal", cfg.Messages.RegisterFailed)
	assert.True(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Audit.Enabled)
	assert.Zero(t, cfg.Transport.Timeout)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative base url", func(c *Config) { c.API.BaseURL = "/api" }},
		{"ftp base url", func(c *Config) { c.API.BaseURL = "ftp://files.local" }},
		{"login path without slash", func(c *Config) { c.API.LoginPath = "api/auth/login" }},
		{"register path empty", func(c *Config) { c.API.RegisterPath = "" }},
		{"login route empty", func(c *Config) { c.Routes.Login = "" }},
		{"home route relative", func(c *Config) { c.Routes.Home = "home" }},
		{"unknown backend", func(c *Config) { c.Store.Backend = "sqlite" }},
		{"file backend without path", func(c *Config) { c.Store.Backend = StoreFile }},
		{"redis backend without addr", func(c *Config) { c.Store.Backend = StoreRedis }},
		{"negative redis db", func(c *Config) {
			c.Store.Backend = StoreRedis
			c.Store.RedisAddr = "127.0.0.1:6379"
			c.Store.RedisDB = -1
		}},
		{"negative timeout", func(c *Config) { c.Transport.Timeout = -time.Second }},
		{"empty login message", func(c *Config) { c.Messages.LoginFailed = "" }},
		{"empty register message", func(c *Config) { c.Messages.RegisterFailed = "" }},
		{"audit without buffer", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParseConfigOverlaysDefaults(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	t.Setenv("DESK_HOST", "desk.internal")
	t.Setenv("SESSION_DIR", "")

	cfg, err := ParseConfig([]byte(`
api:
  base_url: https://${DESK_HOST}:8443/
routes:
  login: /masuk
store:
  backend: file
  file_path: ${SESSION_DIR:-/tmp/godesk}/session.json
transport:
  timeout: 15s
messages:
  login_failed: Login failed
audit:
  enabled: true
`))
	require.NoError(t, err)

	assert.Equal(t, "https://desk.internal:8443", cfg.API.BaseURL)
	assert.Equal(t, "/api/auth/login", cfg.API.LoginPath, "unset keys keep defaults")
	assert.Equal(t, "/masuk", cfg.Routes.Login)
	assert.Equal(t, "/", cfg.Routes.Home)
	assert.Equal(t, StoreFile, cfg.Store.Backend)
	assert.Equal(t, "/tmp/godesk/session.json", cfg.Store.FilePath)
	assert.Equal(t, 15*time.Second, cfg.Transport.Timeout)
	assert.Equal(t, "Login failed", cfg.Messages.LoginFailed)
	assert.Equal(t, "Registrasi gagal", cfg.Messages.RegisterFailed)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, 1024, cfg.Audit.BufferSize)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestParseConfigEmptyKeysFallBack(t *testing.T) {
	t.Setenv(EnvAPIURL, "")

	cfg, err := ParseConfig([]byte(`
api:
  base_url: ""
messages:
  login_failed: ""
`))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, "Login gagal", cfg.Messages.LoginFailed)
}

func TestParseConfigEnvOverride(t *testing.T) {
	t.Setenv(EnvAPIURL, "https://api.example.com")

	cfg, err := ParseConfig([]byte("api:\n  base_url: http://ignored:8000\n"))
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)

	cfg, err = ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)
}

func TestParseConfigErrors(t *testing.T) {
	t.Setenv(EnvAPIURL, "")

	_, err := ParseConfig([]byte("api: [not, a, map]"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")

	_, err = ParseConfig([]byte("store:\n  backend: etcd\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	path := filepath.Join(t.TempDir(), "godesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  base_url: http://10.0.0.5:8000\n"), 0o600))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:8000", cfg.API.BaseURL)

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		s, closeFn, err := OpenStore(ctx, StoreConfig{Backend: StoreMemory})
		require.NoError(t, err)
		defer func() { _ = closeFn() }()
		assert.IsType(t, &session.MemoryStore{}, s)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "s.json")
		s, closeFn, err := OpenStore(ctx, StoreConfig{Backend: StoreFile, FilePath: path})
		require.NoError(t, err)
		defer func() { _ = closeFn() }()
		fs, ok := s.(*session.FileStore)
		require.True(t, ok)
		assert.Equal(t, path, fs.Path())
	})

	t.Run("file without path", func(t *testing.T) {
		_, _, err := OpenStore(ctx, StoreConfig{Backend: StoreFile})
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		s, closeFn, err := OpenStore(ctx, StoreConfig{Backend: StoreRedis, RedisAddr: mr.Addr(), RedisPrefix: "desk"})
		require.NoError(t, err)
		defer func() { _ = closeFn() }()

		require.NoError(t, s.Set(ctx, session.KeyToken, "tok"))
		got, err := mr.Get("desk:token")
		require.NoError(t, err)
		assert.Equal(t, "tok", got)
	})

	t.Run("redis unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		_, _, err := OpenStore(ctx, StoreConfig{Backend: StoreRedis, RedisAddr: addr})
		assert.ErrorIs(t, err, session.ErrStoreUnavailable)
	})

	t.Run("unknown", func(t *testing.T) {
		_, _, err := OpenStore(ctx, StoreConfig{Backend: "etcd"})
		assert.ErrorIs(t, err, ErrUnknownStoreBackend)
	})
}
