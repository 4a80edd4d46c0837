package goDesk

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goDesk/api"
	"github.com/MrEthical07/goDesk/transport"
)

// Store backends accepted by [StoreConfig.Backend].
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

const (
	defaultLoginFailed    = "Login gagal"
	defaultRegisterFailed = "Registrasi gagal"
	defaultUserAgent      = "goDesk"
	defaultRedisPrefix    = "godesk"
	defaultAuditBuffer    = 1024
)

// Config is the complete Manager configuration. Use [DefaultConfig] as the
// starting point; the zero value does not validate.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Routes    RoutesConfig    `yaml:"routes"`
	Store     StoreConfig     `yaml:"store"`
	Transport TransportConfig `yaml:"transport"`
	Messages  MessagesConfig  `yaml:"messages"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Audit     AuditConfig     `yaml:"audit"`
}

// APIConfig locates the helpdesk service.
type APIConfig struct {
	BaseURL      string `yaml:"base_url"`
	LoginPath    string `yaml:"login_path"`
	RegisterPath string `yaml:"register_path"`
}

// RoutesConfig names the view routes the session layer navigates to.
type RoutesConfig struct {
	Login string `yaml:"login"`
	Home  string `yaml:"home"`
}

// StoreConfig selects the persistent session back end for [OpenStore].
type StoreConfig struct {
	Backend     string `yaml:"backend"`
	FilePath    string `yaml:"file_path"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisDB     int    `yaml:"redis_db"`
	RedisPrefix string `yaml:"redis_prefix"`
}

// TransportConfig tunes the outbound HTTP client. A zero Timeout means no limit.
type TransportConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// MessagesConfig holds the generic failure messages used when the server
// supplies no detail.
type MessagesConfig struct {
	LoginFailed    string `yaml:"login_failed"`
	RegisterFailed string `yaml:"register_failed"`
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// DefaultConfig returns a configuration that talks to a local service and keeps
// the session in memory.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:      transport.DefaultBaseURL,
			LoginPath:    api.DefaultLoginPath,
			RegisterPath: api.DefaultRegisterPath,
		},
		Routes: RoutesConfig{
			Login: transport.DefaultLoginRoute,
			Home:  "/",
		},
		Store: StoreConfig{
			Backend:     StoreMemory,
			RedisPrefix: defaultRedisPrefix,
		},
		Transport: TransportConfig{
			UserAgent: defaultUserAgent,
		},
		Messages: MessagesConfig{
			LoginFailed:    defaultLoginFailed,
			RegisterFailed: defaultRegisterFailed,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Audit: AuditConfig{
			BufferSize: defaultAuditBuffer,
			DropIfFull: true,
		},
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem, wrapped in [ErrInvalidConfig].
func (c *Config) Validate() error {
	// API
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return invalid("API BaseURL must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid("API BaseURL scheme must be http or https")
	}
	if !strings.HasPrefix(c.API.LoginPath, "/") {
		return invalid("API LoginPath must start with /")
	}
	if !strings.HasPrefix(c.API.RegisterPath, "/") {
		return invalid("API RegisterPath must start with /")
	}

	// Routes
	if !strings.HasPrefix(c.Routes.Login, "/") {
		return invalid("Routes Login must start with /")
	}
	if !strings.HasPrefix(c.Routes.Home, "/") {
		return invalid("Routes Home must start with /")
	}

	// Store
	switch c.Store.Backend {
	case StoreMemory:
	case StoreFile:
		if c.Store.FilePath == "" {
			return invalid("Store FilePath required for file backend")
		}
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return invalid("Store RedisAddr required for redis backend")
		}
		if c.Store.RedisDB < 0 {
			return invalid("Store RedisDB must be >= 0")
		}
	default:
		return invalid(fmt.Sprintf("Store Backend %q is not one of memory, file, redis", c.Store.Backend))
	}

	// Transport
	if c.Transport.Timeout < 0 {
		return invalid("Transport Timeout must be >= 0")
	}

	// Messages
	if c.Messages.LoginFailed == "" {
		return invalid("Messages LoginFailed must not be empty")
	}
	if c.Messages.RegisterFailed == "" {
		return invalid("Messages RegisterFailed must not be empty")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return invalid("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}
