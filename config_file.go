package goDesk

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/goDesk/session"
)

// EnvAPIURL overrides [APIConfig.BaseURL] when set and non-empty.
const EnvAPIURL = "GODESK_API_URL"

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// LoadConfigFile reads a YAML configuration on top of [DefaultConfig].
// ${VAR} and ${VAR:-fallback} references are expanded from the environment
// before parsing. The result is validated.
func LoadConfigFile(path string) (Config, error) {
	// #nosec G304 -- path is chosen by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig is LoadConfigFile without the file read.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config: %w", err)
		}
	}
	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func expandEnvVars(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(match string) string {
		parts := envRef.FindStringSubmatch(match)
		if v, ok := os.LookupEnv(parts[1]); ok && v != "" {
			return v
		}
		return parts[2]
	})
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		cfg.API.BaseURL = v
	}
}

// applyDefaults restores defaults for keys present in the file but left empty.
func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = def.API.BaseURL
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	if cfg.API.LoginPath == "" {
		cfg.API.LoginPath = def.API.LoginPath
	}
	if cfg.API.RegisterPath == "" {
		cfg.API.RegisterPath = def.API.RegisterPath
	}
	if cfg.Routes.Login == "" {
		cfg.Routes.Login = def.Routes.Login
	}
	if cfg.Routes.Home == "" {
		cfg.Routes.Home = def.Routes.Home
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = def.Store.Backend
	}
	if cfg.Store.RedisPrefix == "" {
		cfg.Store.RedisPrefix = def.Store.RedisPrefix
	}
	if cfg.Messages.LoginFailed == "" {
		cfg.Messages.LoginFailed = def.Messages.LoginFailed
	}
	if cfg.Messages.RegisterFailed == "" {
		cfg.Messages.RegisterFailed = def.Messages.RegisterFailed
	}
	if cfg.Audit.BufferSize == 0 {
		cfg.Audit.BufferSize = def.Audit.BufferSize
	}
}

// OpenStore builds the session back end described by cfg. For the redis back
// end the connection is checked with PING and the returned close function
// releases the client; for the others it is a no-op.
func OpenStore(ctx context.Context, cfg StoreConfig) (session.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "", StoreMemory:
		return session.NewMemoryStore(), noop, nil
	case StoreFile:
		if cfg.FilePath == "" {
			return nil, nil, fmt.Errorf("%w: file backend requires a path", ErrInvalidConfig)
		}
		return session.NewFileStore(cfg.FilePath), noop, nil
	case StoreRedis:
		if cfg.RedisAddr == "" {
			return nil, nil, fmt.Errorf("%w: redis backend requires an address", ErrInvalidConfig)
		}
		client := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
		}
		return session.NewRedisStore(client, cfg.RedisPrefix), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownStoreBackend, cfg.Backend)
	}
}
