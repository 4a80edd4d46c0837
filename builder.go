package goDesk

import (
	"log/slog"
	"net/http"

	"github.com/MrEthical07/goDesk/api"
	internalaudit "github.com/MrEthical07/goDesk/internal/audit"
	"github.com/MrEthical07/goDesk/session"
	"github.com/MrEthical07/goDesk/transport"
)

// Builder assembles a [Manager]. A Builder is single use.
type Builder struct {
	config     Config
	store      session.Store
	navigator  transport.Navigator
	auditSink  AuditSink
	logger     *slog.Logger
	httpClient *http.Client

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore sets the persistent session store. Without it, Build derives one
// from Config.Store for the memory and file back ends.
func (b *Builder) WithStore(s session.Store) *Builder {
	b.store = s
	return b
}

// WithNavigator sets where the transport sends the user after a 401.
func (b *Builder) WithNavigator(n transport.Navigator) *Builder {
	b.navigator = n
	return b
}

// WithAuditSink sets the audit consumer. Auditing also needs Config.Audit.Enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. The default discards output.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithHTTPClient supplies the round tripper outbound requests go through. Only
// its Transport is used; timeouts come from Config.Transport.
func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the request latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires store, transport, client and
// Manager together. No I/O is performed; call [Manager.Hydrate] next.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- SESSION STORE --------
	store := b.store
	if store == nil {
		switch cfg.Store.Backend {
		case StoreMemory:
			store = session.NewMemoryStore()
		case StoreFile:
			store = session.NewFileStore(cfg.Store.FilePath)
		default:
			// redis needs a live connection; see OpenStore.
			return nil, ErrStoreRequired
		}
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// -------- TRANSPORT --------
	opts := []transport.Option{
		transport.WithNavigator(b.navigator),
		transport.WithLoginRoute(cfg.Routes.Login),
		transport.WithLogger(logger),
		transport.WithUserAgent(cfg.Transport.UserAgent),
	}
	if b.httpClient != nil {
		opts = append(opts, transport.WithBase(b.httpClient.Transport))
	}
	tr := transport.New(store, opts...)

	client, err := transport.NewClient(cfg.API.BaseURL, tr, cfg.Transport.Timeout)
	if err != nil {
		return nil, err
	}

	apis := api.New(client)
	apis.Auth = api.NewAuth(client, cfg.API.LoginPath, cfg.API.RegisterPath)

	m := &Manager{
		config:  cfg,
		store:   store,
		client:  client,
		api:     apis,
		logger:  logger,
		metrics: NewMetrics(cfg.Metrics),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		loading: true,
	}

	tr.Subscribe(m)
	tr.OnResponse(m.observeResponse)

	b.built = true
	return m, nil
}
