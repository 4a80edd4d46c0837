// Command deskctl drives a helpdesk service from the terminal through the goDesk
// session layer. The session survives between invocations in a file store
// (default) or in Redis.
//
// Usage:
//
//	deskctl [global flags] <command> [command flags]
//
// Commands:
//
//	login       -u USER [-p PASS]           exchange credentials for a session
//	register    -u USER [-p PASS] [-email] [-name] [-role]
//	logout                                  drop the stored session
//	whoami                                  show the current user and token claims
//	tickets     [-id N] [-status S]         list tickets or show one
//	categories                              list ticket categories
//	stats       [-sla]                      dashboard statistics
//	knowledge   -q QUERY [-category C]      search the knowledge base
//	metrics                                 print session counters for this run
//
// The password may also come from GODESK_PASSWORD.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goDesk "github.com/MrEthical07/goDesk"
	"github.com/MrEthical07/goDesk/middleware"
	"github.com/MrEthical07/goDesk/session"
	"github.com/MrEthical07/goDesk/transport"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type globalFlags struct {
	configPath string
	apiURL     string
	backend    string
	storePath  string
	redisAddr  string
	prefix     string
	verbose    bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("deskctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var g globalFlags
	fs.StringVar(&g.configPath, "config", "", "YAML config file")
	fs.StringVar(&g.apiURL, "api", "", "service base URL (overrides config and "+goDesk.EnvAPIURL+")")
	fs.StringVar(&g.backend, "store", "", "session store: file, redis, memory (default file)")
	fs.StringVar(&g.storePath, "store-path", "", "file store path (default user config dir)")
	fs.StringVar(&g.redisAddr, "redis-addr", "", "redis address; if empty with -store=redis, miniredis is used")
	fs.StringVar(&g.prefix, "prefix", "", "redis key prefix")
	fs.BoolVar(&g.verbose, "v", false, "verbose logging to stderr")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: deskctl [flags] <login|register|logout|whoami|tickets|categories|stats|knowledge|metrics> [args]")
		return exitUsage
	}

	cfg, err := loadConfig(g)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return exitFail
	}

	level := slog.LevelWarn
	if g.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	store, cleanup, err := openStore(ctx, cfg.Store, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "store: %v\n", err)
		return exitFail
	}
	defer cleanup()

	expired := transport.NavigatorFunc(func(context.Context, string) {
		fmt.Fprintln(stderr, "session rejected by server; run `deskctl login` again")
	})

	mgr, err := goDesk.New().
		WithConfig(cfg).
		WithStore(store).
		WithNavigator(expired).
		WithLogger(logger).
		Build()
	if err != nil {
		fmt.Fprintf(stderr, "build: %v\n", err)
		return exitFail
	}
	defer mgr.Close()

	mgr.Hydrate(ctx)

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "login":
		return cmdLogin(ctx, mgr, rest, stdout, stderr)
	case "register":
		return cmdRegister(ctx, mgr, rest, stdout, stderr)
	case "logout":
		mgr.Logout(ctx)
		fmt.Fprintln(stdout, "logged out")
		return exitOK
	case "whoami":
		return cmdWhoami(ctx, mgr, stdout, stderr)
	case "tickets", "categories", "stats", "knowledge":
		if code, ok := requireSession(mgr, stderr); !ok {
			return code
		}
		return cmdDomain(ctx, mgr, cmd, rest, stdout, stderr)
	case "metrics":
		printMetrics(stdout, mgr.MetricsSnapshot())
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		return exitUsage
	}
}

func loadConfig(g globalFlags) (goDesk.Config, error) {
	cfg := goDesk.DefaultConfig()
	if g.configPath != "" {
		loaded, err := goDesk.LoadConfigFile(g.configPath)
		if err != nil {
			return goDesk.Config{}, err
		}
		cfg = loaded
	} else if v := os.Getenv(goDesk.EnvAPIURL); v != "" {
		cfg.API.BaseURL = v
	}
	if g.apiURL != "" {
		cfg.API.BaseURL = g.apiURL
	}

	// Without a config file the CLI persists to disk, unlike the library default.
	if g.configPath == "" && g.backend == "" {
		g.backend = goDesk.StoreFile
	}
	if g.backend != "" {
		cfg.Store.Backend = g.backend
	}
	if g.storePath != "" {
		cfg.Store.FilePath = g.storePath
	}
	if cfg.Store.Backend == goDesk.StoreFile && cfg.Store.FilePath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return goDesk.Config{}, fmt.Errorf("locating config dir: %w", err)
		}
		cfg.Store.FilePath = filepath.Join(dir, "godesk", "session.json")
	}
	if g.redisAddr != "" {
		cfg.Store.RedisAddr = g.redisAddr
	}
	if g.prefix != "" {
		cfg.Store.RedisPrefix = g.prefix
	}
	return cfg, nil
}

// openStore falls back to an in-process miniredis when redis is selected
// without an address. That session ends with the process.
func openStore(ctx context.Context, cfg goDesk.StoreConfig, stderr io.Writer) (session.Store, func(), error) {
	if cfg.Backend == goDesk.StoreRedis && cfg.RedisAddr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("starting miniredis: %w", err)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{mr.Addr()},
		})
		fmt.Fprintf(stderr, "using miniredis at %s (session is not kept after exit)\n", mr.Addr())
		return session.NewRedisStore(client, cfg.RedisPrefix), func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	store, closeFn, err := goDesk.OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = closeFn() }, nil
}

func requireSession(mgr *goDesk.Manager, stderr io.Writer) (int, bool) {
	switch middleware.Decide(mgr.State()) {
	case middleware.DecisionRender:
		return exitOK, true
	case middleware.DecisionRedirect:
		fmt.Fprintln(stderr, "not logged in; run `deskctl login`")
	default:
		fmt.Fprintln(stderr, "session still loading")
	}
	return exitFail, false
}

func passwordFlag(fs *flag.FlagSet) *string {
	return fs.String("p", os.Getenv("GODESK_PASSWORD"), "password (default $GODESK_PASSWORD)")
}

func cmdLogin(ctx context.Context, mgr *goDesk.Manager, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(stderr)
	user := fs.String("u", "", "username")
	pass := passwordFlag(fs)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *user == "" || *pass == "" {
		fmt.Fprintln(stderr, "login: -u and -p are required")
		return exitUsage
	}

	res := mgr.Login(ctx, goDesk.Credentials{Username: *user, Password: *pass})
	if !res.Success {
		fmt.Fprintf(stderr, "login: %s\n", res.Error)
		return exitFail
	}
	fmt.Fprintf(stdout, "logged in as %s (%s)\n", res.User.Username, res.User.Role)
	return exitOK
}

func cmdRegister(ctx context.Context, mgr *goDesk.Manager, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(stderr)
	user := fs.String("u", "", "username")
	pass := passwordFlag(fs)
	email := fs.String("email", "", "email address")
	name := fs.String("name", "", "full name")
	role := fs.String("role", "", "requested role")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *user == "" || *pass == "" {
		fmt.Fprintln(stderr, "register: -u and -p are required")
		return exitUsage
	}

	res := mgr.Register(ctx, goDesk.Registration{
		Username: *user,
		Password: *pass,
		Email:    *email,
		FullName: *name,
		Role:     *role,
	})
	if !res.Success {
		fmt.Fprintf(stderr, "register: %s\n", res.Error)
		return exitFail
	}
	fmt.Fprintf(stdout, "registered and logged in as %s (%s)\n", res.User.Username, res.User.Role)
	return exitOK
}

func cmdWhoami(ctx context.Context, mgr *goDesk.Manager, stdout, stderr io.Writer) int {
	if code, ok := requireSession(mgr, stderr); !ok {
		return code
	}
	st := mgr.State()
	fmt.Fprintf(stdout, "user:  %s\nid:    %s\nrole:  %s\n", st.User.Username, st.User.ID, st.User.Role)
	if st.User.Email != "" {
		fmt.Fprintf(stdout, "email: %s\n", st.User.Email)
	}

	token, ok, err := mgr.Store().Get(ctx, session.KeyToken)
	if err != nil || !ok {
		return exitOK
	}
	info, err := session.InspectToken(token)
	if errors.Is(err, session.ErrTokenNotJWT) {
		fmt.Fprintln(stdout, "token: opaque")
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "whoami: %v\n", err)
		return exitOK
	}
	if !info.ExpiresAt.IsZero() {
		state := "valid"
		if info.Expired(time.Now()) {
			state = "expired"
		}
		fmt.Fprintf(stdout, "token: expires %s (%s)\n", info.ExpiresAt.Format(time.RFC3339), state)
	}
	return exitOK
}

func cmdDomain(ctx context.Context, mgr *goDesk.Manager, cmd string, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	id := fs.Int64("id", 0, "ticket id")
	status := fs.String("status", "", "ticket status filter")
	sla := fs.Bool("sla", false, "show the SLA summary")
	query := fs.String("q", "", "knowledge query")
	category := fs.String("category", "", "category filter")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	a := mgr.API()
	var (
		out any
		err error
	)
	switch cmd {
	case "tickets":
		if *id > 0 {
			out, err = a.Tickets.Get(ctx, *id)
		} else {
			params := url.Values{}
			if *status != "" {
				params.Set("status", *status)
			}
			if *category != "" {
				params.Set("category", *category)
			}
			out, err = a.Tickets.List(ctx, params)
		}
	case "categories":
		out, err = a.Categories.List(ctx)
	case "stats":
		if *sla {
			out, err = a.Dashboard.SLASummary(ctx)
		} else {
			out, err = a.Dashboard.Stats(ctx)
		}
	case "knowledge":
		if *query == "" {
			fmt.Fprintln(stderr, "knowledge: -q is required")
			return exitUsage
		}
		out, err = a.Knowledge.Search(ctx, *query, *category)
	}
	if err != nil {
		fmt.Fprintf(stderr, "%s: %s\n", cmd, transport.MessageOr(err, err.Error()))
		return exitFail
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", cmd, err)
		return exitFail
	}
	return exitOK
}

func printMetrics(w io.Writer, snap goDesk.MetricsSnapshot) {
	for id := goDesk.MetricID(0); ; id++ {
		name := id.String()
		if name == "unknown" {
			break
		}
		if v, ok := snap.Counters[id]; ok {
			fmt.Fprintf(w, "%-20s %s\n", name, strconv.FormatUint(v, 10))
		}
	}
}
