package application

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/site-settings/internal/api"
	"github.com/eugenenazirov/site-settings/internal/config"
	"github.com/eugenenazirov/site-settings/internal/settings"
	"github.com/eugenenazirov/site-settings/internal/storage"
)

// ErrNoSites is returned when neither configuration nor discovery yields a site.
var ErrNoSites = errors.New("no sites to resolve")

// App encapsulates the application dependencies and HTTP server.
type App struct {
	storage  storage.Storage
	resolver *settings.Resolver
	handler  *api.Handler
	router   http.Handler
	logger   *zap.Logger
	server   *http.Server
}

// New resolves every configured site once and wires the inspection server.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	source := settings.NewFileSource(cfg.SitesRoot)
	resolver := NewResolver(source, logger)

	sites, err := Sites(cfg, source, resolver.Layout())
	if err != nil {
		return nil, err
	}

	store, err := ResolveAll(resolver, sites, Environment(cfg), logger)
	if err != nil {
		return nil, err
	}

	handler := api.NewHandler(store, api.WithHandlerLogger(logger.Named("api")))
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		storage:  store,
		resolver: resolver,
		handler:  handler,
		router:   apiRouter,
		logger:   logger,
		server:   NewServer(cfg, BuildRootHandler(apiRouter)),
	}, nil
}

// NewResolver builds a resolver over source using the default layout.
func NewResolver(source settings.Source, logger *zap.Logger) *settings.Resolver {
	return settings.NewResolver(source, settings.WithLogger(logger.Named("settings")))
}

// Environment is the process environment snapshot with the configured
// overrides layered on top. The process environment itself is never modified.
func Environment(cfg config.Config) settings.Environment {
	return settings.WithOverrides(settings.OSEnvironment(), cfg.EnvOverrides)
}

// Sites returns the configured site list, or discovers it from the entry
// files under the deployment root when none is configured.
func Sites(cfg config.Config, source *settings.FileSource, layout settings.Layout) ([]string, error) {
	if len(cfg.Sites) > 0 {
		return cfg.Sites, nil
	}
	sites, err := source.DiscoverSites(layout)
	if err != nil {
		return nil, fmt.Errorf("discover sites: %w", err)
	}
	if len(sites) == 0 {
		return nil, fmt.Errorf("%w under %s", ErrNoSites, cfg.SitesRoot)
	}
	return sites, nil
}

// ResolveAll resolves each site exactly once and stores the frozen results.
func ResolveAll(resolver *settings.Resolver, sites []string, env settings.Environment, logger *zap.Logger) (*storage.MemoryStorage, error) {
	if len(sites) == 0 {
		return nil, ErrNoSites
	}

	store := storage.NewMemoryStorage()
	for _, site := range sites {
		resolved, err := resolver.Resolve(site, env)
		if err != nil {
			return nil, fmt.Errorf("resolve site %s: %w", site, err)
		}
		if err := store.Put(resolved); err != nil {
			return nil, fmt.Errorf("store site %s: %w", site, err)
		}
		logger.Info("site resolved",
			zap.String("site", site),
			zap.String("config_sync_directory", resolved.ConfigSyncDirectory()),
		)
	}
	return store, nil
}

// BuildRootHandler routes API requests and sends the bare root to the site listing.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/api/sites", http.StatusFound)
	}))
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening",
			zap.String("addr", a.server.Addr),
			zap.Strings("sites", a.storage.Sites()),
		)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}
