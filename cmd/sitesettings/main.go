package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/site-settings/internal/application"
	"github.com/eugenenazirov/site-settings/internal/config"
	"github.com/eugenenazirov/site-settings/internal/logging"
	"github.com/eugenenazirov/site-settings/internal/settings"
)

var signalNotify = signal.Notify

type cli struct {
	app *kingpin.Application

	configFile *string
	root       *string
	env        *map[string]string
	logLevel   *string

	resolve        *kingpin.CmdClause
	resolveSite    *string
	resolveFormat  *string
	withProvenance *bool

	sites *kingpin.CmdClause

	serve          *kingpin.CmdClause
	port           *string
	sitesStr       *string
	rateLimitRPS   *float64
	rateLimitBurst *int
}

func newCLI() *cli {
	c := &cli{}
	c.app = kingpin.New("sitesettings", "Site Settings Resolver - layered per-site configuration for a multi-site deployment")
	c.configFile = c.app.Flag("config", "Path to YAML configuration file").String()
	c.root = c.app.Flag("root", "Deployment root containing the sites/ directory").String()
	c.env = c.app.Flag("env", "Environment variable override for resolution (KEY=VALUE, repeatable)").StringMap()
	c.logLevel = c.app.Flag("log-level", "Log level (debug, info, warn, error)").String()

	c.resolve = c.app.Command("resolve", "Resolve one site and print its settings")
	c.resolveSite = c.resolve.Arg("site", "Site directory name under sites/").Required().String()
	c.resolveFormat = c.resolve.Flag("format", "Output format").Default("yaml").Enum("yaml", "json")
	c.withProvenance = c.resolve.Flag("provenance", "Also print which fragment wrote each key").Bool()

	c.sites = c.app.Command("sites", "List the sites found under the deployment root")

	c.serve = c.app.Command("serve", "Resolve all sites and serve them over a read-only HTTP API")
	c.port = c.serve.Flag("port", "HTTP port exposed by the service").String()
	c.sitesStr = c.serve.Flag("sites", "Comma-separated sites to resolve (default: discover)").String()
	c.rateLimitRPS = c.serve.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	c.rateLimitBurst = c.serve.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()
	return c
}

func (c *cli) overrides() *config.CLIOverrides {
	overrides := &config.CLIOverrides{
		ConfigFile: *c.configFile,
		Env:        *c.env,
	}
	if *c.root != "" {
		overrides.SitesRoot = c.root
	}
	if *c.logLevel != "" {
		overrides.LogLevel = c.logLevel
	}
	if *c.port != "" {
		overrides.Port = c.port
	}
	if *c.sitesStr != "" {
		overrides.SitesStr = c.sitesStr
	}
	if *c.rateLimitRPS >= 0 {
		overrides.RateLimitRPS = c.rateLimitRPS
	}
	if *c.rateLimitBurst >= 0 {
		overrides.RateLimitBurst = c.rateLimitBurst
	}
	return overrides
}

func main() {
	c := newCLI()
	command := kingpin.MustParse(c.app.Parse(os.Args[1:]))

	cfg, err := config.Load(c.overrides())
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	switch command {
	case c.resolve.FullCommand():
		if err := runResolve(os.Stdout, cfg, logger, *c.resolveSite, *c.resolveFormat, *c.withProvenance); err != nil {
			logger.Fatal("failed to resolve site", zap.String("site", *c.resolveSite), zap.Error(err))
		}
	case c.sites.FullCommand():
		if err := runSites(os.Stdout, cfg); err != nil {
			logger.Fatal("failed to list sites", zap.Error(err))
		}
	case c.serve.FullCommand():
		app, err := application.New(cfg, logger)
		if err != nil {
			logger.Fatal("failed to initialize application", zap.Error(err))
		}
		if err := app.Start(); err != nil {
			logger.Fatal("failed to start server", zap.Error(err))
		}
		shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
	}
}

type resolveOutput struct {
	Site       string              `json:"site" yaml:"site"`
	ShortName  string              `json:"shortName" yaml:"short_name"`
	Settings   map[string]any      `json:"settings" yaml:"settings"`
	Provenance map[string][]string `json:"provenance,omitempty" yaml:"provenance,omitempty"`
}

func runResolve(w io.Writer, cfg config.Config, logger *zap.Logger, site, format string, withProvenance bool) error {
	resolver := application.NewResolver(settings.NewFileSource(cfg.SitesRoot), logger)
	resolved, err := resolver.Resolve(site, application.Environment(cfg))
	if err != nil {
		return err
	}

	out := resolveOutput{
		Site:      resolved.Site(),
		ShortName: resolved.ShortName(),
		Settings:  resolved.Map(),
	}
	if withProvenance {
		out.Provenance = resolved.Provenance()
	}

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}

func runSites(w io.Writer, cfg config.Config) error {
	source := settings.NewFileSource(cfg.SitesRoot)
	sites, err := application.Sites(cfg, source, settings.DefaultLayout())
	if err != nil {
		return err
	}
	for _, site := range sites {
		if _, err := fmt.Fprintln(w, site); err != nil {
			return err
		}
	}
	return nil
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
