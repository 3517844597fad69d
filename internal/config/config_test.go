package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/eugenenazirov/site-settings/internal/settings"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"PORT", "SITES_ROOT", "SITES", "LOG_LEVEL", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST"} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != defaultPort {
		t.Fatalf("expected default port %s, got %s", defaultPort, cfg.Port)
	}
	if cfg.SitesRoot != defaultSitesRoot {
		t.Fatalf("expected default sites root, got %s", cfg.SitesRoot)
	}
	if len(cfg.Sites) != 0 {
		t.Fatalf("expected site discovery by default, got %v", cfg.Sites)
	}
	if cfg.ShutdownGracePeriod != 10*time.Second {
		t.Fatalf("unexpected shutdown grace period: %s", cfg.ShutdownGracePeriod)
	}
}

func TestLoadEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("SITES", "ecuador, turkey , ,ecuador")
	t.Setenv("SITES_ROOT", "/srv/web")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "9000" {
		t.Fatalf("expected overridden port, got %s", cfg.Port)
	}
	if want := []string{"ecuador", "turkey"}; !slices.Equal(cfg.Sites, want) {
		t.Fatalf("expected sites %v, got %v", want, cfg.Sites)
	}
	if cfg.SitesRoot != "/srv/web" {
		t.Fatalf("unexpected sites root %s", cfg.SitesRoot)
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
port: "7000"
sites_root: /from/yaml
sites: [bangladesh]
env:
  IS_DDEV_PROJECT: "true"
  DB_HOST: yaml-db
read_header_timeout: 2s
enable_request_logging: false
rate_limit:
  rps: 0
  burst: 0
`)
	t.Setenv("PORT", "7100")

	port := "7200"
	cfg, err := Load(&CLIOverrides{
		ConfigFile: path,
		Port:       &port,
		Env:        map[string]string{"DB_HOST": "cli-db"},
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "7200" {
		t.Fatalf("expected CLI port to win, got %s", cfg.Port)
	}
	if cfg.SitesRoot != "/from/yaml" {
		t.Fatalf("expected YAML sites root, got %s", cfg.SitesRoot)
	}
	if !slices.Equal(cfg.Sites, []string{"bangladesh"}) {
		t.Fatalf("unexpected sites %v", cfg.Sites)
	}
	if cfg.EnvOverrides["IS_DDEV_PROJECT"] != "true" || cfg.EnvOverrides["DB_HOST"] != "cli-db" {
		t.Fatalf("unexpected env overrides %v", cfg.EnvOverrides)
	}
	if cfg.ReadHeaderTimeout != 2*time.Second {
		t.Fatalf("unexpected read header timeout %s", cfg.ReadHeaderTimeout)
	}
	if cfg.EnableRequestLogging {
		t.Fatalf("expected request logging to be disabled")
	}
	if cfg.RateLimitRPS != 0 || cfg.RateLimitBurst != 0 {
		t.Fatalf("expected rate limiting disabled, got %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	if _, err := Load(&CLIOverrides{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")}); err == nil {
		t.Fatalf("expected error for missing config file")
	}

	bad := writeConfig(t, "idle_timeout: soon\n")
	if _, err := Load(&CLIOverrides{ConfigFile: bad}); err == nil {
		t.Fatalf("expected error for invalid duration")
	}

	for _, raw := range []string{"ecuador,../etc", "..", `a\b`} {
		sites := raw
		_, err := Load(&CLIOverrides{SitesStr: &sites})
		if !errors.Is(err, settings.ErrInvalidSite) {
			t.Fatalf("expected ErrInvalidSite for %q, got %v", raw, err)
		}
	}
}

func TestParseSites(t *testing.T) {
	if got := parseSites(" , "); len(got) != 0 {
		t.Fatalf("expected no sites, got %v", got)
	}
	if got, want := parseSites("a,b,a"), []string{"a", "b"}; !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
