package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
  request_timeout_seconds: 20
auth:
  enabled: true
  api_key: secret
site:
  scheme: http
  host: mirror.local
  video_host: video.mirror.local
  page_size: 20
http:
  timeout_seconds: 45
  user_agent: real-agent
  max_idle_conns: 8
resolver:
  probe_concurrency: 6
headless:
  enabled: true
  max_parallel: 2
  nav_timeout_seconds: 30
  settle_delay_ms: 500
ratelimit:
  rps: 2.5
  burst: 4
  trust_forwarded: true
  max_clients: 50
logging:
  development: false
  level: warn
telemetry:
  project_id: my-project
  sample_ratio: 0.25
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.Auth.Enabled || cfg.Auth.APIKey != "secret" {
		t.Fatalf("expected auth enabled with secret key")
	}
	site := cfg.Gallery()
	if site.Scheme != "http" || site.Host != "mirror.local" || site.VideoHost != "video.mirror.local" || site.PageSize != 20 {
		t.Fatalf("unexpected site: %+v", site)
	}
	if cfg.Resolver.ProbeConcurrency != 6 || cfg.HTTP.UserAgent != "real-agent" || cfg.HTTP.MaxIdleConns != 8 {
		t.Fatalf("expected resolver/http overrides to apply: %+v", cfg)
	}
	if !cfg.Headless.Enabled || cfg.Headless.MaxParallel != 2 || cfg.Headless.SettleDelayMS != 500 {
		t.Fatalf("expected headless overrides: %+v", cfg.Headless)
	}
	if cfg.RateLimit.RPS != 2.5 || cfg.RateLimit.Burst != 4 || !cfg.RateLimit.TrustForwarded || cfg.RateLimit.MaxClients != 50 {
		t.Fatalf("expected ratelimit overrides: %+v", cfg.RateLimit)
	}
	if cfg.Logging.Development || cfg.Logging.Level != "warn" {
		t.Fatalf("expected production logging at warn: %+v", cfg.Logging)
	}
	if cfg.Telemetry.ProjectID != "my-project" || cfg.Telemetry.SampleRatio != 0.25 {
		t.Fatalf("expected telemetry overrides: %+v", cfg.Telemetry)
	}
	if cfg.Telemetry.ServiceName != "gallery-resolver" {
		t.Fatalf("expected default service name, got %q", cfg.Telemetry.ServiceName)
	}
	if got := cfg.HTTPTimeout(); got != 45*time.Second {
		t.Fatalf("expected http timeout 45s, got %v", got)
	}
	if got := cfg.RequestTimeout(); got != 20*time.Second {
		t.Fatalf("expected request timeout 20s, got %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	site := cfg.Gallery()
	if site.Host != "realbooru.com" || site.VideoHost != "video-cdn.realbooru.com" || site.PageSize != 42 {
		t.Fatalf("unexpected default site: %+v", site)
	}
	if cfg.Server.Port != 8080 || cfg.HTTP.TimeoutSeconds != 15 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Resolver.ProbeConcurrency != 0 || cfg.Headless.Enabled {
		t.Fatalf("expected unbounded probing and no headless by default: %+v", cfg)
	}
	if cfg.Headless.SettleDelayMS != 2000 {
		t.Fatalf("expected 2s settle delay by default, got %dms", cfg.Headless.SettleDelayMS)
	}
	if cfg.RateLimit.TrustForwarded || cfg.RateLimit.MaxClients != 10000 || cfg.RateLimit.IdleTTLSec != 600 {
		t.Fatalf("unexpected ratelimit defaults: %+v", cfg.RateLimit)
	}
	if cfg.Telemetry.ProjectID != "" || cfg.Telemetry.SampleRatio != 1 {
		t.Fatalf("expected local-only tracing by default: %+v", cfg.Telemetry)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("RESOLVER_SERVER_PORT", "7070")
	t.Setenv("RESOLVER_SITE_HOST", "env.local")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Fatalf("expected env port, got %d", cfg.Server.Port)
	}
	if cfg.Site.Host != "env.local" {
		t.Fatalf("expected env host, got %q", cfg.Site.Host)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server: ServerConfig{Port: 8080},
		HTTP:   HTTPConfig{TimeoutSeconds: 10},
		Site:   SiteConfig{Host: "a", VideoHost: "b", PageSize: 42},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should be valid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"invalid timeout", func(c *Config) { c.HTTP.TimeoutSeconds = 0 }, "http.timeout_seconds"},
		{"missing host", func(c *Config) { c.Site.Host = "" }, "site.host"},
		{"missing video host", func(c *Config) { c.Site.VideoHost = "" }, "site.video_host"},
		{"invalid page size", func(c *Config) { c.Site.PageSize = 0 }, "site.page_size"},
		{"negative probe concurrency", func(c *Config) { c.Resolver.ProbeConcurrency = -1 }, "resolver.probe_concurrency"},
		{"headless missing max parallel", func(c *Config) {
			c.Headless.Enabled = true
			c.Headless.MaxParallel = 0
		}, "headless.max_parallel"},
		{"auth missing api key", func(c *Config) { c.Auth.Enabled = true }, "auth.api_key"},
		{"negative rps", func(c *Config) { c.RateLimit.RPS = -1 }, "ratelimit.rps"},
		{"negative max clients", func(c *Config) { c.RateLimit.MaxClients = -1 }, "ratelimit.max_clients"},
		{"negative settle delay", func(c *Config) { c.Headless.SettleDelayMS = -1 }, "headless.settle_delay_ms"},
		{"sample ratio above one", func(c *Config) { c.Telemetry.SampleRatio = 1.5 }, "telemetry.sample_ratio"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
