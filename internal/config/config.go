// Package config loads and validates resolver configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/gallery-resolver/internal/gallery"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Site      SiteConfig      `mapstructure:"site"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Resolver  ResolverConfig  `mapstructure:"resolver"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// SiteConfig names the board hosts and its page size.
type SiteConfig struct {
	Scheme    string `mapstructure:"scheme"`
	Host      string `mapstructure:"host"`
	VideoHost string `mapstructure:"video_host"`
	PageSize  int    `mapstructure:"page_size"`
}

// HTTPConfig configures the outbound HTTP client.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	MaxIdleConns   int    `mapstructure:"max_idle_conns"`
}

// ResolverConfig tunes extension probing.
type ResolverConfig struct {
	ProbeConcurrency int `mapstructure:"probe_concurrency"`
}

// HeadlessConfig configures the browser fallback for challenge pages.
type HeadlessConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	MaxParallel       int  `mapstructure:"max_parallel"`
	NavTimeoutSec     int  `mapstructure:"nav_timeout_seconds"`
	ThresholdBodySize int  `mapstructure:"threshold_body_bytes"`
	SettleDelayMS     int  `mapstructure:"settle_delay_ms"`
}

// RateLimitConfig configures per-client admission on the API.
type RateLimitConfig struct {
	RPS            float64 `mapstructure:"rps"`
	Burst          int     `mapstructure:"burst"`
	TrustForwarded bool    `mapstructure:"trust_forwarded"`
	MaxClients     int     `mapstructure:"max_clients"`
	IdleTTLSec     int     `mapstructure:"idle_ttl_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// TelemetryConfig configures OpenTelemetry tracing. Spans are exported to
// Google Cloud Trace only when ProjectID is set.
type TelemetryConfig struct {
	ServiceName    string  `mapstructure:"service_name"`
	ServiceVersion string  `mapstructure:"service_version"`
	ProjectID      string  `mapstructure:"project_id"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RESOLVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	site := gallery.DefaultSite()
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 60)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("site.scheme", site.Scheme)
	v.SetDefault("site.host", site.Host)
	v.SetDefault("site.video_host", site.VideoHost)
	v.SetDefault("site.page_size", site.PageSize)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.user_agent", "gallery-resolver/0.1")
	v.SetDefault("http.max_idle_conns", 100)
	v.SetDefault("resolver.probe_concurrency", 0)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.threshold_body_bytes", 2048)
	v.SetDefault("headless.settle_delay_ms", 2000)
	v.SetDefault("ratelimit.rps", 0.0)
	v.SetDefault("ratelimit.burst", 1)
	v.SetDefault("ratelimit.trust_forwarded", false)
	v.SetDefault("ratelimit.max_clients", 10000)
	v.SetDefault("ratelimit.idle_ttl_seconds", 600)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("telemetry.service_name", "gallery-resolver")
	v.SetDefault("telemetry.service_version", "dev")
	v.SetDefault("telemetry.project_id", "")
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Site.Host == "" || c.Site.VideoHost == "" {
		return fmt.Errorf("site.host and site.video_host must be set")
	}
	if c.Site.PageSize <= 0 {
		return fmt.Errorf("site.page_size must be > 0")
	}
	if c.Resolver.ProbeConcurrency < 0 {
		return fmt.Errorf("resolver.probe_concurrency must be >= 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Headless.SettleDelayMS < 0 {
		return fmt.Errorf("headless.settle_delay_ms must be >= 0")
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("ratelimit.rps must be >= 0")
	}
	if c.RateLimit.MaxClients < 0 || c.RateLimit.IdleTTLSec < 0 {
		return fmt.Errorf("ratelimit.max_clients and ratelimit.idle_ttl_seconds must be >= 0")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be within [0, 1]")
	}
	return nil
}

// Gallery converts the site section into the domain description.
func (c Config) Gallery() gallery.Site {
	return gallery.Site{
		Scheme:    c.Site.Scheme,
		Host:      c.Site.Host,
		VideoHost: c.Site.VideoHost,
		PageSize:  c.Site.PageSize,
	}
}

// HTTPTimeout converts the outbound timeout into a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// RequestTimeout bounds one API request, including every probe it issues.
func (c Config) RequestTimeout() time.Duration {
	if c.Server.RequestTimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}
