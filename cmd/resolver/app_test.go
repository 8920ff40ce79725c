package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/gallery-resolver/internal/config"
)

func baseConfig() config.Config {
	return config.Config{
		Server:    config.ServerConfig{Port: 8080},
		HTTP:      config.HTTPConfig{TimeoutSeconds: 5},
		Site:      config.SiteConfig{Scheme: "http", Host: "board.test", VideoHost: "video.board.test", PageSize: 42},
		Telemetry: config.TelemetryConfig{ServiceName: "gallery-resolver-test", SampleRatio: 1},
	}
}

func TestBuildApp_DefaultsWithoutOptionalServices(t *testing.T) {
	t.Parallel()

	a, err := buildApp(baseConfig(), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.pipeline)
	require.Nil(t, a.renderer)
	require.Nil(t, a.rendererOrNil(), "a disabled renderer must be a nil interface")
	require.Nil(t, a.limiter)
}

func TestBuildApp_RateLimiterWhenConfigured(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.RateLimit = config.RateLimitConfig{RPS: 5, Burst: 2}

	a, err := buildApp(cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.limiter)
	require.True(t, a.limiter.Allow("client"))
}

func TestHeadlessConfig_PassesSettleDelay(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.HTTP.UserAgent = "agent"
	cfg.Headless = config.HeadlessConfig{Enabled: true, MaxParallel: 2, NavTimeoutSec: 30, SettleDelayMS: 750}

	got := headlessConfig(cfg)
	require.Equal(t, 750*time.Millisecond, got.SettleDelay)
	require.Equal(t, 30*time.Second, got.NavigationTimeout)
	require.Equal(t, 2, got.MaxParallel)
	require.Equal(t, "agent", got.UserAgent)
}

func TestLimiterConfig_CarriesProxyAndBounds(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.RateLimit = config.RateLimitConfig{RPS: 1, Burst: 3, TrustForwarded: true, MaxClients: 20, IdleTTLSec: 90}

	got := limiterConfig(cfg)
	require.True(t, got.TrustForwarded)
	require.Equal(t, 20, got.MaxClients)
	require.Equal(t, 90*time.Second, got.IdleTTL)
	require.Equal(t, 3, got.Burst)
}
