package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/gallery-resolver/internal/config"
	collyfetcher "github.com/JakeFAU/gallery-resolver/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/gallery-resolver/internal/fetcher/headless"
	"github.com/JakeFAU/gallery-resolver/internal/gallery"
	"github.com/JakeFAU/gallery-resolver/internal/headless/detector"
	"github.com/JakeFAU/gallery-resolver/internal/policy/ratelimit"
	"github.com/JakeFAU/gallery-resolver/internal/telemetry"
)

// app owns the long-lived services shared by the commands.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	pipeline *gallery.Pipeline
	renderer *headlessfetcher.Renderer
	limiter  *ratelimit.Limiter

	tracerShutdown func(context.Context) error
}

func buildApp(cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	tp, err := telemetry.InitTracerProvider(context.Background(), cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("tracer init failed: %w", err)
	}
	a.tracerShutdown = tp.Shutdown

	opener := collyfetcher.New(collyfetcher.Config{
		UserAgent:    cfg.HTTP.UserAgent,
		Timeout:      cfg.HTTPTimeout(),
		MaxIdleConns: cfg.HTTP.MaxIdleConns,
	})

	opts := gallery.Options{ProbeConcurrency: cfg.Resolver.ProbeConcurrency}
	if cfg.Headless.Enabled {
		renderer, err := headlessfetcher.NewChromedp(headlessConfig(cfg))
		if err != nil {
			_ = tp.Shutdown(context.Background())
			return nil, fmt.Errorf("init headless renderer: %w", err)
		}
		a.renderer = renderer
		opts.Renderer = renderer
		opts.Detector = detector.NewHeuristic(cfg.Headless.ThresholdBodySize)
	}

	a.pipeline = gallery.NewPipeline(opener, cfg.Gallery(), opts, logger.Named("pipeline"))

	if cfg.RateLimit.RPS > 0 {
		a.limiter = ratelimit.New(limiterConfig(cfg))
	}
	return a, nil
}

func headlessConfig(cfg config.Config) headlessfetcher.Config {
	return headlessfetcher.Config{
		MaxParallel:       cfg.Headless.MaxParallel,
		UserAgent:         cfg.HTTP.UserAgent,
		NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		SettleDelay:       time.Duration(cfg.Headless.SettleDelayMS) * time.Millisecond,
	}
}

func limiterConfig(cfg config.Config) ratelimit.Config {
	return ratelimit.Config{
		RPS:            cfg.RateLimit.RPS,
		Burst:          cfg.RateLimit.Burst,
		TrustForwarded: cfg.RateLimit.TrustForwarded,
		MaxClients:     cfg.RateLimit.MaxClients,
		IdleTTL:        time.Duration(cfg.RateLimit.IdleTTLSec) * time.Second,
	}
}

// rendererOrNil keeps a nil *Renderer from turning into a non-nil interface.
func (a *app) rendererOrNil() gallery.Renderer {
	if a.renderer == nil {
		return nil
	}
	return a.renderer
}

// Close stops the browser, if any, flushes pending spans and the logger.
func (a *app) Close() {
	if a.renderer != nil {
		a.renderer.Close()
	}
	if a.tracerShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
	syncLogger(a.logger)
}
