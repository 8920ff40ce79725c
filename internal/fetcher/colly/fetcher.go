// Package collyfetcher implements gallery sessions using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/gallery-resolver/internal/gallery"
)

// Config controls collector behavior.
type Config struct {
	UserAgent    string
	Timeout      time.Duration
	MaxIdleConns int
}

// Opener hands out one pooled Session per pipeline invocation.
type Opener struct {
	cfg Config
}

// New builds an Opener.
func New(cfg Config) *Opener {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 100
	}
	return &Opener{cfg: cfg}
}

// Open creates a Session whose requests are bound to ctx. Canceling ctx
// aborts every in-flight request of the session.
func (o *Opener) Open(ctx context.Context) (gallery.Session, error) {
	transport := newHTTPTransport(o.cfg.MaxIdleConns)

	c := colly.NewCollector()
	c.WithTransport(&boundTransport{base: transport, ctx: ctx})
	c.SetRequestTimeout(o.cfg.Timeout)

	return &Session{
		cfg:       o.cfg,
		transport: transport,
		base:      c,
	}, nil
}

// Session issues GET and HEAD requests over a shared connection pool.
type Session struct {
	cfg       Config
	transport *http.Transport
	base      *colly.Collector
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// Get executes a single HTTP GET and returns status and body. Non-2xx
// statuses are returned, not treated as errors.
func (s *Session) Get(ctx context.Context, url string) (gallery.Response, error) {
	var (
		result   gallery.Response
		fetchErr error
	)
	collector := s.collector()
	configureHooks(collector, &result, &fetchErr)

	if err := runCollector(ctx, func() error { return collector.Visit(url) }, &fetchErr); err != nil {
		return gallery.Response{}, err
	}
	if result.URL == "" {
		result.URL = url
	}
	return result, nil
}

// Head executes a status-only HTTP HEAD.
func (s *Session) Head(ctx context.Context, url string) (int, error) {
	var (
		result   gallery.Response
		fetchErr error
	)
	collector := s.collector()
	configureHooks(collector, &result, &fetchErr)

	if err := runCollector(ctx, func() error { return collector.Head(url) }, &fetchErr); err != nil {
		return 0, err
	}
	return result.StatusCode, nil
}

// Close releases pooled connections.
func (s *Session) Close() error {
	s.transport.CloseIdleConnections()
	return nil
}

// collector clones the base collector. Clones share the base backend, so
// every request of the session reuses one http.Client and its pool.
func (s *Session) collector() *colly.Collector {
	c := s.base.Clone()
	if s.cfg.UserAgent != "" {
		c.UserAgent = s.cfg.UserAgent
	}
	c.AllowURLRevisit = true
	c.IgnoreRobotsTxt = true
	c.ParseHTTPErrorResponse = true
	return c
}

func configureHooks(hooks collectorHooks, result *gallery.Response, fetchErr *error) {
	hooks.OnResponse(func(r *colly.Response) {
		*result = gallery.Response{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func runCollector(ctx context.Context, visit func() error, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- visit()
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil && ctx.Err() != nil {
			return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
		}
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

type boundTransport struct {
	base http.RoundTripper
	ctx  context.Context
}

func (t *boundTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.ctx != nil {
		req = req.WithContext(t.ctx)
	}
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("bound transport roundtrip: %w", err)
	}
	return resp, nil
}

func newHTTPTransport(maxIdle int) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          maxIdle,
		MaxIdleConnsPerHost:   maxIdle,
		IdleConnTimeout:       90 * time.Second,
	}
}
