// Package api hosts the HTTP server, middleware, and handlers of the resolver.
// Routes:
//   - GET /search?tags=...&page=... resolves one listing page.
//   - POST /v1 renders a URL in the headless browser (when enabled).
//   - GET / banner, GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
package api
