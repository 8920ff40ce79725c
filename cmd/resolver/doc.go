// Command resolver turns a tag query on a booru-style board into a page of
// posts with verified media URLs.
//
// Architecture overview:
//   - Pipeline: gallery.Pipeline builds the listing address, fetches it once over
//     a pooled colly session, extracts post containers with goquery and probes
//     each post's candidate extensions with HEAD requests. Posts resolve
//     concurrently and are merged back in page order.
//   - Challenge fallback: with headless.enabled, a listing response the
//     heuristic detector flags as an interstitial is rendered once in headless
//     Chrome via chromedp. Media probes always use the plain session.
//   - HTTP API: internal/api.Server exposes GET /search, POST /v1 (raw browser
//     render), health, and Prometheus metrics behind request id, logging,
//     recovery, timeout, optional API key and optional per-client rate limit.
//   - Configuration & plumbing: Viper reads an optional YAML file plus
//     RESOLVER_* environment overrides; zap provides structured logging.
//
// Commands:
//   - resolver serve [--config file] runs the HTTP service until SIGINT/SIGTERM.
//   - resolver search --tags t [--page n] resolves one page and prints JSON.
//
// Quick checklist:
//   - RESOLVER_SERVER_PORT, RESOLVER_HTTP_TIMEOUT_SECONDS,
//     RESOLVER_RESOLVER_PROBE_CONCURRENCY, RESOLVER_HEADLESS_ENABLED,
//     RESOLVER_AUTH_ENABLED / RESOLVER_AUTH_API_KEY, RESOLVER_RATELIMIT_RPS.
//   - Run locally: go run ./cmd/resolver serve --config config.yaml
package main
