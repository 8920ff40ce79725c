package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/gallery-resolver/internal/gallery"
)

func TestServer_Render_Disabled(t *testing.T) {
	t.Parallel()

	server := newTestServer(&fakeSearcher{}, nil, testConfig(), nil)
	rec := serve(server, postJSON(t, "/v1", map[string]any{"cmd": "request.get", "url": "https://example.com"}))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"status":"error","message":"headless rendering is disabled"}`, rec.Body.String())
}

func TestServer_Render_RejectsInvalidRequests(t *testing.T) {
	t.Parallel()

	cases := map[string]*http.Request{
		"bad json":      httptest.NewRequest(http.MethodPost, "/v1", bytes.NewBufferString("{nope")),
		"missing url":   postJSON(t, "/v1", map[string]any{"cmd": "request.get"}),
		"unknown cmd":   postJSON(t, "/v1", map[string]any{"cmd": "request.delete", "url": "https://example.com"}),
		"post command":  postJSON(t, "/v1", map[string]any{"cmd": "request.post", "url": "https://example.com"}),
		"non-http url":  postJSON(t, "/v1", map[string]any{"cmd": "request.get", "url": "file:///etc/passwd"}),
		"relative url":  postJSON(t, "/v1", map[string]any{"cmd": "request.get", "url": "/index.php"}),
		"loopback ip":   postJSON(t, "/v1", map[string]any{"cmd": "request.get", "url": "http://127.0.0.1:8080/metrics"}),
		"localhost":     postJSON(t, "/v1", map[string]any{"cmd": "request.get", "url": "http://localhost/"}),
		"link local":    postJSON(t, "/v1", map[string]any{"cmd": "request.get", "url": "http://169.254.169.254/latest/meta-data"}),
		"private ip":    postJSON(t, "/v1", map[string]any{"cmd": "request.get", "url": "https://10.1.2.3/"}),
		"ipv6 loopback": postJSON(t, "/v1", map[string]any{"cmd": "request.get", "url": "http://[::1]/"}),
	}
	for name, req := range cases {
		renderer := &fakeRenderer{}
		server := newTestServer(&fakeSearcher{}, renderer, testConfig(), nil)
		rec := serve(server, req)

		require.Equal(t, http.StatusBadRequest, rec.Code, name)
		require.JSONEq(t, `{"status":"error","message":"Invalid command or missing URL"}`, rec.Body.String(), name)
		require.Empty(t, renderer.urls, name)
	}
}

func TestServer_Render_ReturnsSolution(t *testing.T) {
	t.Parallel()

	renderer := &fakeRenderer{resp: gallery.Response{
		URL:        "https://example.com/landing",
		StatusCode: http.StatusOK,
		Body:       []byte("<html>ok</html>"),
	}}
	server := newTestServer(&fakeSearcher{}, renderer, testConfig(), nil)

	before := time.Now()
	rec := serve(server, postJSON(t, "/v1", map[string]any{
		"cmd":        "request.get",
		"url":        "https://example.com/",
		"maxTimeout": 2000,
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{
		"status": "ok",
		"solution": {"url": "https://example.com/landing", "status": 200, "response": "<html>ok</html>"}
	}`, rec.Body.String())
	require.Equal(t, []string{"https://example.com/"}, renderer.urls)
	require.WithinDuration(t, before.Add(2*time.Second), renderer.deadline, time.Second)
}

func TestServer_Render_FallsBackToRequestedURL(t *testing.T) {
	t.Parallel()

	renderer := &fakeRenderer{resp: gallery.Response{StatusCode: http.StatusForbidden}}
	server := newTestServer(&fakeSearcher{}, renderer, testConfig(), nil)

	rec := serve(server, postJSON(t, "/v1", map[string]any{"cmd": "request.get", "url": "https://example.com/x"}))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{
		"status": "ok",
		"solution": {"url": "https://example.com/x", "status": 403, "response": ""}
	}`, rec.Body.String())
}

func TestServer_Render_Failure(t *testing.T) {
	t.Parallel()

	renderer := &fakeRenderer{err: errBoom}
	server := newTestServer(&fakeSearcher{}, renderer, testConfig(), nil)

	rec := serve(server, postJSON(t, "/v1", map[string]any{"cmd": "request.get", "url": "https://example.com"}))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"status":"error","message":"boom"}`, rec.Body.String())
}

func TestPublicHost(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"realbooru.com":    true,
		"93.184.216.34":    true,
		"2606:4700::1":     true,
		"localhost":        false,
		"api.localhost":    false,
		"127.0.0.1":        false,
		"::ffff:127.0.0.1": false,
		"192.168.0.10":     false,
		"fd00::1":          false,
		"fe80::1":          false,
		"0.0.0.0":          false,
	}
	for host, want := range cases {
		require.Equal(t, want, publicHost(host), host)
	}
}
