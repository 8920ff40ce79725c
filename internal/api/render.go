package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const cmdRequestGet = "request.get"

// renderRequest is the body of POST /v1.
type renderRequest struct {
	Cmd string `json:"cmd"`
	URL string `json:"url"`
	// MaxTimeout is in milliseconds.
	MaxTimeout int `json:"maxTimeout"`
}

type renderSolution struct {
	URL      string `json:"url"`
	Status   int    `json:"status"`
	Response string `json:"response"`
}

type renderReply struct {
	Status   string          `json:"status"`
	Message  string          `json:"message,omitempty"`
	Solution *renderSolution `json:"solution,omitempty"`
}

// render fetches a URL through the headless browser and returns the page
// source. Only GET navigation is supported.
func (s *Server) render(w http.ResponseWriter, r *http.Request) {
	if s.renderer == nil {
		writeJSON(w, http.StatusServiceUnavailable, renderReply{Status: "error", Message: "headless rendering is disabled"})
		return
	}

	var req renderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !validRenderRequest(req) {
		writeJSON(w, http.StatusBadRequest, renderReply{Status: "error", Message: "Invalid command or missing URL"})
		return
	}

	ctx := r.Context()
	if req.MaxTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.MaxTimeout)*time.Millisecond)
		defer cancel()
	}

	resp, err := s.renderer.Render(ctx, req.URL)
	if err != nil {
		s.logger.Warn("render failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("url", req.URL),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, renderReply{Status: "error", Message: err.Error()})
		return
	}

	finalURL := resp.URL
	if finalURL == "" {
		finalURL = req.URL
	}
	writeJSON(w, http.StatusOK, renderReply{
		Status: "ok",
		Solution: &renderSolution{
			URL:      finalURL,
			Status:   resp.StatusCode,
			Response: string(resp.Body),
		},
	})
}

func validRenderRequest(req renderRequest) bool {
	if req.Cmd != cmdRequestGet || req.URL == "" {
		return false
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Hostname() == "" {
		return false
	}
	return publicHost(u.Hostname())
}

// publicHost rejects loopback, private and link-local targets so the browser
// cannot be pointed at the host or its network. Names are not resolved.
func publicHost(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return false
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return true
	}
	addr = addr.Unmap()
	return !(addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsUnspecified() || addr.IsMulticast())
}
