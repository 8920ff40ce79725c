// Package detector decides when a listing response is a challenge page that
// should be rendered in a browser instead.
package detector

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/JakeFAU/gallery-resolver/internal/gallery"
)

// Heuristic implements a handful of rule-based checks.
type Heuristic struct {
	BodyLengthThreshold int
}

// NewHeuristic creates a new detector.
func NewHeuristic(threshold int) *Heuristic {
	if threshold == 0 {
		threshold = 2048
	}
	return &Heuristic{BodyLengthThreshold: threshold}
}

// listingMarker appears once per post container on a real listing page.
var listingMarker = []byte(`class="col thumb"`)

var challengeMarkers = [][]byte{
	[]byte("cf-browser-verification"),
	[]byte("cf_chl_opt"),
	[]byte("<title>just a moment"),
	[]byte("ddos-guard"),
}

// IsChallenge reports whether resp looks like an interstitial rather than
// the listing itself.
func (h *Heuristic) IsChallenge(resp gallery.Response) bool {
	lower := bytes.ToLower(resp.Body)
	blocked := isBlockedStatus(resp.StatusCode)
	// Cloudflare injects its beacon scripts into ordinary pages, so a marker
	// only counts on a blocked status or a page without post containers.
	if blocked || !bytes.Contains(lower, listingMarker) {
		for _, marker := range challengeMarkers {
			if bytes.Contains(lower, marker) {
				return true
			}
		}
	}
	switch {
	case blocked:
		return len(resp.Body) > 0 && scriptDensityHigh(resp.Body)
	case resp.StatusCode == http.StatusOK:
		return len(resp.Body) < h.BodyLengthThreshold && scriptDensityHigh(resp.Body)
	default:
		return false
	}
}

func isBlockedStatus(status int) bool {
	switch status {
	case http.StatusForbidden, http.StatusServiceUnavailable, http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

func scriptDensityHigh(body []byte) bool {
	lower := strings.ToLower(string(body))
	total := len(lower)
	if total == 0 {
		return false
	}

	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	scriptCoverage := 0
	searchPos := 0

	for {
		relativeStart := strings.Index(lower[searchPos:], openTag)
		if relativeStart == -1 {
			break
		}
		start := searchPos + relativeStart

		tagClose := strings.IndexByte(lower[start:], '>')
		if tagClose == -1 {
			// Treat the rest of the document as part of the malformed script.
			scriptCoverage += total - start
			break
		}
		contentStart := start + tagClose + 1

		relativeEnd := strings.Index(lower[contentStart:], closeTag)
		var nextSearch int
		if relativeEnd == -1 {
			nextSearch = total
		} else {
			nextSearch = contentStart + relativeEnd + len(closeTag)
		}

		scriptCoverage += nextSearch - start
		searchPos = nextSearch
	}

	if scriptCoverage == 0 {
		return false
	}
	return scriptCoverage*100/total >= 25
}
