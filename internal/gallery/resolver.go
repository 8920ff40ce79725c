package gallery

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/gallery-resolver/internal/metrics"
)

// VideoExtension is the only extension probed for video posts.
const VideoExtension = "webm"

var imageExtensions = []string{"png", "jpeg", "gif", "jpg", "webm"}

// CandidateExtensions returns the ordered extensions to probe for a post.
func CandidateExtensions(isVideo bool) []string {
	if isVideo {
		return []string{VideoExtension}
	}
	out := make([]string, len(imageExtensions))
	copy(out, imageExtensions)
	return out
}

// ResolveExtension probes baseURL.ext for each extension in order and returns
// the first URL answering 2xx. Probes stop at the first hit. ok is false when
// nothing resolved, which is a normal outcome.
func ResolveExtension(
	ctx context.Context,
	prober Prober,
	baseURL string,
	extensions []string,
	logger *zap.Logger,
) (string, bool) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, ext := range extensions {
		candidate := baseURL + "." + ext
		status, err := prober.Head(ctx, candidate)
		if err != nil {
			metrics.ObserveProbe(metrics.ProbeError)
			logger.Debug("probe failed", zap.String("url", candidate), zap.Error(err))
			if ctx.Err() != nil {
				return "", false
			}
			continue
		}
		if isSuccess(status) {
			metrics.ObserveProbe(metrics.ProbeHit)
			return candidate, true
		}
		metrics.ObserveProbe(metrics.ProbeMiss)
	}
	return "", false
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
