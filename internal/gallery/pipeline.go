package gallery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/gallery-resolver/internal/metrics"
)

const tracerName = "github.com/JakeFAU/gallery-resolver/internal/gallery"

// Options tunes a Pipeline.
type Options struct {
	// ProbeConcurrency caps concurrent post resolutions; <= 0 means unbounded.
	ProbeConcurrency int
	// Renderer and Detector enable the browser fallback for listing pages.
	// Both must be set for the fallback to run.
	Renderer Renderer
	Detector ChallengeDetector
	// Tracer defaults to the global provider's tracer.
	Tracer trace.Tracer
}

// Pipeline drives address building, fetching, extraction and resolution.
type Pipeline struct {
	opener    SessionOpener
	site      Site
	extractor *Extractor
	opts      Options
	logger    *zap.Logger
}

// NewPipeline constructs a Pipeline.
func NewPipeline(opener SessionOpener, site Site, opts Options, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}
	return &Pipeline{
		opener:    opener,
		site:      site,
		extractor: NewExtractor(site, logger.Named("extractor")),
		opts:      opts,
		logger:    logger,
	}
}

// Search resolves one listing page. FetchError and NoResultsError are
// returned unchanged; once extraction succeeds the call always completes
// unless ctx ends first.
func (p *Pipeline) Search(ctx context.Context, req ListingRequest) (SearchResult, error) {
	start := time.Now()
	ctx, span := p.opts.Tracer.Start(ctx, "gallery.Search", trace.WithAttributes(
		attribute.String("gallery.tags", req.Tags),
		attribute.Int("gallery.page", req.Page),
	))
	defer span.End()
	defer func() {
		metrics.ObservePipeline(time.Since(start))
	}()

	result, err := p.search(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return SearchResult{}, err
	}
	span.SetAttributes(attribute.Int("gallery.posts", len(result.Results)))
	return result, nil
}

func (p *Pipeline) search(ctx context.Context, req ListingRequest) (SearchResult, error) {
	session, err := p.opener.Open(ctx)
	if err != nil {
		return SearchResult{}, fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			p.logger.Warn("session close failed", zap.Error(cerr))
		}
	}()

	listingURL := p.site.ListingURL(req.Tags, req.Page)
	logger := p.logger.With(zap.String("tags", req.Tags), zap.Int("page", req.Page))
	logger.Debug("fetching listing", zap.String("url", listingURL))

	html, err := p.fetchListing(ctx, session, listingURL)
	if err != nil {
		return SearchResult{}, err
	}

	posts, err := p.extractor.Extract(html, req)
	if err != nil {
		if errors.Is(err, ErrNoResults) {
			metrics.ObserveListing(metrics.ListingEmpty)
		}
		return SearchResult{}, err
	}
	metrics.ObserveListing(metrics.ListingOK)
	logger.Debug("listing extracted", zap.Int("posts", len(posts)))

	resolved, err := p.resolveAll(ctx, session, posts)
	if err != nil {
		return SearchResult{}, err
	}
	return SearchResult{Tags: req.Tags, Page: req.Page, Results: resolved}, nil
}

// fetchListing performs the single listing GET, swapping in a browser render
// when the response looks like a challenge page.
func (p *Pipeline) fetchListing(ctx context.Context, client Client, listingURL string) (string, error) {
	ctx, span := p.opts.Tracer.Start(ctx, "gallery.FetchListing", trace.WithAttributes(
		attribute.String("url.full", listingURL),
	))
	defer span.End()

	resp, err := client.Get(ctx, listingURL)
	if err != nil {
		metrics.ObserveListing(metrics.ListingTransportError)
		span.RecordError(err)
		span.SetStatus(codes.Error, "listing transport failure")
		return "", fmt.Errorf("fetch listing %s: %w", listingURL, err)
	}

	if p.opts.Renderer != nil && p.opts.Detector != nil && p.opts.Detector.IsChallenge(resp) {
		p.logger.Info("challenge detected, rendering listing", zap.String("url", listingURL),
			zap.Int("status", resp.StatusCode))
		span.AddEvent("challenge detected")
		rendered, rerr := p.opts.Renderer.Render(ctx, listingURL)
		if rerr != nil {
			p.logger.Warn("listing render failed", zap.String("url", listingURL), zap.Error(rerr))
		} else {
			resp = rendered
			span.SetAttributes(attribute.Bool("gallery.rendered", true))
		}
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if !isSuccess(resp.StatusCode) {
		span.SetStatus(codes.Error, "non-2xx listing status")
		metrics.ObserveListing(metrics.ListingHTTPError)
		return "", &FetchError{Status: resp.StatusCode, URL: listingURL}
	}
	return string(resp.Body), nil
}

// resolveAll resolves every post concurrently. Each goroutine owns results[i],
// so the output keeps extraction order without locking.
func (p *Pipeline) resolveAll(ctx context.Context, prober Prober, posts []ExtractedPost) ([]ResolvedPost, error) {
	results := make([]ResolvedPost, len(posts))

	var g errgroup.Group
	if p.opts.ProbeConcurrency > 0 {
		g.SetLimit(p.opts.ProbeConcurrency)
	}
	for i, post := range posts {
		i, post := i, post
		g.Go(func() error {
			results[i] = p.resolveOne(ctx, prober, post)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve posts: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("resolve posts: %w", err)
	}
	return results, nil
}

func (p *Pipeline) resolveOne(ctx context.Context, prober Prober, post ExtractedPost) ResolvedPost {
	ctx, span := p.opts.Tracer.Start(ctx, "gallery.ResolvePost", trace.WithAttributes(
		attribute.String("gallery.post_id", post.ID),
		attribute.Bool("gallery.is_video", post.IsVideo),
	))
	defer span.End()

	out := ResolvedPost{ID: post.ID, Title: post.Title, IsVideo: post.IsVideo}
	fileURL, ok := ResolveExtension(ctx, prober, post.MediaBaseURL, CandidateExtensions(post.IsVideo), p.logger)
	if ok {
		out.FileURL = &fileURL
	}
	span.SetAttributes(attribute.Bool("gallery.resolved", ok))
	metrics.ObservePost(post.IsVideo, ok)
	return out
}
