package gallery

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	containerSelector = "div.col.thumb"
	postIDPrefix      = "s"
	thumbnailToken    = "thumbnail_"
)

var (
	thumbnailHashPattern   = regexp.MustCompile(`thumbnail_([a-fA-F0-9]+)\.jpg`)
	thumbnailFolderPattern = regexp.MustCompile(`/thumbnails/([^/]+)/([^/]+)/`)
)

// Extractor parses listing HTML into ExtractedPosts.
type Extractor struct {
	site   Site
	logger *zap.Logger
}

// NewExtractor builds an Extractor for site.
func NewExtractor(site Site, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{site: site, logger: logger}
}

// Extract returns the posts of a listing page in container order. A page
// without containers yields a NoResultsError; individual malformed
// containers are skipped.
func (e *Extractor) Extract(html string, req ListingRequest) ([]ExtractedPost, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}
	containers := doc.Find(containerSelector)
	if containers.Length() == 0 {
		return nil, &NoResultsError{Tags: req.Tags, Page: req.Page}
	}

	posts := make([]ExtractedPost, 0, containers.Length())
	containers.Each(func(i int, s *goquery.Selection) {
		post, reason := e.extractOne(s)
		if reason != "" {
			e.logger.Debug("container skipped", zap.Int("index", i), zap.String("reason", reason))
			return
		}
		posts = append(posts, post)
	})
	return posts, nil
}

// extractOne returns a non-empty reason when the container must be dropped.
func (e *Extractor) extractOne(s *goquery.Selection) (ExtractedPost, string) {
	id := s.AttrOr("id", "")
	id = strings.TrimPrefix(id, postIDPrefix)

	anchor := s.Find("a").First()
	if anchor.Length() == 0 {
		return ExtractedPost{}, "missing anchor"
	}
	img := anchor.Find("img").First()
	if img.Length() == 0 {
		return ExtractedPost{}, "missing image"
	}

	src := img.AttrOr("src", "")
	style := img.AttrOr("style", "")
	title := img.AttrOr("title", "")

	if !strings.Contains(src, thumbnailToken) {
		return ExtractedPost{}, "not a thumbnail"
	}
	hash, ok := thumbnailHash(src)
	if !ok {
		return ExtractedPost{}, "missing hash"
	}
	folder1, folder2, ok := thumbnailFolders(src)
	if !ok {
		return ExtractedPost{}, "missing folders"
	}

	isVideo := style != ""
	return ExtractedPost{
		ID:           id,
		Title:        title,
		MediaBaseURL: e.site.MediaBaseURL(folder1, folder2, hash, isVideo),
		IsVideo:      isVideo,
	}, ""
}

func thumbnailHash(src string) (string, bool) {
	m := thumbnailHashPattern.FindStringSubmatch(src)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

func thumbnailFolders(src string) (string, string, bool) {
	m := thumbnailFolderPattern.FindStringSubmatch(src)
	if len(m) < 3 {
		return "", "", false
	}
	return m[1], m[2], true
}
