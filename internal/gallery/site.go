package gallery

import (
	"fmt"
	"strings"
)

// DefaultPageSize is the number of posts the board shows per listing page.
const DefaultPageSize = 42

// Site describes the board's fixed hosts and paging convention.
type Site struct {
	Scheme    string
	Host      string
	VideoHost string
	PageSize  int
}

// DefaultSite returns the production board settings.
func DefaultSite() Site {
	return Site{
		Scheme:    "https",
		Host:      "realbooru.com",
		VideoHost: "video-cdn.realbooru.com",
		PageSize:  DefaultPageSize,
	}
}

// Offset returns the pid query value for a 1-based page.
func (s Site) Offset(page int) int {
	return (page - 1) * s.pageSize()
}

// ListingURL builds the listing address for tags and page. Tags are embedded
// verbatim; callers own any escaping. Page validation happens upstream.
func (s Site) ListingURL(tags string, page int) string {
	return fmt.Sprintf("%s://%s/index.php?page=post&s=list&tags=%s&pid=%d",
		s.scheme(), s.Host, tags, s.Offset(page))
}

// MediaBaseURL builds the extension-less media address of a post.
func (s Site) MediaBaseURL(folder1, folder2, hash string, isVideo bool) string {
	host := s.Host
	if isVideo {
		host = s.VideoHost
	}
	return fmt.Sprintf("%s://%s/images/%s/%s/%s", s.scheme(), host, folder1, folder2, hash)
}

func (s Site) scheme() string {
	if s.Scheme == "" {
		return "https"
	}
	return strings.TrimSuffix(s.Scheme, "://")
}

func (s Site) pageSize() int {
	if s.PageSize <= 0 {
		return DefaultPageSize
	}
	return s.PageSize
}
