package gallery

// ListingRequest identifies one listing page for a tag query.
type ListingRequest struct {
	Tags string
	Page int
}

// ExtractedPost is a post parsed from a listing page whose media URL has not
// been resolved yet.
type ExtractedPost struct {
	ID           string
	Title        string
	MediaBaseURL string
	IsVideo      bool
}

// ResolvedPost is an ExtractedPost plus the outcome of extension probing.
// FileURL is nil when no candidate extension resolved.
type ResolvedPost struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	FileURL *string `json:"file_url"`
	IsVideo bool    `json:"is_video"`
}

// SearchResult is the resolved listing page, in source order.
type SearchResult struct {
	Tags    string         `json:"tags"`
	Page    int            `json:"page"`
	Results []ResolvedPost `json:"results"`
}

// Response is the raw outcome of a GET.
type Response struct {
	URL        string
	StatusCode int
	Body       []byte
}
