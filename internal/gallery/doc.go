// Package gallery turns one listing page of a tag-driven image board into an
// ordered list of posts with verified media URLs.
//
// The pipeline is linear at the page level and fans out at the post level:
//   - Site.ListingURL builds the paginated address (pid = (page-1) * page size).
//   - Pipeline fetches the listing through a per-invocation Session, falling
//     back to a Renderer when a ChallengeDetector flags the response.
//   - Extractor walks div.col.thumb containers and derives a media base URL
//     per post, dropping malformed containers.
//   - ResolveExtension probes candidate extensions with HEAD requests, in
//     order, stopping at the first 2xx. Posts resolve concurrently and are
//     merged back by index, so output order always equals container order.
package gallery
