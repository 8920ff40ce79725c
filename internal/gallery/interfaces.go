package gallery

import "context"

// Prober issues status-only existence checks.
type Prober interface {
	Head(ctx context.Context, url string) (int, error)
}

// Client is the HTTP capability the pipeline needs: a GET with body and a
// status-only probe.
type Client interface {
	Prober
	Get(ctx context.Context, url string) (Response, error)
}

// Session is a Client whose pooled connections are released by Close.
type Session interface {
	Client
	Close() error
}

// SessionOpener hands out one Session per pipeline invocation.
type SessionOpener interface {
	Open(ctx context.Context) (Session, error)
}

// Renderer fetches a page through a browser. Used only for listing pages
// the plain client could not get past.
type Renderer interface {
	Render(ctx context.Context, url string) (Response, error)
}

// ChallengeDetector decides whether a plain GET hit an interstitial that a
// Renderer should retry.
type ChallengeDetector interface {
	IsChallenge(resp Response) bool
}

// Searcher runs the full listing pipeline.
type Searcher interface {
	Search(ctx context.Context, req ListingRequest) (SearchResult, error)
}
