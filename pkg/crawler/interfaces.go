package crawler

import (
	"context"
	"encoding/json"
	"time"
)

// Client is the protocol capability the crawler depends on. Implementations
// must be safe for concurrent use and should honour ctx cancellation.
type Client interface {
	// Expand returns the identifiers that follow id
	Expand(ctx context.Context, id string) ([]string, error)
	// FetchFeed returns the posts authored by id
	FetchFeed(ctx context.Context, id string) ([]Post, error)
}

// Post is one feed entry keyed by its URI. Payload is kept exactly as the
// server returned it.
type Post struct {
	URI     string
	Payload json.RawMessage
}

// HandleResolver resolves a handle to a DID
type HandleResolver interface {
	ResolveHandle(ctx context.Context, handle string) (string, error)
}

// Observer receives progress updates. Calls come from the goroutine running
// the phase, one at a time.
type Observer interface {
	FollowersProgress(discovered, queued int)
	PostsProgress(posts, remaining int)
	Done(summary Summary)
}

// Summary describes a finished run
type Summary struct {
	RunID            string
	Seed             string
	Users            int
	Posts            int
	Expanded         int
	ExpansionsFailed int
	FeedsFetched     int
	FeedsFailed      int
	BoundReached     bool
	Duration         time.Duration
}

// NopObserver discards all progress
type NopObserver struct{}

func (NopObserver) FollowersProgress(discovered, queued int) {}
func (NopObserver) PostsProgress(posts, remaining int)       {}
func (NopObserver) Done(summary Summary)                     {}
