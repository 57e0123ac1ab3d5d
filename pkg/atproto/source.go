package atproto

import (
	"context"

	"skycrawl/pkg/crawler"
	"skycrawl/pkg/logger"
)

// SourceOptions bounds how much of each list the Source reads
type SourceOptions struct {
	FollowerPages    int
	FeedPages        int
	FollowerPageSize int
	FeedPageSize     int
}

// Source adapts Client to the crawler.Client interface
type Source struct {
	client *Client
	opts   SourceOptions
	logger logger.Logger
}

var _ crawler.Client = (*Source)(nil)

// NewSource wraps client. Page counts below one are treated as one.
func NewSource(client *Client, opts SourceOptions, log logger.Logger) *Source {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.FollowerPages < 1 {
		opts.FollowerPages = 1
	}
	if opts.FeedPages < 1 {
		opts.FeedPages = 1
	}
	return &Source{client: client, opts: opts, logger: log}
}

// Expand returns the handles of id's followers. A failure on any page fails
// the whole expansion.
func (s *Source) Expand(ctx context.Context, id string) ([]string, error) {
	var handles []string
	cursor := ""

	for page := 0; page < s.opts.FollowerPages; page++ {
		resp, err := s.client.GetFollowers(ctx, id, cursor, s.opts.FollowerPageSize)
		if err != nil {
			return nil, err
		}
		for _, f := range resp.Followers {
			if f.Handle != "" {
				handles = append(handles, f.Handle)
			}
		}
		if resp.Cursor == "" || resp.Cursor == cursor {
			break
		}
		cursor = resp.Cursor
	}

	s.logger.DebugWithFields("followers fetched", map[string]interface{}{
		"actor":     id,
		"followers": len(handles),
	})
	return handles, nil
}

// FetchFeed returns id's posts keyed by post URI, with each raw feed item as
// the payload.
func (s *Source) FetchFeed(ctx context.Context, id string) ([]crawler.Post, error) {
	var posts []crawler.Post
	cursor := ""

	for page := 0; page < s.opts.FeedPages; page++ {
		resp, err := s.client.GetAuthorFeed(ctx, id, cursor, s.opts.FeedPageSize)
		if err != nil {
			return nil, err
		}
		for _, item := range resp.Feed {
			if item.Post.URI == "" {
				continue
			}
			posts = append(posts, crawler.Post{URI: item.Post.URI, Payload: item.Raw})
		}
		if resp.Cursor == "" || resp.Cursor == cursor {
			break
		}
		cursor = resp.Cursor
	}

	s.logger.DebugWithFields("feed fetched", map[string]interface{}{
		"actor": id,
		"posts": len(posts),
	})
	return posts, nil
}
