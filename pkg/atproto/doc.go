// Package atproto provides a client for the AT Protocol XRPC API used by
// Bluesky.
//
// This package includes:
//   - Session handling with createSession and a single refresh on ExpiredToken
//   - Follower and author feed listing with cursor pagination
//   - Handle resolution
//   - Mapping of HTTP status codes and XRPC error names onto pkg/errors types
//
// Source adapts the client to the crawler.Client interface.
//
// Example usage:
//
//	client := atproto.NewClient("https://bsky.social", 30*time.Second, nil, log)
//	if _, err := client.CreateSession(ctx, "alice.bsky.social", appPassword); err != nil {
//	    return err
//	}
//
//	src := atproto.NewSource(client, atproto.SourceOptions{FollowerPages: 1, FeedPages: 1}, log)
//	followers, err := src.Expand(ctx, "alice.bsky.social")
package atproto
