package atproto

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultEndpoint is the XRPC base of the main Bluesky PDS
	DefaultEndpoint = "https://bsky.social/xrpc/"

	// XRPC method names
	MethodCreateSession  = "com.atproto.server.createSession"
	MethodRefreshSession = "com.atproto.server.refreshSession"
	MethodResolveHandle  = "com.atproto.identity.resolveHandle"
	MethodGetFollowers   = "app.bsky.graph.getFollowers"
	MethodGetAuthorFeed  = "app.bsky.feed.getAuthorFeed"

	// MaxPageLimit is the largest page size the list endpoints accept
	MaxPageLimit = 100
)

// NormalizeEndpoint makes sure endpoint ends in /xrpc/. A bare host such as
// https://bsky.social gets the path appended.
func NormalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return DefaultEndpoint
	}
	endpoint = strings.TrimRight(endpoint, "/")
	if !strings.HasSuffix(endpoint, "/xrpc") {
		endpoint += "/xrpc"
	}
	return endpoint + "/"
}

// methodURL builds the request URL for an XRPC method
func methodURL(endpoint, method string, query url.Values) string {
	u := endpoint + method
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// listQuery builds the query shared by the paginated actor endpoints
func listQuery(actor, cursor string, limit int) url.Values {
	if limit <= 0 || limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	params := url.Values{}
	params.Set("actor", actor)
	params.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	return params
}
