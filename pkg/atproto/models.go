package atproto

import "encoding/json"

// Session is the result of createSession or refreshSession
type Session struct {
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
	Handle     string `json:"handle"`
	DID        string `json:"did"`
}

// createSessionRequest is the body of com.atproto.server.createSession
type createSessionRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// XRPCError is the error body returned by XRPC endpoints
type XRPCError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ProfileView is the subset of an actor profile the crawler reads
type ProfileView struct {
	DID         string `json:"did"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName,omitempty"`
}

// FollowersResponse is one page of app.bsky.graph.getFollowers
type FollowersResponse struct {
	Subject   ProfileView   `json:"subject"`
	Followers []ProfileView `json:"followers"`
	Cursor    string        `json:"cursor,omitempty"`
}

// FeedItem is one entry of an author feed. Raw holds the item exactly as
// received so it can be persisted without loss.
type FeedItem struct {
	Post struct {
		URI string `json:"uri"`
	} `json:"post"`
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps a copy of the raw item alongside the decoded URI
func (f *FeedItem) UnmarshalJSON(data []byte) error {
	type plain FeedItem
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*f = FeedItem(p)
	f.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// AuthorFeedResponse is one page of app.bsky.feed.getAuthorFeed
type AuthorFeedResponse struct {
	Feed   []FeedItem `json:"feed"`
	Cursor string     `json:"cursor,omitempty"`
}

// ResolveHandleResponse is the result of com.atproto.identity.resolveHandle
type ResolveHandleResponse struct {
	DID string `json:"did"`
}
