package crawler

import (
	"encoding/json"
	"sync"
)

// PostStore is the merged post collection keyed by URI. On a duplicate URI
// the last merge wins.
type PostStore struct {
	mu    sync.Mutex
	posts map[string]json.RawMessage
}

func NewPostStore() *PostStore {
	return &PostStore{posts: make(map[string]json.RawMessage)}
}

// Merge inserts posts and returns how many URIs were new
func (s *PostStore) Merge(posts []Post) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, p := range posts {
		if p.URI == "" {
			continue
		}
		if _, exists := s.posts[p.URI]; !exists {
			added++
		}
		s.posts[p.URI] = p.Payload
	}
	return added
}

// Len returns the number of unique URIs
func (s *PostStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.posts)
}

// Snapshot returns a copy of the collection
func (s *PostStore) Snapshot() map[string]json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]json.RawMessage, len(s.posts))
	for uri, payload := range s.posts {
		out[uri] = payload
	}
	return out
}
