package atproto

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// mockXRPCServer simulates the handful of XRPC methods the crawler uses
type mockXRPCServer struct {
	server *httptest.Server

	mu          sync.Mutex
	password    string
	accessToken string
	followers   map[string][][]string
	feeds       map[string][][]string
	failures    map[string]mockFailure
	expireNext  bool
	delay       time.Duration
	requests    map[string]int
	lastHeaders http.Header
	lastQuery   map[string]string
}

type mockFailure struct {
	status int
	name   string
}

func newMockXRPCServer() *mockXRPCServer {
	m := &mockXRPCServer{
		password:    "app-pass",
		accessToken: "access-1",
		followers:   make(map[string][][]string),
		feeds:       make(map[string][][]string),
		failures:    make(map[string]mockFailure),
		requests:    make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/xrpc/"+MethodCreateSession, m.handleCreateSession)
	mux.HandleFunc("/xrpc/"+MethodRefreshSession, m.handleRefreshSession)
	mux.HandleFunc("/xrpc/"+MethodResolveHandle, m.handleResolveHandle)
	mux.HandleFunc("/xrpc/"+MethodGetFollowers, m.handleFollowers)
	mux.HandleFunc("/xrpc/"+MethodGetAuthorFeed, m.handleFeed)

	m.server = httptest.NewServer(mux)
	return m
}

func (m *mockXRPCServer) URL() string {
	return m.server.URL
}

func (m *mockXRPCServer) Close() {
	m.server.Close()
}

func (m *mockXRPCServer) SetFollowers(actor string, pages ...[]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.followers[actor] = pages
}

func (m *mockXRPCServer) SetFeed(actor string, pages ...[]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feeds[actor] = pages
}

func (m *mockXRPCServer) Fail(actor string, status int, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[actor] = mockFailure{status: status, name: name}
}

func (m *mockXRPCServer) ExpireNextToken() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireNext = true
}

func (m *mockXRPCServer) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

func (m *mockXRPCServer) Requests(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[method]
}

func (m *mockXRPCServer) LastHeaders() http.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastHeaders.Clone()
}

func (m *mockXRPCServer) record(method string, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[method]++
	m.lastHeaders = r.Header.Clone()
	m.lastQuery = make(map[string]string)
	for k := range r.URL.Query() {
		m.lastQuery[k] = r.URL.Query().Get(k)
	}
}

func (m *mockXRPCServer) sendError(w http.ResponseWriter, status int, name, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(XRPCError{Error: name, Message: message})
}

func (m *mockXRPCServer) sendJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (m *mockXRPCServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	m.record(MethodCreateSession, r)
	if r.Method != http.MethodPost {
		m.sendError(w, http.StatusMethodNotAllowed, "InvalidRequest", "POST only")
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		m.sendError(w, http.StatusBadRequest, "InvalidRequest", "bad body")
		return
	}

	m.mu.Lock()
	ok := req.Password == m.password
	token := m.accessToken
	m.mu.Unlock()

	if !ok {
		m.sendError(w, http.StatusUnauthorized, "AuthenticationRequired", "Invalid identifier or password")
		return
	}
	m.sendJSON(w, Session{
		AccessJwt:  token,
		RefreshJwt: "refresh-1",
		Handle:     req.Identifier,
		DID:        "did:plc:" + req.Identifier,
	})
}

func (m *mockXRPCServer) handleRefreshSession(w http.ResponseWriter, r *http.Request) {
	m.record(MethodRefreshSession, r)
	if r.Header.Get("Authorization") != "Bearer refresh-1" {
		m.sendError(w, http.StatusBadRequest, "InvalidToken", "bad refresh token")
		return
	}

	m.mu.Lock()
	m.accessToken = "access-2"
	m.mu.Unlock()

	m.sendJSON(w, Session{AccessJwt: "access-2", RefreshJwt: "refresh-1", Handle: "me", DID: "did:plc:me"})
}

func (m *mockXRPCServer) handleResolveHandle(w http.ResponseWriter, r *http.Request) {
	m.record(MethodResolveHandle, r)
	handle := r.URL.Query().Get("handle")
	if f, ok := m.failureFor(handle); ok {
		m.sendError(w, f.status, f.name, "Unable to resolve handle")
		return
	}
	m.sendJSON(w, ResolveHandleResponse{DID: "did:plc:" + handle})
}

// authorize checks the bearer token and reports whether the handler may go on
func (m *mockXRPCServer) authorize(w http.ResponseWriter, r *http.Request) bool {
	m.mu.Lock()
	expire := m.expireNext
	m.expireNext = false
	token := m.accessToken
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return false
		}
	}

	if expire {
		m.sendError(w, http.StatusBadRequest, "ExpiredToken", "Token has expired")
		return false
	}
	if r.Header.Get("Authorization") != "Bearer "+token {
		m.sendError(w, http.StatusUnauthorized, "AuthenticationRequired", "Invalid token")
		return false
	}
	return true
}

func (m *mockXRPCServer) failureFor(actor string) (mockFailure, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.failures[actor]
	return f, ok
}

// pageFor picks the page a cursor points at. Cursors are page indexes.
func pageFor(pages [][]string, cursor string) ([]string, string) {
	idx := 0
	if cursor != "" {
		idx, _ = strconv.Atoi(cursor)
	}
	if idx >= len(pages) {
		return nil, ""
	}
	next := ""
	if idx+1 < len(pages) {
		next = strconv.Itoa(idx + 1)
	}
	return pages[idx], next
}

func (m *mockXRPCServer) handleFollowers(w http.ResponseWriter, r *http.Request) {
	m.record(MethodGetFollowers, r)
	if !m.authorize(w, r) {
		return
	}

	actor := r.URL.Query().Get("actor")
	if f, ok := m.failureFor(actor); ok {
		m.sendError(w, f.status, f.name, fmt.Sprintf("failure for %s", actor))
		return
	}

	m.mu.Lock()
	pages, ok := m.followers[actor]
	m.mu.Unlock()
	if !ok {
		m.sendError(w, http.StatusBadRequest, "InvalidRequest", "Profile not found")
		return
	}

	handles, next := pageFor(pages, r.URL.Query().Get("cursor"))
	resp := FollowersResponse{Subject: ProfileView{Handle: actor}, Cursor: next}
	for _, h := range handles {
		resp.Followers = append(resp.Followers, ProfileView{Handle: h, DID: "did:plc:" + h})
	}
	m.sendJSON(w, resp)
}

func (m *mockXRPCServer) handleFeed(w http.ResponseWriter, r *http.Request) {
	m.record(MethodGetAuthorFeed, r)
	if !m.authorize(w, r) {
		return
	}

	actor := r.URL.Query().Get("actor")
	if f, ok := m.failureFor(actor); ok {
		m.sendError(w, f.status, f.name, fmt.Sprintf("failure for %s", actor))
		return
	}

	m.mu.Lock()
	pages := m.feeds[actor]
	m.mu.Unlock()

	uris, next := pageFor(pages, r.URL.Query().Get("cursor"))
	items := make([]map[string]interface{}, 0, len(uris))
	for _, uri := range uris {
		// Entries are "uri|text"
		parts := strings.SplitN(uri, "|", 2)
		text := ""
		if len(parts) == 2 {
			text = parts[1]
		}
		items = append(items, map[string]interface{}{
			"post": map[string]interface{}{
				"uri":       parts[0],
				"author":    map[string]string{"handle": actor},
				"record":    map[string]string{"text": text},
				"indexedAt": "2024-01-01T00:00:00Z",
			},
		})
	}
	m.sendJSON(w, map[string]interface{}{"feed": items, "cursor": next})
}
