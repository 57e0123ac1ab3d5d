package atproto

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	apperrors "skycrawl/pkg/errors"
	"skycrawl/pkg/logger"
	"skycrawl/pkg/ratelimit"
)

// DefaultUserAgent is sent when no other agent is configured
const DefaultUserAgent = "skycrawl/1.0"

// ErrNoSession is returned by authenticated calls made before CreateSession
var ErrNoSession = apperrors.New(apperrors.ErrorTypeAuth, "no active session")

// Client performs XRPC requests against one AT Protocol endpoint. It is safe
// for concurrent use; all workers share one Client and one session.
type Client struct {
	httpClient *http.Client
	endpoint   string
	headers    map[string]string
	limiter    ratelimit.Limiter
	logger     logger.Logger

	mu      sync.RWMutex
	session *Session
}

// NewClient creates a client for endpoint. A nil limiter means unlimited.
func NewClient(endpoint string, timeout time.Duration, limiter ratelimit.Limiter, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		endpoint: NormalizeEndpoint(endpoint),
		headers: map[string]string{
			"User-Agent": DefaultUserAgent,
			"Accept":     "application/json",
		},
		limiter: limiter,
		logger:  log,
	}
}

// SetHeader sets a custom header for every request. It must not be called
// once requests are in flight.
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// Endpoint returns the normalized XRPC base URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Session returns a copy of the current session, or nil
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// CreateSession logs in with an identifier (handle or DID) and an app
// password, and stores the returned tokens.
func (c *Client) CreateSession(ctx context.Context, identifier, password string) (*Session, error) {
	c.logger.DebugWithFields("creating session", map[string]interface{}{
		"identifier": identifier,
	})

	req := createSessionRequest{Identifier: identifier, Password: password}
	var session Session
	if err := c.call(ctx, http.MethodPost, MethodCreateSession, nil, req, "", &session); err != nil {
		c.logger.ErrorWithFields("failed to create session", map[string]interface{}{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return nil, err
	}
	if session.AccessJwt == "" {
		return nil, apperrors.New(apperrors.ErrorTypeAuth, "session response carried no access token")
	}

	c.mu.Lock()
	c.session = &session
	c.mu.Unlock()

	c.logger.InfoWithFields("Session created", map[string]interface{}{
		"handle": session.Handle,
		"did":    session.DID,
	})
	return &session, nil
}

// RefreshSession exchanges the refresh token for a new session
func (c *Client) RefreshSession(ctx context.Context) (*Session, error) {
	current := c.Session()
	if current == nil || current.RefreshJwt == "" {
		return nil, ErrNoSession
	}

	var session Session
	if err := c.call(ctx, http.MethodPost, MethodRefreshSession, nil, nil, current.RefreshJwt, &session); err != nil {
		c.logger.ErrorWithFields("failed to refresh session", map[string]interface{}{
			"handle": current.Handle,
			"error":  err.Error(),
		})
		return nil, err
	}

	c.mu.Lock()
	// Another worker may have refreshed first; the newest tokens win either way
	c.session = &session
	c.mu.Unlock()

	c.logger.DebugWithFields("session refreshed", map[string]interface{}{
		"handle": session.Handle,
	})
	return &session, nil
}

// GetFollowers fetches one page of actor's followers
func (c *Client) GetFollowers(ctx context.Context, actor, cursor string, limit int) (*FollowersResponse, error) {
	var resp FollowersResponse
	if err := c.authedGet(ctx, MethodGetFollowers, listQuery(actor, cursor, limit), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetAuthorFeed fetches one page of actor's own feed
func (c *Client) GetAuthorFeed(ctx context.Context, actor, cursor string, limit int) (*AuthorFeedResponse, error) {
	var resp AuthorFeedResponse
	if err := c.authedGet(ctx, MethodGetAuthorFeed, listQuery(actor, cursor, limit), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResolveHandle returns the DID a handle points at. It needs no session.
func (c *Client) ResolveHandle(ctx context.Context, handle string) (string, error) {
	params := url.Values{}
	params.Set("handle", handle)

	var resp ResolveHandleResponse
	if err := c.call(ctx, http.MethodGet, MethodResolveHandle, params, nil, c.accessToken(), &resp); err != nil {
		return "", err
	}
	if resp.DID == "" {
		return "", apperrors.New(apperrors.ErrorTypeParsing, "resolveHandle returned no did")
	}
	return resp.DID, nil
}

// authedGet performs a GET with the access token. An expired token is
// refreshed once and the request is replayed.
func (c *Client) authedGet(ctx context.Context, method string, query url.Values, target interface{}) error {
	token := c.accessToken()
	if token == "" {
		return ErrNoSession
	}

	err := c.call(ctx, http.MethodGet, method, query, nil, token, target)
	if !isExpiredToken(err) {
		return err
	}

	c.logger.DebugWithFields("access token expired, refreshing", map[string]interface{}{
		"method": method,
	})
	if _, rerr := c.RefreshSession(ctx); rerr != nil {
		return err
	}
	return c.call(ctx, http.MethodGet, method, query, nil, c.accessToken(), target)
}

func (c *Client) accessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessJwt
}

// call performs one XRPC request and decodes a JSON response into target
func (c *Client) call(ctx context.Context, httpMethod, method string, query url.Values, body interface{}, token string, target interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return apperrors.Wrap(apperrors.ErrorTypeNetwork, "rate limiter wait aborted", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrorTypeParsing, "failed to encode request", err)
		}
		reader = bytes.NewReader(payload)
	}

	reqURL := methodURL(c.endpoint, method, query)
	req, err := http.NewRequestWithContext(ctx, httpMethod, reqURL, reader)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrorTypeUnknown, "failed to create request", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrorTypeNetwork, "failed to read response body", err)
	}

	if err := c.checkResponseStatus(resp, method, data); err != nil {
		return err
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		bodyPreview := string(data)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"method":       method,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return &apperrors.Error{
			Type:    apperrors.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
			Err:     err,
		}
	}
	return nil
}

// doRequest sends req and logs its outcome
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.DebugWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, apperrors.Wrap(apperrors.ErrorTypeNetwork, "request failed", err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})
	return resp, nil
}

// checkResponseStatus maps a non-2xx response onto the error taxonomy, using
// the XRPC error name when the body carries one.
func (c *Client) checkResponseStatus(resp *http.Response, method string, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var xerr XRPCError
	_ = json.Unmarshal(body, &xerr)

	errType := apperrors.TypeForStatus(resp.StatusCode)
	switch xerr.Error {
	case "ExpiredToken", "InvalidToken", "AuthenticationRequired", "AuthFactorTokenRequired", "AccountTakedown":
		errType = apperrors.ErrorTypeAuth
	case "ActorNotFound", "NotFound", "InvalidRequest":
		errType = apperrors.ErrorTypeNotFound
	case "RateLimitExceeded":
		errType = apperrors.ErrorTypeRateLimit
	}

	msg := xerr.Message
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	if xerr.Error != "" {
		msg = xerr.Error + ": " + msg
	}

	c.logger.DebugWithFields("XRPC error response", map[string]interface{}{
		"method":     method,
		"status":     resp.StatusCode,
		"xrpc_error": xerr.Error,
		"error_type": string(errType),
	})

	return &apperrors.Error{
		Type:    errType,
		Message: msg,
		Code:    resp.StatusCode,
		Err:     &xrpcError{name: xerr.Error},
	}
}

// xrpcError carries the XRPC error name through the error chain
type xrpcError struct {
	name string
}

func (e *xrpcError) Error() string {
	return e.name
}

func isExpiredToken(err error) bool {
	var xe *xrpcError
	return errors.As(err, &xe) && xe.name == "ExpiredToken"
}
