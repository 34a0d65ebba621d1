// Package client talks to the remote events REST API. All calls go through a
// Gateway that attaches credentials from the session and recovers from an
// expired access token with a single refresh-and-retry.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/events-portal/internal/cache"
	"github.com/bobmcallan/events-portal/internal/common"
	"github.com/bobmcallan/events-portal/internal/models"
	"github.com/bobmcallan/events-portal/internal/session"
)

// maxResponseSize caps the response body read from the API.
const maxResponseSize = 10 << 20

// Credential-issuing endpoints authenticate with the static API key.
const (
	PathLogin    = "/login-check"
	PathRegister = "/register"
	PathRefresh  = "/token/refresh"
)

// Attempt records whether a request has already been through the refresh cycle.
type Attempt int

const (
	AttemptInitial Attempt = iota
	AttemptRetried
)

func (a Attempt) String() string {
	if a == AttemptRetried {
		return "retried"
	}
	return "initial"
}

// IsCredentialEndpoint reports whether path is served with X-API-TOKEN
// instead of a bearer token.
func IsCredentialEndpoint(path string) bool {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	switch strings.TrimSuffix(path, "/") {
	case PathLogin, PathRegister, PathRefresh:
		return true
	}
	return false
}

// Gateway wraps every outgoing API call.
type Gateway struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	session    *session.Store
	cache      *cache.ResponseCache
	logger     *common.Logger

	// refreshMu serializes the refresh exchange. Refresh tokens are single
	// use, so two calls rejected together must not both redeem the same one.
	refreshMu sync.Mutex

	hooksMu sync.Mutex
	expired []func()
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) GatewayOption {
	return func(g *Gateway) {
		if c != nil {
			g.httpClient = c
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.httpClient.Timeout = d
		}
	}
}

// WithCache enables GET response caching. The cache is purged on logout.
func WithCache(c *cache.ResponseCache) GatewayOption {
	return func(g *Gateway) {
		g.cache = c
	}
}

// NewGateway creates a Gateway for the API at baseURL.
func NewGateway(baseURL, apiKey string, store *session.Store, logger *common.Logger, opts ...GatewayOption) *Gateway {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	g := &Gateway{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		session:    store,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.cache != nil {
		store.OnLogout(g.cache.Purge)
	}
	return g
}

// Session returns the store the gateway reads credentials from.
func (g *Gateway) Session() *session.Store {
	return g.session
}

// BaseURL returns the API base URL.
func (g *Gateway) BaseURL() string {
	return g.baseURL
}

// OnSessionExpired registers fn to run whenever the refresh protocol gives
// up and clears the session.
func (g *Gateway) OnSessionExpired(fn func()) {
	g.hooksMu.Lock()
	defer g.hooksMu.Unlock()
	g.expired = append(g.expired, fn)
}

type apiRequest struct {
	method string
	path   string
	body   []byte
	token  string // bearer sent with the last attempt
}

// Get issues a GET and decodes the JSON response into out.
func (g *Gateway) Get(ctx context.Context, path string, out any) error {
	return g.Do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with a JSON body.
func (g *Gateway) Post(ctx context.Context, path string, in, out any) error {
	return g.Do(ctx, http.MethodPost, path, in, out)
}

// Put issues a PUT with a JSON body.
func (g *Gateway) Put(ctx context.Context, path string, in, out any) error {
	return g.Do(ctx, http.MethodPut, path, in, out)
}

// Delete issues a DELETE.
func (g *Gateway) Delete(ctx context.Context, path string) error {
	return g.Do(ctx, http.MethodDelete, path, nil, nil)
}

// Do issues a request through the refresh protocol. in is marshalled as the
// JSON body when non-nil; out receives the decoded response when non-nil.
func (g *Gateway) Do(ctx context.Context, method, path string, in, out any) error {
	return g.doAttempt(ctx, method, path, in, out, AttemptInitial)
}

func (g *Gateway) doAttempt(ctx context.Context, method, path string, in, out any, attempt Attempt) error {
	req := apiRequest{method: method, path: path}
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		req.body = data
	}

	body, err := g.do(ctx, req, attempt)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response from %s %s: %w", method, path, err)
	}
	return nil
}

func (g *Gateway) do(ctx context.Context, req apiRequest, attempt Attempt) ([]byte, error) {
	cacheKey := ""
	if req.method == http.MethodGet && g.cache != nil {
		cacheKey = cache.MakeKey(g.cacheUser(), req.method, req.path)
		if cached, ok := g.cache.Get(cacheKey); ok {
			g.logger.Debug().Str("path", req.path).Msg("api cache hit")
			return cached.Body, nil
		}
	}

	if !IsCredentialEndpoint(req.path) {
		req.token = g.session.AccessToken()
	}
	status, header, body, err := g.send(ctx, req, attempt)
	if err != nil {
		return nil, err
	}

	if status >= 200 && status < 300 {
		if cacheKey != "" {
			g.cache.Set(cacheKey, &cache.CachedResponse{StatusCode: status, Headers: header, Body: body})
		} else if req.method != http.MethodGet {
			g.cache.InvalidatePrefix(resourcePrefix(req.path))
		}
		return body, nil
	}

	apiErr := newAPIError(req.method, req.path, status, body)
	if status != http.StatusUnauthorized || attempt != AttemptInitial || IsCredentialEndpoint(req.path) {
		return nil, apiErr
	}
	return g.refreshAndRetry(ctx, req, apiErr)
}

// refreshAndRetry runs once per request after an initial 401. When another
// call has already replaced the rejected access token, the request is
// retried with the new one instead of refreshing again.
func (g *Gateway) refreshAndRetry(ctx context.Context, req apiRequest, original *APIError) ([]byte, error) {
	refreshed, err := g.refreshSession(ctx, req, original)
	if err != nil {
		return nil, err
	}
	if refreshed {
		g.logger.Info().Str("path", req.path).Msg("access token refreshed, retrying request")
	} else {
		g.logger.Debug().Str("path", req.path).Msg("access token already replaced, retrying request")
	}
	return g.do(ctx, req, AttemptRetried)
}

// refreshSession exchanges the refresh token unless the access token that
// was rejected has already been replaced. It reports whether it refreshed.
func (g *Gateway) refreshSession(ctx context.Context, req apiRequest, original *APIError) (bool, error) {
	g.refreshMu.Lock()
	defer g.refreshMu.Unlock()

	if g.replacedSince(req.token) {
		return false, nil
	}

	refreshToken := g.session.RefreshToken()
	if refreshToken == "" {
		g.logger.Warn().Str("path", req.path).Msg("access denied and no refresh token, ending session")
		g.expire(ctx)
		return false, fmt.Errorf("%w: %w: %w", ErrSessionExpired, ErrNoRefreshToken, original)
	}

	auth, err := g.refresh(ctx, refreshToken)
	if err != nil {
		if current := g.session.RefreshToken(); current != "" && current != refreshToken {
			return false, nil
		}
		g.logger.Warn().Str("path", req.path).Err(err).Msg("token refresh failed, ending session")
		g.expire(ctx)
		return false, fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}

	if err := g.storeAuth(ctx, auth, refreshToken); err != nil {
		g.logger.Warn().Err(err).Msg("refreshed session could not be persisted")
	}
	return true, nil
}

// replacedSince reports whether the session now holds an access token other
// than rejected.
func (g *Gateway) replacedSince(rejected string) bool {
	current := g.session.AccessToken()
	return current != "" && current != rejected
}

// refresh exchanges a refresh token for new credentials. The call itself is
// never refreshed.
func (g *Gateway) refresh(ctx context.Context, refreshToken string) (*models.AuthResponse, error) {
	var auth models.AuthResponse
	if err := g.doAttempt(ctx, http.MethodPost, PathRefresh, models.RefreshRequest{RefreshToken: refreshToken}, &auth, AttemptRetried); err != nil {
		return nil, err
	}
	if auth.Token == "" {
		return nil, errors.New("refresh response carried no token")
	}
	return &auth, nil
}

// storeAuth writes an auth response into the session. Missing fields in a
// refresh response fall back to the JWT exp claim, the previous refresh
// token and the current user.
func (g *Gateway) storeAuth(ctx context.Context, auth *models.AuthResponse, previousRefresh string) error {
	expiresAt := auth.TokenExpiration
	if expiresAt == 0 {
		expiresAt = tokenExpiry(auth.Token)
	}
	refreshToken := auth.RefreshToken
	if refreshToken == "" {
		refreshToken = previousRefresh
	}
	user := auth.User
	if user == nil {
		user = g.session.User()
	}
	if user != nil && len(user.Roles) == 0 && len(auth.UserRoles) > 0 {
		user = user.Clone()
		user.Roles = append([]string(nil), auth.UserRoles...)
	}
	return g.session.SetTokens(ctx, auth.Token, refreshToken, expiresAt, user)
}

func (g *Gateway) expire(ctx context.Context) {
	g.session.Logout(ctx)

	g.hooksMu.Lock()
	hooks := append([]func(){}, g.expired...)
	g.hooksMu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// send performs one HTTP round-trip with the appropriate credentials.
func (g *Gateway) send(ctx context.Context, req apiRequest, attempt Attempt) (int, http.Header, []byte, error) {
	var bodyReader io.Reader
	if req.body != nil {
		bodyReader = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, g.baseURL+req.path, bodyReader)
	if err != nil {
		return 0, nil, nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if IsCredentialEndpoint(req.path) {
		httpReq.Header.Set("X-API-TOKEN", g.apiKey)
	} else if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}
	if id := common.CorrelationIDFromContext(ctx); id != "" {
		httpReq.Header.Set("X-Correlation-ID", id)
	}

	start := time.Now()
	resp, err := g.httpClient.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		g.logger.Error().Str("method", req.method).Str("path", req.path).Int64("duration_ms", duration.Milliseconds()).Err(err).Msg("api request failed")
		return 0, nil, nil, fmt.Errorf("events API unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to read response: %w", err)
	}

	g.logger.Debug().
		Str("method", req.method).
		Str("path", req.path).
		Int("status", resp.StatusCode).
		Str("attempt", attempt.String()).
		Int64("duration_ms", duration.Milliseconds()).
		Msg("api response")

	return resp.StatusCode, resp.Header, body, nil
}

func (g *Gateway) cacheUser() string {
	if u := g.session.User(); u != nil && u.ID != "" {
		return u.ID
	}
	return "anonymous"
}

// resourcePrefix returns the top-level collection of path, e.g.
// "/events/7/register" -> "/events".
func resourcePrefix(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		trimmed = trimmed[:i]
	}
	return "/" + trimmed
}
