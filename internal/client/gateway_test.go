package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bobmcallan/events-portal/internal/cache"
	"github.com/bobmcallan/events-portal/internal/common"
	"github.com/bobmcallan/events-portal/internal/models"
	"github.com/bobmcallan/events-portal/internal/session"
	"github.com/bobmcallan/events-portal/internal/storage/memory"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-api-key"

// fakeAPI counts calls per route and lets each test script the responses.
type fakeAPI struct {
	mux      *http.ServeMux
	srv      *httptest.Server
	refreshs atomic.Int32
	events   atomic.Int32
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{mux: http.NewServeMux()}
	f.srv = httptest.NewServer(f.mux)
	t.Cleanup(f.srv.Close)
	return f
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, baseURL string, opts ...GatewayOption) (*Client, *session.Store) {
	t.Helper()
	store := session.New(memory.NewKVStorage(), common.NewSilentLogger())
	gw := NewGateway(baseURL, testAPIKey, store, common.NewSilentLogger(), opts...)
	return New(gw), store
}

func signIn(t *testing.T, store *session.Store, access, refresh string) {
	t.Helper()
	user := &models.User{ID: "7", Email: "user@example.com", Roles: []string{models.RoleUser}}
	require.NoError(t, store.SetTokens(context.Background(), access, refresh, time.Now().Add(time.Hour).Unix(), user))
}

func signedJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "7",
		"exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func TestIsCredentialEndpoint(t *testing.T) {
	tests := map[string]bool{
		"/login-check":       true,
		"/register":          true,
		"/token/refresh":     true,
		"/token/refresh?x=1": true,
		"/events":            false,
		"/events/5/register": false,
		"/profile":           false,
		"/register/confirm":  false,
		"/login-check/extra": false,
	}
	for path, want := range tests {
		assert.Equal(t, want, IsCredentialEndpoint(path), path)
	}
}

func TestGateway_CredentialHeaders(t *testing.T) {
	api := newFakeAPI(t)
	var mu sync.Mutex
	seen := map[string]http.Header{}
	record := func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen[r.URL.Path] = r.Header.Clone()
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{})
	}
	api.mux.HandleFunc("/register", record)
	api.mux.HandleFunc("/events/5/register", record)
	api.mux.HandleFunc("/events", record)

	c, store := newTestClient(t, api.srv.URL)
	ctx := context.Background()

	// no token is not an error
	require.NoError(t, c.Gateway.Get(ctx, "/events", nil))
	mu.Lock()
	assert.Empty(t, seen["/events"].Get("Authorization"))
	mu.Unlock()

	signIn(t, store, "access-1", "refresh-1")
	require.NoError(t, c.Auth.Register(ctx, models.RegisterCredentials{Email: "a@b.c"}))
	require.NoError(t, c.Events.Register(ctx, "5"))

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, testAPIKey, seen["/register"].Get("X-API-TOKEN"))
	assert.Empty(t, seen["/register"].Get("Authorization"))
	assert.Equal(t, "Bearer access-1", seen["/events/5/register"].Get("Authorization"))
	assert.Empty(t, seen["/events/5/register"].Get("X-API-TOKEN"))
}

func TestGateway_RefreshThenRetryOnce(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("POST /token/refresh", func(w http.ResponseWriter, r *http.Request) {
		api.refreshs.Add(1)
		assert.Equal(t, testAPIKey, r.Header.Get("X-API-TOKEN"))
		var body models.RefreshRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "refresh-1", body.RefreshToken)
		writeJSON(w, http.StatusOK, models.AuthResponse{
			Token:           "access-2",
			RefreshToken:    "refresh-2",
			TokenExpiration: time.Now().Add(time.Hour).Unix(),
			User:            &models.User{ID: "7", Email: "user@example.com", Roles: []string{models.RoleUser}},
		})
	})
	api.mux.HandleFunc("GET /events", func(w http.ResponseWriter, r *http.Request) {
		api.events.Add(1)
		if r.Header.Get("Authorization") != "Bearer access-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, []models.Event{{ID: "1", Title: "Go Meetup"}})
	})

	c, store := newTestClient(t, api.srv.URL)
	signIn(t, store, "access-1", "refresh-1")

	events, err := c.Events.List(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Go Meetup", events[0].Title)

	assert.Equal(t, int32(1), api.refreshs.Load(), "exactly one refresh")
	assert.Equal(t, int32(2), api.events.Load(), "original call plus exactly one retry")

	snap := store.Snapshot()
	assert.Equal(t, "access-2", snap.AccessToken)
	assert.Equal(t, "refresh-2", snap.RefreshToken)
	assert.True(t, snap.IsAuthenticated)
}

func TestGateway_NoRefreshTokenLogsOut(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("POST /token/refresh", func(w http.ResponseWriter, r *http.Request) {
		api.refreshs.Add(1)
	})
	api.mux.HandleFunc("GET /profile", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Expired JWT Token"})
	})

	c, store := newTestClient(t, api.srv.URL)
	signIn(t, store, "access-1", "")

	expired := 0
	c.Gateway.OnSessionExpired(func() { expired++ })

	_, err := c.Profile.Get(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.ErrorIs(t, err, ErrNoRefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, IsStatus(err, http.StatusUnauthorized), "original 401 is returned")

	assert.Equal(t, int32(0), api.refreshs.Load())
	assert.Equal(t, 1, expired)
	assert.True(t, store.Snapshot().IsEmpty())
}

func TestGateway_RetriedUnauthorizedIsFinal(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("POST /token/refresh", func(w http.ResponseWriter, r *http.Request) {
		api.refreshs.Add(1)
		writeJSON(w, http.StatusOK, models.AuthResponse{
			Token:           "access-2",
			RefreshToken:    "refresh-2",
			TokenExpiration: time.Now().Add(time.Hour).Unix(),
		})
	})
	api.mux.HandleFunc("GET /events/9", func(w http.ResponseWriter, r *http.Request) {
		api.events.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	c, store := newTestClient(t, api.srv.URL)
	signIn(t, store, "access-1", "refresh-1")

	_, err := c.Events.Get(context.Background(), "9")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.NotErrorIs(t, err, ErrSessionExpired)

	assert.Equal(t, int32(1), api.refreshs.Load(), "no second refresh")
	assert.Equal(t, int32(2), api.events.Load())

	// refresh response without a user keeps the current one
	require.NotNil(t, store.User())
	assert.Equal(t, "user@example.com", store.User().Email)
	assert.Equal(t, "access-2", store.AccessToken())
}

func TestGateway_ConcurrentUnauthorizedRefreshesOnce(t *testing.T) {
	api := newFakeAPI(t)

	var mu sync.Mutex
	redeemed := map[string]bool{}
	api.mux.HandleFunc("POST /token/refresh", func(w http.ResponseWriter, r *http.Request) {
		api.refreshs.Add(1)
		var body models.RefreshRequest
		json.NewDecoder(r.Body).Decode(&body)

		mu.Lock()
		defer mu.Unlock()
		if body.RefreshToken != "refresh-1" || redeemed[body.RefreshToken] {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid refresh token"})
			return
		}
		redeemed[body.RefreshToken] = true
		writeJSON(w, http.StatusOK, models.AuthResponse{
			Token:           "access-2",
			RefreshToken:    "refresh-2",
			TokenExpiration: time.Now().Add(time.Hour).Unix(),
		})
	})

	// Both stale requests are held until the other arrives, so each sees a 401.
	var arrived sync.WaitGroup
	arrived.Add(2)
	api.mux.HandleFunc("GET /events/{id}", func(w http.ResponseWriter, r *http.Request) {
		api.events.Add(1)
		if r.Header.Get("Authorization") != "Bearer access-2" {
			arrived.Done()
			arrived.Wait()
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, models.Event{ID: r.PathValue("id")})
	})

	c, store := newTestClient(t, api.srv.URL)
	signIn(t, store, "access-1", "refresh-1")

	expired := 0
	c.Gateway.OnSessionExpired(func() { expired++ })

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{"1", "2"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = c.Events.Get(context.Background(), id)
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, int32(1), api.refreshs.Load(), "the second caller reuses the new token")
	assert.Equal(t, int32(4), api.events.Load())
	assert.Equal(t, 0, expired)
	assert.Equal(t, "access-2", store.AccessToken())
	assert.Equal(t, "refresh-2", store.RefreshToken())
	assert.True(t, store.IsAuthenticated())
}

func TestGateway_RefreshFailureLogsOut(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("POST /token/refresh", func(w http.ResponseWriter, r *http.Request) {
		api.refreshs.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid refresh token"})
	})
	api.mux.HandleFunc("GET /events", func(w http.ResponseWriter, r *http.Request) {
		api.events.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	c, store := newTestClient(t, api.srv.URL)
	signIn(t, store, "access-1", "refresh-1")

	hooked := false
	c.Gateway.OnSessionExpired(func() { hooked = true })

	events, err := c.Events.List(context.Background())
	require.Error(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
	assert.ErrorIs(t, err, ErrSessionExpired)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, PathRefresh, apiErr.Path, "refresh failure is returned")
	assert.Equal(t, "Invalid refresh token", apiErr.Message())

	assert.Equal(t, int32(1), api.refreshs.Load())
	assert.Equal(t, int32(1), api.events.Load(), "no retry after failed refresh")
	assert.True(t, hooked)
	assert.True(t, store.Snapshot().IsEmpty())
}

func TestGateway_OtherFailuresAreTerminal(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("POST /token/refresh", func(w http.ResponseWriter, r *http.Request) {
		api.refreshs.Add(1)
	})
	api.mux.HandleFunc("POST /events/3/register", func(w http.ResponseWriter, r *http.Request) {
		api.events.Add(1)
		writeJSON(w, http.StatusBadRequest, models.ProblemDetails{
			StatusCode: 400,
			Instance:   "/events/3/register",
			Title:      "You are already registered for this event",
		})
	})
	api.mux.HandleFunc("GET /events/4", func(w http.ResponseWriter, r *http.Request) {
		api.events.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	c, store := newTestClient(t, api.srv.URL)
	signIn(t, store, "access-1", "refresh-1")
	ctx := context.Background()

	err := c.Events.Register(ctx, "3")
	require.Error(t, err)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "You are already registered for this event", apiErr.Message())

	_, err = c.Events.Get(ctx, "4")
	assert.True(t, IsStatus(err, http.StatusInternalServerError))

	assert.Equal(t, int32(0), api.refreshs.Load())
	assert.Equal(t, int32(2), api.events.Load())
	assert.True(t, store.IsAuthenticated(), "non-auth failures keep the session")
}

func TestGateway_CredentialEndpoint401NotRefreshed(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("POST /token/refresh", func(w http.ResponseWriter, r *http.Request) {
		api.refreshs.Add(1)
	})
	api.mux.HandleFunc("POST /login-check", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials."})
	})

	c, store := newTestClient(t, api.srv.URL)
	signIn(t, store, "access-1", "refresh-1")

	_, err := c.Auth.Login(context.Background(), models.LoginCredentials{Email: "x@y.z", Password: "bad"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int32(0), api.refreshs.Load())
}

func TestGateway_NetworkError(t *testing.T) {
	c, store := newTestClient(t, "http://127.0.0.1:1")
	signIn(t, store, "access-1", "refresh-1")

	_, err := c.Events.Get(context.Background(), "1")
	require.Error(t, err)
	_, isAPI := AsAPIError(err)
	assert.False(t, isAPI)
	assert.True(t, store.IsAuthenticated())
}

func TestGateway_ResponseCache(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("GET /events", func(w http.ResponseWriter, r *http.Request) {
		api.events.Add(1)
		writeJSON(w, http.StatusOK, []models.Event{{ID: "1"}})
	})
	api.mux.HandleFunc("POST /events/1/register", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	rc := cache.New(time.Minute, 16)
	c, store := newTestClient(t, api.srv.URL, WithCache(rc))
	signIn(t, store, "access-1", "refresh-1")
	ctx := context.Background()

	_, err := c.Events.List(ctx)
	require.NoError(t, err)
	_, err = c.Events.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), api.events.Load(), "second list served from cache")

	require.NoError(t, c.Events.Register(ctx, "1"))
	_, err = c.Events.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), api.events.Load(), "mutation invalidates /events")

	assert.Equal(t, 1, rc.Len())
	store.Logout(ctx)
	assert.Equal(t, 0, rc.Len(), "logout purges cached responses")
}

func TestGateway_EmptyAndNullCollections(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("GET /events", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("null"))
	})
	api.mux.HandleFunc("GET /categories", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"}`))
	})

	c, _ := newTestClient(t, api.srv.URL)
	ctx := context.Background()

	events, err := c.Events.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)

	categories, err := c.Categories.List(ctx)
	require.Error(t, err)
	assert.NotNil(t, categories)
	assert.Empty(t, categories)
}

func TestAPIError_ProblemDetails(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("POST /register", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, models.ProblemDetails{
			StatusCode: 422,
			Instance:   "/register",
			Title:      "Validation failed",
			InvalidParams: []models.ValidationError{
				{Name: "email", Reason: "This value is already used."},
			},
		})
	})

	c, _ := newTestClient(t, api.srv.URL)
	err := c.Auth.Register(context.Background(), models.RegisterCredentials{Email: "dup@example.com"})

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "Validation failed", apiErr.Message())
	assert.Equal(t, map[string]string{"email": "This value is already used."}, apiErr.FieldErrors())
	assert.Contains(t, err.Error(), "POST /register: 422")
}

func TestAPIError_Unwrap(t *testing.T) {
	assert.True(t, errors.Is(&APIError{StatusCode: 404}, ErrNotFound))
	assert.True(t, errors.Is(&APIError{StatusCode: 401}, ErrUnauthorized))
	assert.False(t, errors.Is(&APIError{StatusCode: 400}, ErrNotFound))
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	assert.Equal(t, exp.Unix(), tokenExpiry(signedJWT(t, exp)))
	assert.Zero(t, tokenExpiry("opaque-token"))
	assert.Zero(t, tokenExpiry(""))
}

func TestResourcePrefix(t *testing.T) {
	assert.Equal(t, "/events", resourcePrefix("/events/7/register"))
	assert.Equal(t, "/events", resourcePrefix("/events"))
	assert.Equal(t, "/profile", resourcePrefix("/profile/password"))
	assert.Equal(t, "/categories", resourcePrefix("/categories?page=2"))
}
