package client

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/bobmcallan/events-portal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Login(t *testing.T) {
	api := newFakeAPI(t)
	exp := time.Now().Add(time.Hour).Unix()
	api.mux.HandleFunc("POST /login-check", func(w http.ResponseWriter, r *http.Request) {
		var creds models.LoginCredentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "admin@example.com", creds.Email)
		writeJSON(w, http.StatusOK, models.AuthResponse{
			Token:           "access",
			RefreshToken:    "refresh",
			TokenExpiration: exp,
			UserRoles:       []string{models.RoleAdmin},
			User:            &models.User{ID: "1", Email: "admin@example.com"},
		})
	})

	c, store := newTestClient(t, api.srv.URL)
	auth, err := c.Auth.Login(context.Background(), models.LoginCredentials{Email: "admin@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "access", auth.Token)

	snap := store.Snapshot()
	assert.Equal(t, "access", snap.AccessToken)
	assert.Equal(t, "refresh", snap.RefreshToken)
	assert.Equal(t, exp, snap.ExpiresAt)
	assert.True(t, store.IsAdmin(), "user_roles fill in missing user roles")
	assert.True(t, store.CheckAuth(context.Background()))
}

func TestAuthService_LoginFallsBackToJWTExpiry(t *testing.T) {
	api := newFakeAPI(t)
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	token := signedJWT(t, exp)
	api.mux.HandleFunc("POST /login-check", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"token":         token,
			"refresh_token": "refresh",
			"user":          map[string]any{"id": "7", "email": "user@example.com", "roles": []string{models.RoleUser}},
		})
	})

	c, store := newTestClient(t, api.srv.URL)
	_, err := c.Auth.Login(context.Background(), models.LoginCredentials{Email: "user@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, exp.Unix(), store.Snapshot().ExpiresAt)
}

func TestAuthService_Logout(t *testing.T) {
	c, store := newTestClient(t, "http://unused")
	signIn(t, store, "a", "r")

	c.Auth.Logout(context.Background())
	c.Auth.Logout(context.Background())
	assert.True(t, store.Snapshot().IsEmpty())
}

func TestEventService_CRUD(t *testing.T) {
	api := newFakeAPI(t)
	var gotForm models.EventFormData
	api.mux.HandleFunc("POST /events", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotForm))
		writeJSON(w, http.StatusCreated, models.Event{ID: "10", Title: gotForm.Title, Capacity: gotForm.Capacity})
	})
	api.mux.HandleFunc("PUT /events/10", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.Event{ID: "10", Title: "Renamed"})
	})
	deleted := false
	api.mux.HandleFunc("DELETE /events/10", func(w http.ResponseWriter, r *http.Request) {
		deleted = true
		w.WriteHeader(http.StatusNoContent)
	})
	cancelled := false
	api.mux.HandleFunc("DELETE /events/10/register", func(w http.ResponseWriter, r *http.Request) {
		cancelled = true
		w.WriteHeader(http.StatusNoContent)
	})

	c, store := newTestClient(t, api.srv.URL)
	signIn(t, store, "a", "r")
	ctx := context.Background()

	created, err := c.Events.Create(ctx, models.EventFormData{Title: "Gophercon", Capacity: 50, CategoryID: "2"})
	require.NoError(t, err)
	assert.Equal(t, "10", created.ID)
	assert.Equal(t, "2", gotForm.CategoryID)

	updated, err := c.Events.Update(ctx, "10", models.EventFormData{Title: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)

	require.NoError(t, c.Events.CancelRegistration(ctx, "10"))
	require.NoError(t, c.Events.Delete(ctx, "10"))
	assert.True(t, cancelled)
	assert.True(t, deleted)
}

func TestEventService_Registrations(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("GET /events/3/registrations", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.EventRegistration{
			{ID: "r1", User: models.Person{Email: "a@example.com"}, Status: models.RegistrationPending},
		})
	})
	api.mux.HandleFunc("PUT /events/3/registrations/r1", func(w http.ResponseWriter, r *http.Request) {
		var body models.RegistrationStatusUpdate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusOK, models.EventRegistration{ID: "r1", Status: body.Status})
	})

	c, store := newTestClient(t, api.srv.URL)
	signIn(t, store, "a", "r")
	ctx := context.Background()

	regs, err := c.Events.Registrations(ctx, "3")
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, models.RegistrationPending, regs[0].Status)

	reg, err := c.Events.UpdateRegistrationStatus(ctx, "3", "r1", models.RegistrationConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationConfirmed, reg.Status)
}

func TestCategoryService(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("GET /categories", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.EventCategory{{ID: "1", Name: "Tech", Color: "#3b82f6"}})
	})
	api.mux.HandleFunc("GET /categories/1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.EventCategory{ID: "1", Name: "Tech"})
	})
	api.mux.HandleFunc("POST /categories", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "id")
		writeJSON(w, http.StatusCreated, models.EventCategory{ID: "2", Name: "Music"})
	})
	api.mux.HandleFunc("DELETE /categories/2", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	c, store := newTestClient(t, api.srv.URL)
	signIn(t, store, "a", "r")
	ctx := context.Background()

	list, err := c.Categories.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	cat, err := c.Categories.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Tech", cat.Name)

	created, err := c.Categories.Create(ctx, models.EventCategory{ID: "ignored", Name: "Music"})
	require.NoError(t, err)
	assert.Equal(t, "2", created.ID)

	require.NoError(t, c.Categories.Delete(ctx, "2"))

	_, err = c.Categories.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProfileService_UpdateRefreshesSessionUser(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("PUT /profile", func(w http.ResponseWriter, r *http.Request) {
		var body models.UpdateProfileData
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusOK, models.UserProfile{
			User:  models.User{Firstname: body.Firstname, Lastname: "Lovelace", Email: "ada@example.com"},
			Phone: body.Phone,
		})
	})
	var change models.PasswordChange
	api.mux.HandleFunc("PUT /profile/password", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&change))
		w.WriteHeader(http.StatusNoContent)
	})

	c, store := newTestClient(t, api.srv.URL)
	signIn(t, store, "a", "r")
	ctx := context.Background()

	profile, err := c.Profile.Update(ctx, models.UpdateProfileData{Firstname: "Ada", Phone: "555"})
	require.NoError(t, err)
	assert.Equal(t, "555", profile.Phone)

	user := store.User()
	require.NotNil(t, user)
	assert.Equal(t, "Ada", user.Firstname)
	assert.Equal(t, "7", user.ID, "id kept from session")
	assert.Equal(t, []string{models.RoleUser}, user.Roles, "roles kept from session")
	assert.Equal(t, "a", store.AccessToken(), "tokens untouched")

	require.NoError(t, c.Profile.UpdatePassword(ctx, models.PasswordChange{CurrentPassword: "old", NewPassword: "New-pass1!"}))
	assert.Equal(t, "old", change.CurrentPassword)
	assert.Equal(t, "New-pass1!", change.NewPassword)
}
