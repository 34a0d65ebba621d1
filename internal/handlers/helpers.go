package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/bobmcallan/events-portal/internal/client"
	"github.com/bobmcallan/events-portal/internal/common"
	"github.com/bobmcallan/events-portal/internal/notify"
	"github.com/bobmcallan/events-portal/internal/session"
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method || (method == http.MethodGet && r.Method == http.MethodHead) {
		return true
	}
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// SafeRedirect returns target when it is a local path, otherwise fallback.
func SafeRedirect(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	return target
}

// LoginURL builds the login page address that returns to next afterwards.
func LoginURL(next string, expired bool) string {
	q := url.Values{}
	if expired {
		q.Set("session", "expired")
	}
	if next = SafeRedirect(next, ""); next != "" && next != "/login" {
		q.Set("redirect", next)
	}
	if len(q) == 0 {
		return "/login"
	}
	return "/login?" + q.Encode()
}

// returnPath is where the user goes back to after logging in. Form posts
// return to the page that submitted them.
func returnPath(r *http.Request) string {
	if r.Method == http.MethodGet {
		return r.URL.RequestURI()
	}
	if u, err := url.Parse(r.Referer()); err == nil && u.Path != "" {
		return u.RequestURI()
	}
	return "/dashboard"
}

// RequireAuth redirects to the login page unless the session is valid.
func RequireAuth(store *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !store.CheckAuth(r.Context()) {
				http.Redirect(w, r, LoginURL(returnPath(r), false), http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin sends non-admin users back to the dashboard.
func RequireAdmin(store *session.Store, flash *notify.Flasher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !store.IsAdmin() {
				flash.Error(w, r, "You do not have permission to view that page.")
				http.Redirect(w, r, "/dashboard", http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// apiFailure reports a failed API call. An expired session goes to the login
// page, anything else is flashed and redirected to fallback.
func apiFailure(w http.ResponseWriter, r *http.Request, logger *common.Logger, flash *notify.Flasher, err error, fallback string) {
	if errors.Is(err, client.ErrSessionExpired) {
		http.Redirect(w, r, LoginURL(returnPath(r), true), http.StatusFound)
		return
	}
	common.LoggerFromContext(r.Context(), logger).Warn().Err(err).Str("path", r.URL.Path).Msg("api call failed")
	flash.Error(w, r, notify.ErrorText(err))
	http.Redirect(w, r, fallback, http.StatusFound)
}

func isExpired(err error) bool {
	return errors.Is(err, client.ErrSessionExpired)
}
