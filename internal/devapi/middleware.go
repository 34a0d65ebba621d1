package devapi

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/bobmcallan/events-portal/internal/models"
	"github.com/go-chi/chi/v5/middleware"
)

type claimsKey struct{}

func claimsFrom(ctx context.Context) *accessClaims {
	c, _ := ctx.Value(claimsKey{}).(*accessClaims)
	return c
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("correlation_id", r.Header.Get("X-Correlation-ID")).
			Dur("duration", time.Since(start)).
			Msg("devapi request")
	})
}

// requireAPIKey checks X-API-TOKEN when an API key is configured.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.APIKey != "" && r.Header.Get("X-API-TOKEN") != s.opts.APIKey {
			writeMessage(w, http.StatusUnauthorized, "Invalid API token.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeMessage(w, http.StatusUnauthorized, "JWT Token not found")
			return
		}
		claims, err := s.tokens.verify(token)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Expired JWT Token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := claimsFrom(r.Context())
		if c == nil || !slices.Contains(c.Roles, models.RoleAdmin) {
			writeMessage(w, http.StatusForbidden, "Access denied.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
