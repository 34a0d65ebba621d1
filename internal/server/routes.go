package server

import (
	"net/http"

	"github.com/bobmcallan/events-portal/internal/handlers"
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all HTTP routes behind the middleware chain.
func (s *Server) setupRoutes() chi.Router {
	a := s.app
	r := chi.NewRouter()
	s.useMiddleware(r)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})

	// Static files (CSS, JS, images)
	r.Get("/static/*", a.PageHandler.StaticFileHandler)

	r.Get("/login", a.AuthHandler.HandleLoginPage)
	r.Post("/login", a.AuthHandler.HandleLogin)
	r.Get("/register", a.AuthHandler.HandleRegisterPage)
	r.Post("/register", a.AuthHandler.HandleRegister)
	r.Post("/logout", a.AuthHandler.HandleLogout)

	r.Group(func(r chi.Router) {
		r.Use(handlers.RequireAuth(a.Session))

		r.Get("/dashboard", a.DashboardHandler.ServeHTTP)

		r.Get("/events", a.EventsHandler.HandleList)
		r.Post("/events/{id}/register", a.EventsHandler.HandleRegister)
		r.Post("/events/{id}/cancel", a.EventsHandler.HandleCancel)

		r.Get("/profile", a.ProfileHandler.HandleProfile)
		r.Post("/profile", a.ProfileHandler.HandleSaveProfile)
		r.Post("/profile/password", a.ProfileHandler.HandleChangePassword)

		r.Get("/settings", a.SettingsHandler.HandleSettings)
		r.Post("/settings", a.SettingsHandler.HandleSaveSettings)

		r.Group(func(r chi.Router) {
			r.Use(handlers.RequireAdmin(a.Session, a.Flash))

			r.Get("/events/new", a.EventsHandler.HandleNew)
			r.Post("/events", a.EventsHandler.HandleCreate)
			r.Get("/events/{id}/edit", a.EventsHandler.HandleEdit)
			r.Post("/events/{id}/edit", a.EventsHandler.HandleUpdate)
			r.Post("/events/{id}/delete", a.EventsHandler.HandleDelete)
			r.Get("/events/{id}/registrations", a.EventsHandler.HandleRegistrations)
			r.Post("/events/{id}/registrations/{registrationId}", a.EventsHandler.HandleRegistrationStatus)
		})

		r.Get("/events/{id}", a.EventsHandler.HandleDetails)
	})

	// MCP endpoint (JSON-RPC over HTTP)
	if a.MCPHandler != nil {
		r.Handle("/mcp", a.MCPHandler)
	}

	// API routes
	r.Get("/api/health", a.HealthHandler.ServeHTTP)
	r.Get("/api/version", a.VersionHandler.ServeHTTP)
	r.Get("/api/server-health", a.ServerHealthHandler.ServeHTTP)

	// 404 handler for unmatched API routes
	r.HandleFunc("/api/*", s.handleNotFound)

	return r
}

// handleNotFound returns a JSON 404 for unmatched API routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":"Not Found","message":"The requested endpoint does not exist"}`))
}
