// Package devapi is an in-memory implementation of the events REST API. The
// portal starts it in dev mode and the tests run against it.
package devapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bobmcallan/events-portal/internal/common"
	"github.com/bobmcallan/events-portal/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Options configures a Server.
type Options struct {
	APIKey     string
	JWTSecret  []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// BcryptCost defaults to bcrypt.MinCost to keep seeding fast.
	BcryptCost int
	Now        func() time.Time
}

// OptionsFromConfig maps the dev_api config section onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		APIKey:     cfg.API.APIKey,
		JWTSecret:  []byte(cfg.DevAPI.JWTSecret),
		AccessTTL:  cfg.DevAPI.GetAccessTTL(),
		RefreshTTL: cfg.DevAPI.GetRefreshTTL(),
	}
}

// Server serves the API from memory.
type Server struct {
	opts   Options
	logger *common.Logger
	store  *store
	tokens *tokenIssuer
	router chi.Router
	http   *http.Server
}

// New creates a Server with seeded users, categories and events.
func New(opts Options, logger *common.Logger) (*Server, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 15 * time.Minute
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 7 * 24 * time.Hour
	}
	if len(opts.JWTSecret) == 0 {
		return nil, errors.New("devapi: jwt secret is required")
	}

	st, err := newStore(opts.BcryptCost, opts.Now)
	if err != nil {
		return nil, fmt.Errorf("devapi: failed to seed data: %w", err)
	}

	s := &Server{
		opts:   opts,
		logger: logger,
		store:  st,
		tokens: newTokenIssuer(opts.JWTSecret, opts.AccessTTL, opts.RefreshTTL, opts.Now),
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAPIKey)
		r.Post("/login-check", s.handleLogin)
		r.Post("/register", s.handleRegister)
		r.Post("/token/refresh", s.handleRefresh)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireBearer)

		r.Get("/events", s.handleListEvents)
		r.Get("/events/{id}", s.handleGetEvent)
		r.Post("/events/{id}/register", s.handleRegisterForEvent)
		r.Delete("/events/{id}/register", s.handleCancelRegistration)

		r.Get("/categories", s.handleListCategories)
		r.Get("/categories/{id}", s.handleGetCategory)

		r.Get("/profile", s.handleGetProfile)
		r.Put("/profile", s.handleUpdateProfile)
		r.Put("/profile/password", s.handleUpdatePassword)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/events", s.handleCreateEvent)
			r.Put("/events/{id}", s.handleUpdateEvent)
			r.Delete("/events/{id}", s.handleDeleteEvent)
			r.Get("/events/{id}/registrations", s.handleListRegistrations)
			r.Put("/events/{id}/registrations/{registrationId}", s.handleUpdateRegistration)
			r.Post("/categories", s.handleCreateCategory)
			r.Put("/categories/{id}", s.handleUpdateCategory)
			r.Delete("/categories/{id}", s.handleDeleteCategory)
		})
	})

	return r
}

// Start listens on addr and serves until Shutdown. It returns once the
// listener is bound.
func (s *Server) Start(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("devapi: failed to listen on %s: %w", addr, err)
	}
	s.http = &http.Server{
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	url := "http://" + ln.Addr().String()
	s.logger.Info().Str("url", url).Msg("development API listening")

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("development API stopped")
		}
	}()
	return url, nil
}

// Shutdown stops a server started with Start.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
