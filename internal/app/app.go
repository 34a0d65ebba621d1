package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/events-portal/internal/client"
	"github.com/bobmcallan/events-portal/internal/common"
	"github.com/bobmcallan/events-portal/internal/config"
	"github.com/bobmcallan/events-portal/internal/devapi"
	"github.com/bobmcallan/events-portal/internal/handlers"
	"github.com/bobmcallan/events-portal/internal/interfaces"
	"github.com/bobmcallan/events-portal/internal/mcp"
	"github.com/bobmcallan/events-portal/internal/notify"
	"github.com/bobmcallan/events-portal/internal/session"
	"github.com/bobmcallan/events-portal/internal/storage"
	"github.com/hashicorp/go-multierror"
)

// App holds all application components and dependencies.
type App struct {
	Config  *config.Config
	Logger  *common.Logger
	Storage interfaces.StorageManager
	Session *session.Store
	Client  *client.Client
	Flash   *notify.Flasher
	DevAPI  *devapi.Server

	// HTTP handlers
	PageHandler         *handlers.PageHandler
	HealthHandler       *handlers.HealthHandler
	VersionHandler      *handlers.VersionHandler
	AuthHandler         *handlers.AuthHandler
	DashboardHandler    *handlers.DashboardHandler
	EventsHandler       *handlers.EventsHandler
	ProfileHandler      *handlers.ProfileHandler
	SettingsHandler     *handlers.SettingsHandler
	ServerHealthHandler *handlers.ServerHealthHandler
	MCPHandler          *mcp.Handler
}

// New initializes the application with all dependencies.
func New(cfg *config.Config, logger *common.Logger) (*App, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	// Validate environment setting
	env := strings.ToLower(strings.TrimSpace(cfg.Environment))
	if cfg.IsDevMode() {
		logger.Warn().Msg("RUNNING IN DEV MODE, serving the in-memory events API, do not use in production")
		if err := a.startDevAPI(); err != nil {
			return nil, err
		}
	} else if env != "prod" && env != "" {
		logger.Warn().
			Str("environment", cfg.Environment).
			Msg("unrecognized environment value, defaulting to prod behavior")
	}

	if err := a.initSession(); err != nil {
		a.Close()
		return nil, err
	}

	a.Client = client.NewFromConfig(cfg, a.Session, logger)
	a.Client.Gateway.OnSessionExpired(func() {
		logger.Warn().Msg("session expired, the user must log in again")
	})
	a.Flash = notify.NewFlasher([]byte(cfg.Auth.CookieSecret), logger)

	a.initHandlers()

	logger.Info().Str("api_url", cfg.API.URL).Msg("application initialization complete")

	return a, nil
}

// startDevAPI runs the in-memory API and points the client at it.
func (a *App) startDevAPI() error {
	api, err := devapi.New(devapi.OptionsFromConfig(a.Config), a.Logger)
	if err != nil {
		return err
	}
	url, err := api.Start(fmt.Sprintf("127.0.0.1:%d", a.Config.DevAPI.Port))
	if err != nil {
		return err
	}
	a.DevAPI = api
	a.Config.API.URL = url
	a.Logger.Info().
		Str("url", url).
		Str("admin", devapi.AdminEmail).
		Str("user", devapi.UserEmail).
		Msg("development API seeded")
	return nil
}

// initSession opens the configured backend and restores the saved session.
func (a *App) initSession() error {
	mgr, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to open session storage: %w", err)
	}
	a.Storage = mgr

	a.Session = session.New(mgr.KeyValueStorage(), a.Logger, session.WithKey(a.Config.Session.Key))
	if err := a.Session.Load(context.Background()); err != nil {
		a.Logger.Warn().Err(err).Msg("failed to restore session, starting logged out")
	}
	return nil
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers() {
	devMode := a.Config.IsDevMode()

	a.PageHandler = handlers.NewPageHandler(a.Logger, a.Session, a.Flash, devMode)
	a.HealthHandler = handlers.NewHealthHandler(a.Logger)
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)
	a.ServerHealthHandler = handlers.NewServerHealthHandler(a.Logger, a.Config.API.URL)

	a.AuthHandler = handlers.NewAuthHandler(a.Logger, a.PageHandler, a.Client, a.Flash)
	a.DashboardHandler = handlers.NewDashboardHandler(a.Logger, a.PageHandler, a.Client, a.Flash)
	a.EventsHandler = handlers.NewEventsHandler(a.Logger, a.PageHandler, a.Client, a.Flash)
	a.ProfileHandler = handlers.NewProfileHandler(a.Logger, a.PageHandler, a.Client, a.Flash)
	a.SettingsHandler = handlers.NewSettingsHandler(a.Logger, a.PageHandler, a.Client, a.Flash)

	a.MCPHandler = mcp.NewHandler(a.Client, a.Logger)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// Close closes all application resources.
func (a *App) Close() error {
	var result *multierror.Error

	if a.DevAPI != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.DevAPI.Shutdown(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("dev api: %w", err))
		}
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("storage: %w", err))
		}
	}

	return result.ErrorOrNil()
}
