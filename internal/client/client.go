package client

import (
	"github.com/bobmcallan/events-portal/internal/cache"
	"github.com/bobmcallan/events-portal/internal/common"
	"github.com/bobmcallan/events-portal/internal/config"
	"github.com/bobmcallan/events-portal/internal/session"
)

// Client bundles the API services around one Gateway.
type Client struct {
	Gateway    *Gateway
	Auth       *AuthService
	Events     *EventService
	Categories *CategoryService
	Profile    *ProfileService
}

// New creates a Client around gw.
func New(gw *Gateway) *Client {
	return &Client{
		Gateway:    gw,
		Auth:       &AuthService{gw: gw},
		Events:     &EventService{gw: gw},
		Categories: &CategoryService{gw: gw},
		Profile:    &ProfileService{gw: gw},
	}
}

// NewFromConfig builds the gateway, response cache and services described by cfg.
func NewFromConfig(cfg *config.Config, store *session.Store, logger *common.Logger) *Client {
	gw := NewGateway(cfg.API.URL, cfg.API.APIKey, store, logger,
		WithTimeout(cfg.API.GetTimeout()),
		WithCache(cache.New(cfg.Cache.GetTTL(), cfg.Cache.MaxEntries)),
	)
	return New(gw)
}
