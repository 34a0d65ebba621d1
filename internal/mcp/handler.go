package mcp

import (
	"encoding/json"
	"net/http"

	"github.com/bobmcallan/events-portal/internal/client"
	"github.com/bobmcallan/events-portal/internal/common"
	"github.com/bobmcallan/events-portal/internal/config"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Handler is the HTTP handler for the MCP endpoint.
// It wraps mcp-go's StreamableHTTPServer and delegates to it.
type Handler struct {
	streamable *mcpserver.StreamableHTTPServer
	client     *client.Client
	logger     *common.Logger
}

// NewServer builds the MCP server with every events tool registered.
func NewServer(c *client.Client, logger *common.Logger) *mcpserver.MCPServer {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	mcpSrv := mcpserver.NewMCPServer(
		"events-portal",
		config.GetVersion(),
		mcpserver.WithToolCapabilities(true),
	)
	n := RegisterTools(mcpSrv, c, logger)
	logger.Debug().Int("tools", n).Msg("MCP tools registered")
	return mcpSrv
}

// NewHandler creates the MCP endpoint served by the portal.
func NewHandler(c *client.Client, logger *common.Logger) *Handler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	streamable := mcpserver.NewStreamableHTTPServer(NewServer(c, logger),
		mcpserver.WithStateLess(true),
	)

	logger.Info().Str("api_url", c.Gateway.BaseURL()).Msg("MCP handler initialized")

	return &Handler{
		streamable: streamable,
		client:     c,
		logger:     logger,
	}
}

// ServeHTTP answers 401 until someone has logged in to the portal, then
// delegates to the StreamableHTTPServer. Tools act as the portal's user.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.client.Gateway.Session().IsAuthenticated() {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{
			"error":             "unauthorized",
			"error_description": "Log in to the portal before using the MCP endpoint",
		})
		return
	}

	h.streamable.ServeHTTP(w, r)
}
