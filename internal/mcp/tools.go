package mcp

import (
	"context"
	"time"

	"github.com/bobmcallan/events-portal/internal/client"
	"github.com/bobmcallan/events-portal/internal/common"
	"github.com/bobmcallan/events-portal/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterTools adds the events tools to s and returns how many were added.
func RegisterTools(s *server.MCPServer, c *client.Client, logger *common.Logger) int {
	t := &tools{client: c, logger: logger}
	entries := []server.ServerTool{
		{Tool: VersionTool(), Handler: VersionToolHandler(c)},
		{Tool: mcp.NewTool("whoami",
			mcp.WithDescription("Show the user the portal is logged in as."),
		), Handler: t.whoami},
		{Tool: mcp.NewTool("list_events",
			mcp.WithDescription("List events, optionally filtered by a search text, category id or status."),
			mcp.WithString("query", mcp.Description("Text matched against title, description and location")),
			mcp.WithString("category_id", mcp.Description("Only events in this category")),
			mcp.WithString("status", mcp.Description("draft, published, cancelled or completed"), mcp.Enum("draft", "published", "cancelled", "completed")),
		), Handler: t.listEvents},
		{Tool: mcp.NewTool("get_event",
			mcp.WithDescription("Get one event with capacity and registration state."),
			mcp.WithString("event_id", mcp.Required(), mcp.Description("Event id")),
		), Handler: t.getEvent},
		{Tool: mcp.NewTool("register_for_event",
			mcp.WithDescription("Register the current user for an event."),
			mcp.WithString("event_id", mcp.Required(), mcp.Description("Event id")),
		), Handler: t.registerForEvent},
		{Tool: mcp.NewTool("cancel_registration",
			mcp.WithDescription("Cancel the current user's registration for an event."),
			mcp.WithString("event_id", mcp.Required(), mcp.Description("Event id")),
		), Handler: t.cancelRegistration},
		{Tool: mcp.NewTool("list_categories",
			mcp.WithDescription("List event categories."),
		), Handler: t.listCategories},
		{Tool: mcp.NewTool("list_registrations",
			mcp.WithDescription("List registrations for an event. Requires an admin session."),
			mcp.WithString("event_id", mcp.Required(), mcp.Description("Event id")),
		), Handler: t.listRegistrations},
	}
	s.AddTools(entries...)
	return len(entries)
}

type tools struct {
	client *client.Client
	logger *common.Logger
}

type whoamiResult struct {
	Authenticated bool         `json:"authenticated"`
	User          *models.User `json:"user,omitempty"`
	Admin         bool         `json:"admin"`
	ExpiresAt     string       `json:"token_expires_at,omitempty"`
}

func (t *tools) whoami(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store := t.client.Gateway.Session()
	snap := store.Snapshot()
	res := whoamiResult{
		Authenticated: store.CheckAuth(ctx),
		User:          snap.User,
		Admin:         snap.User.IsAdmin(),
	}
	if snap.ExpiresAt > 0 {
		res.ExpiresAt = snap.ExpiryTime().UTC().Format(time.RFC3339)
	}
	return jsonResult(res), nil
}

func (t *tools) listEvents(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	events, err := t.client.Events.List(ctx)
	if err != nil {
		return apiErrorResult(err), nil
	}

	filter := models.EventFilter{
		Query:      r.GetString("query", ""),
		CategoryID: r.GetString("category_id", ""),
		Status:     models.EventStatus(r.GetString("status", "")),
	}
	out := filter.Apply(events)
	return jsonResult(out), nil
}

func (t *tools) getEvent(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := r.RequireString("event_id")
	if err != nil {
		return errorResult("Error: event_id parameter is required"), nil
	}
	event, err := t.client.Events.Get(ctx, id)
	if err != nil {
		return apiErrorResult(err), nil
	}
	return jsonResult(event), nil
}

func (t *tools) registerForEvent(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := r.RequireString("event_id")
	if err != nil {
		return errorResult("Error: event_id parameter is required"), nil
	}
	if err := t.client.Events.Register(ctx, id); err != nil {
		return apiErrorResult(err), nil
	}
	t.logger.Info().Str("event_id", id).Msg("registered for event via MCP")
	return mcp.NewToolResultText("Registered for event " + id), nil
}

func (t *tools) cancelRegistration(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := r.RequireString("event_id")
	if err != nil {
		return errorResult("Error: event_id parameter is required"), nil
	}
	if err := t.client.Events.CancelRegistration(ctx, id); err != nil {
		return apiErrorResult(err), nil
	}
	return mcp.NewToolResultText("Registration cancelled for event " + id), nil
}

func (t *tools) listCategories(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	categories, err := t.client.Categories.List(ctx)
	if err != nil {
		return apiErrorResult(err), nil
	}
	return jsonResult(categories), nil
}

func (t *tools) listRegistrations(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := r.RequireString("event_id")
	if err != nil {
		return errorResult("Error: event_id parameter is required"), nil
	}
	if !t.client.Gateway.Session().IsAdmin() {
		return errorResult("Error: listing registrations requires an admin session"), nil
	}
	regs, err := t.client.Events.Registrations(ctx, id)
	if err != nil {
		return apiErrorResult(err), nil
	}
	return jsonResult(regs), nil
}
