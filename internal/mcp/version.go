package mcp

import (
	"context"
	"net/http"
	"time"

	"github.com/bobmcallan/events-portal/internal/client"
	"github.com/bobmcallan/events-portal/internal/config"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// healthClient probes the API health endpoint outside the gateway.
var healthClient = &http.Client{Timeout: 3 * time.Second}

// versionInfo holds version fields for the portal.
type versionInfo struct {
	Version string `json:"version"`
	Build   string `json:"build"`
	Commit  string `json:"commit"`
}

type versionResult struct {
	Portal versionInfo `json:"events_portal"`
	APIURL string      `json:"api_url"`
	APIUp  bool        `json:"api_reachable"`
}

// VersionTool returns the mcp.Tool definition for get_version.
func VersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the events portal version and whether the events API answers. Use this to verify connectivity."),
	)
}

// VersionToolHandler reports the portal version. The API counts as
// reachable when it answers anything below 500.
func VersionToolHandler(c *client.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := versionResult{
			Portal: versionInfo{
				Version: config.GetVersion(),
				Build:   config.GetBuild(),
				Commit:  config.GetGitCommit(),
			},
			APIURL: c.Gateway.BaseURL(),
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Gateway.BaseURL()+"/health", nil)
		if err == nil {
			if resp, err := healthClient.Do(req); err == nil {
				resp.Body.Close()
				result.APIUp = resp.StatusCode < http.StatusInternalServerError
			}
		}

		return jsonResult(result), nil
	}
}
