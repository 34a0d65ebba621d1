package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bobmcallan/events-portal/internal/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// errorResult creates an MCP error result.
func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}

// apiErrorResult describes a failed API call.
func apiErrorResult(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, client.ErrSessionExpired):
		return errorResult("Error: session expired, log in again")
	case errors.Is(err, client.ErrNotFound):
		return errorResult("Error: not found")
	}
	if apiErr, ok := client.AsAPIError(err); ok {
		return errorResult(fmt.Sprintf("Error: %s (HTTP %d)", apiErr.Message(), apiErr.StatusCode))
	}
	return errorResult(fmt.Sprintf("Error: %v", err))
}

// jsonResult encodes v as the text content of a result.
func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("failed to marshal result")
	}
	return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(string(out))}}
}
