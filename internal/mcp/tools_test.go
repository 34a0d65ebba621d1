package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bobmcallan/events-portal/internal/client"
	"github.com/bobmcallan/events-portal/internal/common"
	"github.com/bobmcallan/events-portal/internal/devapi"
	"github.com/bobmcallan/events-portal/internal/models"
	"github.com/bobmcallan/events-portal/internal/session"
	"github.com/bobmcallan/events-portal/internal/storage/memory"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

func newTestClient(t *testing.T, email, password string) *client.Client {
	t.Helper()
	api, err := devapi.New(devapi.Options{APIKey: "k", JWTSecret: []byte("s")}, nil)
	if err != nil {
		t.Fatalf("devapi: %v", err)
	}
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	store := session.New(memory.NewKVStorage(), nil)
	c := client.New(client.NewGateway(srv.URL, "k", store, common.NewSilentLogger()))
	if email != "" {
		if _, err := c.Auth.Login(context.Background(), models.LoginCredentials{Email: email, Password: password}); err != nil {
			t.Fatalf("login: %v", err)
		}
	}
	return c
}

func callTool(args map[string]any) mcpgo.CallToolRequest {
	var req mcpgo.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, r *mcpgo.CallToolResult) string {
	t.Helper()
	if len(r.Content) == 0 {
		t.Fatal("empty result")
	}
	return r.Content[0].(mcpgo.TextContent).Text
}

func TestWhoami(t *testing.T) {
	c := newTestClient(t, devapi.AdminEmail, devapi.AdminPassword)
	tl := &tools{client: c, logger: common.NewSilentLogger()}

	res, err := tl.whoami(t.Context(), callTool(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var who whoamiResult
	if err := json.Unmarshal([]byte(resultText(t, res)), &who); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if !who.Authenticated || !who.Admin || who.User.Email != devapi.AdminEmail {
		t.Errorf("unexpected whoami %+v", who)
	}
}

func TestListEvents_Filters(t *testing.T) {
	c := newTestClient(t, devapi.UserEmail, devapi.UserPassword)
	tl := &tools{client: c, logger: common.NewSilentLogger()}

	res, _ := tl.listEvents(t.Context(), callTool(map[string]any{"query": "workshop"}))
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	var events []models.Event
	if err := json.Unmarshal([]byte(resultText(t, res)), &events); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if len(events) != 1 || events[0].Title != "Go Workshop" {
		t.Errorf("expected only the workshop, got %+v", events)
	}
}

func TestRegisterAndCancel(t *testing.T) {
	c := newTestClient(t, devapi.UserEmail, devapi.UserPassword)
	tl := &tools{client: c, logger: common.NewSilentLogger()}
	ctx := t.Context()

	events, err := c.Events.List(ctx)
	if err != nil || len(events) == 0 {
		t.Fatalf("no events: %v", err)
	}
	id := events[0].ID

	if res, _ := tl.registerForEvent(ctx, callTool(map[string]any{"event_id": id})); res.IsError {
		t.Fatalf("register failed: %s", resultText(t, res))
	}
	res, _ := tl.registerForEvent(ctx, callTool(map[string]any{"event_id": id}))
	if !res.IsError || !strings.Contains(resultText(t, res), "already registered") {
		t.Errorf("expected duplicate registration error, got %s", resultText(t, res))
	}
	if res, _ := tl.cancelRegistration(ctx, callTool(map[string]any{"event_id": id})); res.IsError {
		t.Fatalf("cancel failed: %s", resultText(t, res))
	}
}

func TestGetEvent_RequiresID(t *testing.T) {
	c := newTestClient(t, devapi.UserEmail, devapi.UserPassword)
	tl := &tools{client: c, logger: common.NewSilentLogger()}

	res, _ := tl.getEvent(t.Context(), callTool(nil))
	if !res.IsError {
		t.Error("expected an error result without event_id")
	}

	res, _ = tl.getEvent(t.Context(), callTool(map[string]any{"event_id": "999"}))
	if !res.IsError || !strings.Contains(resultText(t, res), "not found") {
		t.Errorf("expected not found, got %s", resultText(t, res))
	}
}

func TestListRegistrations_RequiresAdmin(t *testing.T) {
	c := newTestClient(t, devapi.UserEmail, devapi.UserPassword)
	tl := &tools{client: c, logger: common.NewSilentLogger()}

	res, _ := tl.listRegistrations(t.Context(), callTool(map[string]any{"event_id": "3"}))
	if !res.IsError {
		t.Error("expected an error result for a non-admin session")
	}
}

func TestToolsWithoutSession(t *testing.T) {
	c := newTestClient(t, "", "")
	tl := &tools{client: c, logger: common.NewSilentLogger()}

	res, _ := tl.listCategories(t.Context(), callTool(nil))
	if !res.IsError || !strings.Contains(resultText(t, res), "session expired") {
		t.Errorf("expected session expired, got %s", resultText(t, res))
	}
}

func TestVersionToolHandler(t *testing.T) {
	c := newTestClient(t, "", "")

	res, err := VersionToolHandler(c)(t.Context(), callTool(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var v versionResult
	if err := json.Unmarshal([]byte(resultText(t, res)), &v); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if !v.APIUp {
		t.Error("expected the API to be reachable")
	}
	if v.Portal.Version == "" {
		t.Error("expected a portal version")
	}
}

func TestVersionToolHandler_HungAPI(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	prev := healthClient
	healthClient = &http.Client{Timeout: 50 * time.Millisecond}
	t.Cleanup(func() { healthClient = prev })

	store := session.New(memory.NewKVStorage(), nil)
	c := client.New(client.NewGateway(srv.URL, "k", store, common.NewSilentLogger()))

	done := make(chan *mcpgo.CallToolResult, 1)
	go func() {
		res, _ := VersionToolHandler(c)(context.Background(), callTool(nil))
		done <- res
	}()

	select {
	case res := <-done:
		var v versionResult
		if err := json.Unmarshal([]byte(resultText(t, res)), &v); err != nil {
			t.Fatalf("bad json: %v", err)
		}
		if v.APIUp {
			t.Error("a hung API should not count as reachable")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("get_version did not time out")
	}
}

func TestHandler_RequiresLogin(t *testing.T) {
	h := NewHandler(newTestClient(t, "", ""), nil)

	req := httptest.NewRequest("POST", "/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestHandler_ListsTools(t *testing.T) {
	h := NewHandler(newTestClient(t, devapi.UserEmail, devapi.UserPassword), nil)

	req := httptest.NewRequest("POST", "/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	for _, name := range []string{"get_version", "whoami", "list_events", "register_for_event", "list_registrations"} {
		if !strings.Contains(w.Body.String(), name) {
			t.Errorf("tools/list missing %s", name)
		}
	}
}
