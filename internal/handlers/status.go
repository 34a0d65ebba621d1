package handlers

import (
	"context"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/bobmcallan/events-portal/internal/common"
	"github.com/bobmcallan/events-portal/internal/config"
)

// HealthHandler serves GET /api/health for load balancers and the UI footer.
type HealthHandler struct {
	logger  *common.Logger
	started time.Time
}

func NewHealthHandler(logger *common.Logger) *HealthHandler {
	return &HealthHandler{logger: logger, started: time.Now()}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"uptime":  time.Since(h.started).Truncate(time.Second).String(),
		"version": config.GetVersion(),
	})
}

// VersionHandler serves GET /api/version.
type VersionHandler struct {
	logger *common.Logger
}

func NewVersionHandler(logger *common.Logger) *VersionHandler {
	return &VersionHandler{logger: logger}
}

func (h *VersionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version":    config.GetVersion(),
		"build":      config.GetBuild(),
		"git_commit": config.GetGitCommit(),
		"go":         runtime.Version(),
	})
}

const apiProbeTimeout = 3 * time.Second

// ServerHealthHandler serves GET /api/server-health by probing the events
// API. Any answer below 500 counts as up.
type ServerHealthHandler struct {
	logger *common.Logger
	probe  string
	client *http.Client
}

func NewServerHealthHandler(logger *common.Logger, apiURL string) *ServerHealthHandler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &ServerHealthHandler{
		logger: logger,
		probe:  strings.TrimRight(apiURL, "/") + "/health",
		client: &http.Client{Timeout: apiProbeTimeout},
	}
}

func (h *ServerHealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	start := time.Now()
	up := h.check(r.Context())
	body := map[string]string{"status": "down", "latency": time.Since(start).Round(time.Millisecond).String()}
	code := http.StatusServiceUnavailable
	if up {
		body["status"] = "ok"
		code = http.StatusOK
	}
	WriteJSON(w, code, body)
}

func (h *ServerHealthHandler) check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, apiProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.probe, nil)
	if err != nil {
		return false
	}
	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Debug().Err(err).Str("url", h.probe).Msg("events API unreachable")
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}
