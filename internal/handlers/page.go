package handlers

import (
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bobmcallan/events-portal/internal/common"
	"github.com/bobmcallan/events-portal/internal/config"
	"github.com/bobmcallan/events-portal/internal/models"
	"github.com/bobmcallan/events-portal/internal/notify"
	"github.com/bobmcallan/events-portal/internal/session"
	"github.com/bobmcallan/events-portal/internal/validation"
)

// PageHandler renders HTML pages from Go templates and carries what every
// page needs: the session for the header and the flash queue.
type PageHandler struct {
	logger    *common.Logger
	templates *template.Template
	session   *session.Store
	flash     *notify.Flasher
	devMode   bool
}

// NewPageHandler loads templates from the pages directory.
func NewPageHandler(logger *common.Logger, store *session.Store, flash *notify.Flasher, devMode bool) *PageHandler {
	return NewPageHandlerFromDir(logger, store, flash, devMode, FindPagesDir())
}

// NewPageHandlerFromDir loads templates from pagesDir.
func NewPageHandlerFromDir(logger *common.Logger, store *session.Store, flash *notify.Flasher, devMode bool, pagesDir string) *PageHandler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	templates := template.Must(template.New("").Funcs(templateFuncs).ParseGlob(filepath.Join(pagesDir, "*.html")))
	template.Must(templates.ParseGlob(filepath.Join(pagesDir, "partials", "*.html")))

	return &PageHandler{
		logger:    logger,
		templates: templates,
		session:   store,
		flash:     flash,
		devMode:   devMode,
	}
}

var templateFuncs = template.FuncMap{
	"formatDate": formatDate,
	"inputDate":  inputDate,
	"spotsLeft":  func(e models.Event) int { return e.SpotsLeft() },
	"isFull":     func(e models.Event) bool { return e.IsFull() },
	"join":       strings.Join,
}

// formatDate renders an API date for display, or returns it unchanged when
// it cannot be parsed.
func formatDate(s string) string {
	t, ok := validation.ParseDate(s)
	if !ok {
		return s
	}
	return t.Format("Mon 2 Jan 2006, 15:04")
}

// inputDate renders an API date for a datetime-local input.
func inputDate(s string) string {
	t, ok := validation.ParseDate(s)
	if !ok {
		return ""
	}
	return t.Format("2006-01-02T15:04")
}

// FindPagesDir locates the pages directory.
func FindPagesDir() string {
	dirs := []string{
		"./pages",
		"../pages",
		"../../pages",
		".",
	}

	for _, dir := range dirs {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			abs, _ := filepath.Abs(dir)
			return abs
		}
	}

	return "."
}

// Render executes templateName with data plus the shared page fields.
func (h *PageHandler) Render(w http.ResponseWriter, r *http.Request, templateName string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	user := h.session.User()
	data["DevMode"] = h.devMode
	data["LoggedIn"] = h.session.IsAuthenticated()
	data["User"] = user
	data["IsAdmin"] = user.IsAdmin()
	data["PortalVersion"] = config.GetVersion()
	data["Year"] = time.Now().Year()
	if _, ok := data["CSRFToken"]; !ok {
		data["CSRFToken"] = csrfToken(r)
	}
	flashes := h.flash.Pop(w, r)
	if extra, ok := data["Messages"].([]notify.Message); ok {
		flashes = append(flashes, extra...)
	}
	data["Messages"] = flashes

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, templateName, data); err != nil {
		h.logger.Error().Str("template", templateName).Err(err).Msg("failed to render page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// ServePage creates a handler function for a page without its own data.
func (h *PageHandler) ServePage(templateName string, pageName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Render(w, r, templateName, map[string]any{"Page": pageName})
	}
}

// StaticFileHandler serves static files (CSS, JS, images).
func (h *PageHandler) StaticFileHandler(w http.ResponseWriter, r *http.Request) {
	staticDir := filepath.Join(FindPagesDir(), "static")

	path := strings.TrimPrefix(r.URL.Path, "/static/")
	fullPath := filepath.Join(staticDir, path)

	// Security: prevent directory traversal
	absStaticDir, _ := filepath.Abs(staticDir)
	absFullPath, _ := filepath.Abs(fullPath)
	if !strings.HasPrefix(absFullPath, absStaticDir+string(filepath.Separator)) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, fullPath)
}

// csrfToken returns the token issued in the _csrf cookie, if any.
func csrfToken(r *http.Request) string {
	if c, err := r.Cookie(CSRFCookieName); err == nil {
		return c.Value
	}
	return ""
}

// CSRFCookieName is the cookie the server's CSRF middleware issues.
const CSRFCookieName = "_csrf"
