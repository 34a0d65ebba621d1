package handlers

import (
	"net/http"

	"github.com/bobmcallan/events-portal/internal/client"
	"github.com/bobmcallan/events-portal/internal/common"
	"github.com/bobmcallan/events-portal/internal/models"
	"github.com/bobmcallan/events-portal/internal/notify"
)

// SettingsHandler serves the notification preferences page.
type SettingsHandler struct {
	logger *common.Logger
	pages  *PageHandler
	client *client.Client
	flash  *notify.Flasher
}

func NewSettingsHandler(logger *common.Logger, pages *PageHandler, c *client.Client, flash *notify.Flasher) *SettingsHandler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &SettingsHandler{logger: logger, pages: pages, client: c, flash: flash}
}

// HandleSettings serves GET /settings.
func (h *SettingsHandler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	profile, err := h.client.Profile.Get(r.Context())
	if err != nil {
		apiFailure(w, r, h.logger, h.flash, err, "/dashboard")
		return
	}
	snap := h.client.Gateway.Session().Snapshot()
	h.pages.Render(w, r, "settings.html", map[string]any{
		"Page":        "settings",
		"Preferences": profile.Preferences,
		"ExpiresAt":   snap.ExpiryTime(),
	})
}

// HandleSaveSettings serves POST /settings. Preferences are saved through
// the profile endpoint, so the rest of the profile is sent back unchanged.
func (h *SettingsHandler) HandleSaveSettings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	profile, err := h.client.Profile.Get(r.Context())
	if err != nil {
		apiFailure(w, r, h.logger, h.flash, err, "/settings")
		return
	}
	data := profileForm(profile)
	data.Preferences = &models.UserPreferences{
		EmailNotifications:     r.FormValue("emailNotifications") == "on",
		EventReminders:         r.FormValue("eventReminders") == "on",
		NewsletterSubscription: r.FormValue("newsletterSubscription") == "on",
	}

	if _, err := h.client.Profile.Update(r.Context(), data); err != nil {
		apiFailure(w, r, h.logger, h.flash, err, "/settings")
		return
	}
	h.flash.Success(w, r, "Settings saved successfully!")
	http.Redirect(w, r, "/settings", http.StatusFound)
}
