package handlers

import (
	"net/http"
	"strings"

	"github.com/bobmcallan/events-portal/internal/client"
	"github.com/bobmcallan/events-portal/internal/common"
	"github.com/bobmcallan/events-portal/internal/models"
	"github.com/bobmcallan/events-portal/internal/notify"
	"github.com/bobmcallan/events-portal/internal/validation"
)

// ProfileHandler serves the profile page, profile updates and password
// changes.
type ProfileHandler struct {
	logger *common.Logger
	pages  *PageHandler
	client *client.Client
	flash  *notify.Flasher
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(logger *common.Logger, pages *PageHandler, c *client.Client, flash *notify.Flasher) *ProfileHandler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &ProfileHandler{logger: logger, pages: pages, client: c, flash: flash}
}

// HandleProfile serves GET /profile.
func (h *ProfileHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.client.Profile.Get(r.Context())
	if err != nil {
		apiFailure(w, r, h.logger, h.flash, err, "/dashboard")
		return
	}
	h.render(w, r, profileForm(profile), validation.Errors{}, validation.Errors{}, nil)
}

func (h *ProfileHandler) render(w http.ResponseWriter, r *http.Request, form models.UpdateProfileData, errs, pwErrs validation.Errors, messages []notify.Message) {
	h.pages.Render(w, r, "profile.html", map[string]any{
		"Page":           "profile",
		"Form":           form,
		"Errors":         errs,
		"PasswordErrors": pwErrs,
		"Messages":       messages,
	})
}

func profileForm(p *models.UserProfile) models.UpdateProfileData {
	prefs := p.Preferences
	return models.UpdateProfileData{
		Firstname:    p.Firstname,
		Lastname:     p.Lastname,
		Email:        p.Email,
		Phone:        p.Phone,
		Organization: p.Organization,
		Bio:          p.Bio,
		Preferences:  &prefs,
	}
}

// HandleSaveProfile serves POST /profile.
func (h *ProfileHandler) HandleSaveProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	form := models.UpdateProfileData{
		Firstname:    strings.TrimSpace(r.FormValue("firstname")),
		Lastname:     strings.TrimSpace(r.FormValue("lastname")),
		Email:        strings.TrimSpace(r.FormValue("email")),
		Phone:        strings.TrimSpace(r.FormValue("phone")),
		Organization: strings.TrimSpace(r.FormValue("organization")),
		Bio:          strings.TrimSpace(r.FormValue("bio")),
	}
	if errs := validation.Profile(form); !errs.OK() {
		h.render(w, r, form, errs, validation.Errors{}, nil)
		return
	}

	if _, err := h.client.Profile.Update(r.Context(), form); err != nil {
		if isExpired(err) {
			apiFailure(w, r, h.logger, h.flash, err, "/profile")
			return
		}
		errs := validation.Errors{}
		if apiErr, ok := client.AsAPIError(err); ok {
			for field, msg := range apiErr.FieldErrors() {
				errs.Add(field, msg)
			}
		}
		h.render(w, r, form, errs, validation.Errors{}, []notify.Message{{Kind: notify.KindError, Text: notify.ErrorText(err)}})
		return
	}

	h.flash.Success(w, r, "Profile updated successfully!")
	http.Redirect(w, r, "/profile", http.StatusFound)
}

// HandleChangePassword serves POST /profile/password.
func (h *ProfileHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	change := models.PasswordChange{
		CurrentPassword: r.FormValue("currentPassword"),
		NewPassword:     r.FormValue("newPassword"),
	}
	pwErrs := validation.PasswordChange(change, r.FormValue("confirmPassword"))
	if pwErrs.OK() {
		err := h.client.Profile.UpdatePassword(r.Context(), change)
		if err == nil {
			h.logger.Info().Msg("password changed")
			h.flash.Success(w, r, "Password updated successfully!")
			http.Redirect(w, r, "/profile", http.StatusFound)
			return
		}
		if isExpired(err) {
			apiFailure(w, r, h.logger, h.flash, err, "/profile")
			return
		}
		if client.IsStatus(err, http.StatusBadRequest) {
			pwErrs.Add("currentPassword", "Current password is incorrect")
		} else {
			h.flash.Error(w, r, notify.ErrorText(err))
			http.Redirect(w, r, "/profile", http.StatusFound)
			return
		}
	}

	profile, err := h.client.Profile.Get(r.Context())
	if err != nil {
		apiFailure(w, r, h.logger, h.flash, err, "/dashboard")
		return
	}
	h.render(w, r, profileForm(profile), validation.Errors{}, pwErrs, nil)
}
