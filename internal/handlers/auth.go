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

// AuthHandler serves login, registration and logout.
type AuthHandler struct {
	logger *common.Logger
	pages  *PageHandler
	client *client.Client
	flash  *notify.Flasher
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(logger *common.Logger, pages *PageHandler, c *client.Client, flash *notify.Flasher) *AuthHandler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &AuthHandler{logger: logger, pages: pages, client: c, flash: flash}
}

// HandleLoginPage serves GET /login. An already valid session skips the form.
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	redirect := SafeRedirect(r.URL.Query().Get("redirect"), "")
	if h.client.Gateway.Session().CheckAuth(r.Context()) {
		http.Redirect(w, r, SafeRedirect(redirect, "/dashboard"), http.StatusFound)
		return
	}

	data := map[string]any{
		"Page":     "login",
		"Redirect": redirect,
		"Email":    "",
		"Errors":   validation.Errors{},
	}
	if r.URL.Query().Get("session") == "expired" {
		data["Messages"] = []notify.Message{{Kind: notify.KindInfo, Text: notify.TextSessionExpired}}
	}
	h.pages.Render(w, r, "login.html", data)
}

// HandleLogin serves POST /login.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	creds := models.LoginCredentials{
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
	}
	redirect := SafeRedirect(r.FormValue("redirect"), "")

	render := func(errs validation.Errors, msg string) {
		data := map[string]any{
			"Page":     "login",
			"Redirect": redirect,
			"Email":    creds.Email,
			"Errors":   errs,
		}
		if msg != "" {
			data["Messages"] = []notify.Message{{Kind: notify.KindError, Text: msg}}
		}
		h.pages.Render(w, r, "login.html", data)
	}

	if errs := validation.Login(creds); !errs.OK() {
		render(errs, "")
		return
	}

	if _, err := h.client.Auth.Login(r.Context(), creds); err != nil {
		common.LoggerFromContext(r.Context(), h.logger).Warn().Err(err).Str("email", creds.Email).Msg("login failed")
		msg := notify.ErrorText(err)
		if client.IsStatus(err, http.StatusUnauthorized) {
			msg = "Invalid email or password."
		}
		render(validation.Errors{}, msg)
		return
	}

	user := h.client.Gateway.Session().User()
	h.flash.Success(w, r, "Welcome back, "+user.FullName()+"!")
	http.Redirect(w, r, SafeRedirect(redirect, "/dashboard"), http.StatusFound)
}

// HandleRegisterPage serves GET /register.
func (h *AuthHandler) HandleRegisterPage(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, "register.html", map[string]any{
		"Page":   "register",
		"Form":   models.RegisterCredentials{},
		"Errors": validation.Errors{},
	})
}

// HandleRegister serves POST /register. A 400 from the API means the email
// is taken.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	creds := models.RegisterCredentials{
		Firstname: strings.TrimSpace(r.FormValue("firstname")),
		Lastname:  strings.TrimSpace(r.FormValue("lastname")),
		Email:     strings.TrimSpace(r.FormValue("email")),
		Password:  r.FormValue("password"),
	}

	errs := validation.Register(creds, r.FormValue("confirmPassword"))
	var messages []notify.Message
	if errs.OK() {
		err := h.client.Auth.Register(r.Context(), creds)
		if err == nil {
			h.logger.Info().Str("email", creds.Email).Msg("account registered")
			h.flash.Success(w, r, "Registration successful! Please log in.")
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		var fields map[string]string
		if apiErr, ok := client.AsAPIError(err); ok {
			fields = apiErr.FieldErrors()
		}
		for field, msg := range fields {
			errs.Add(field, msg)
		}
		switch {
		case len(fields) > 0:
		case client.IsStatus(err, http.StatusBadRequest):
			errs.Add("email", "This email is already registered.")
		default:
			messages = append(messages, notify.Message{Kind: notify.KindError, Text: notify.ErrorText(err)})
		}
	}

	creds.Password = ""
	h.pages.Render(w, r, "register.html", map[string]any{
		"Page":     "register",
		"Form":     creds,
		"Errors":   errs,
		"Messages": messages,
	})
}

// HandleLogout clears the session and returns to the login page.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.client.Auth.Logout(r.Context())
	h.flash.Info(w, r, "You have been logged out.")
	http.Redirect(w, r, "/login", http.StatusFound)
}
