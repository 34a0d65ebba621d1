package devapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/bobmcallan/events-portal/internal/models"
	"github.com/bobmcallan/events-portal/internal/validation"
	"github.com/go-chi/chi/v5"
)

func (s *Server) authResponse(w http.ResponseWriter, status int, u *userRecord) {
	access, expires, refresh, err := s.tokens.issue(u)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to issue token")
		writeMessage(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	user := u.User.Clone()
	writeJSON(w, status, models.AuthResponse{
		Token:           access,
		TokenExpiration: expires.Unix(),
		RefreshToken:    refresh,
		UserRoles:       user.Roles,
		User:            user,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds models.LoginCredentials
	if err := decode(w, r, &creds); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "Malformed request body", nil)
		return
	}
	u, ok := s.store.authenticate(creds.Email, creds.Password)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials.")
		return
	}
	s.logger.Info().Str("user_id", u.ID).Msg("devapi login")
	s.authResponse(w, http.StatusOK, u)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds models.RegisterCredentials
	if err := decode(w, r, &creds); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "Malformed request body", nil)
		return
	}
	if errs := validation.Register(creds, creds.Password); !errs.OK() {
		writeProblem(w, r, http.StatusUnprocessableEntity, "Validation failed", errs)
		return
	}
	user, err := s.store.register(creds)
	if errors.Is(err, errEmailTaken) {
		writeProblem(w, r, http.StatusUnprocessableEntity, "Validation failed", validation.Errors{"email": err.Error()})
		return
	}
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := decode(w, r, &req); err != nil || req.RefreshToken == "" {
		writeMessage(w, http.StatusUnauthorized, "Missing refresh token")
		return
	}
	userID, err := s.tokens.redeem(req.RefreshToken)
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	u, ok := s.store.user(userID)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	s.authResponse(w, http.StatusOK, u)
}

// storeError maps store errors onto responses.
func (s *Server) storeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errNotFound):
		writeProblem(w, r, http.StatusNotFound, "Resource not found", nil)
	case errors.Is(err, errAlreadyRegistered), errors.Is(err, errEventFull), errors.Is(err, errNotOpen),
		errors.Is(err, errNotRegistered), errors.Is(err, errBadPassword):
		writeProblem(w, r, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, errEmailTaken):
		writeProblem(w, r, http.StatusUnprocessableEntity, "Validation failed", validation.Errors{"email": err.Error()})
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("devapi request failed")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

func viewer(r *http.Request) string {
	if c := claimsFrom(r.Context()); c != nil {
		return c.Subject
	}
	return ""
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.listEvents(viewer(r)))
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	e, err := s.store.event(chi.URLParam(r, "id"), viewer(r))
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) decodeEvent(w http.ResponseWriter, r *http.Request) (models.EventFormData, bool) {
	var f models.EventFormData
	if err := decode(w, r, &f); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "Malformed request body", nil)
		return f, false
	}
	if errs := validation.Event(f, s.opts.Now()); !errs.OK() {
		writeProblem(w, r, http.StatusUnprocessableEntity, "Validation failed", errs)
		return f, false
	}
	if t, ok := validation.ParseDate(f.Date); ok {
		f.Date = t.UTC().Format(time.RFC3339)
	}
	if t, ok := validation.ParseDate(f.EndDate); ok {
		f.EndDate = t.UTC().Format(time.RFC3339)
	}
	return f, true
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	f, ok := s.decodeEvent(w, r)
	if !ok {
		return
	}
	e, err := s.store.addEvent(viewer(r), f)
	if errors.Is(err, errNotFound) {
		writeProblem(w, r, http.StatusUnprocessableEntity, "Validation failed", validation.Errors{"categoryId": "Unknown category"})
		return
	}
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	f, ok := s.decodeEvent(w, r)
	if !ok {
		return
	}
	e, err := s.store.updateEvent(chi.URLParam(r, "id"), viewer(r), f)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.store.deleteEvent(chi.URLParam(r, "id")); err != nil {
		s.storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRegisterForEvent(w http.ResponseWriter, r *http.Request) {
	reg, err := s.store.registerUser(chi.URLParam(r, "id"), viewer(r))
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

func (s *Server) handleCancelRegistration(w http.ResponseWriter, r *http.Request) {
	if err := s.store.cancelRegistration(chi.URLParam(r, "id"), viewer(r)); err != nil {
		s.storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := s.store.listRegistrations(chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

func (s *Server) handleUpdateRegistration(w http.ResponseWriter, r *http.Request) {
	var body models.RegistrationStatusUpdate
	if err := decode(w, r, &body); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "Malformed request body", nil)
		return
	}
	if errs := validation.RegistrationStatus(string(body.Status)); !errs.OK() {
		writeProblem(w, r, http.StatusUnprocessableEntity, "Validation failed", errs)
		return
	}
	reg, err := s.store.setRegistrationStatus(chi.URLParam(r, "id"), chi.URLParam(r, "registrationId"), body.Status)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.listCategories())
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.category(chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func decodeCategory(w http.ResponseWriter, r *http.Request) (models.EventCategory, bool) {
	var c models.EventCategory
	if err := decode(w, r, &c); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "Malformed request body", nil)
		return c, false
	}
	errs := validation.Errors{}
	if len(c.Name) < 2 {
		errs.Add("name", "Name must be at least 2 characters")
	}
	if c.Color == "" {
		errs.Add("color", "Color is required")
	}
	if !errs.OK() {
		writeProblem(w, r, http.StatusUnprocessableEntity, "Validation failed", errs)
		return c, false
	}
	return c, true
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeCategory(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, s.store.addCategory(c))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeCategory(w, r)
	if !ok {
		return
	}
	out, err := s.store.updateCategory(chi.URLParam(r, "id"), c)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.store.deleteCategory(chi.URLParam(r, "id")); err != nil {
		s.storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.profile(viewer(r))
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var d models.UpdateProfileData
	if err := decode(w, r, &d); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "Malformed request body", nil)
		return
	}
	if errs := validation.Profile(d); !errs.OK() {
		writeProblem(w, r, http.StatusUnprocessableEntity, "Validation failed", errs)
		return
	}
	p, err := s.store.updateProfile(viewer(r), d)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var c models.PasswordChange
	if err := decode(w, r, &c); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "Malformed request body", nil)
		return
	}
	if errs := validation.PasswordChange(c, c.NewPassword); !errs.OK() {
		writeProblem(w, r, http.StatusUnprocessableEntity, "Validation failed", errs)
		return
	}
	if err := s.store.changePassword(viewer(r), c); err != nil {
		s.storeError(w, r, err)
		return
	}
	s.tokens.revokeUser(viewer(r))
	w.WriteHeader(http.StatusNoContent)
}
