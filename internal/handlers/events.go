package handlers

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/events-portal/internal/client"
	"github.com/bobmcallan/events-portal/internal/common"
	"github.com/bobmcallan/events-portal/internal/models"
	"github.com/bobmcallan/events-portal/internal/notify"
	"github.com/bobmcallan/events-portal/internal/validation"
	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

// EventsHandler serves the event pages and the registration actions.
type EventsHandler struct {
	logger *common.Logger
	pages  *PageHandler
	client *client.Client
	flash  *notify.Flasher
	now    func() time.Time
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(logger *common.Logger, pages *PageHandler, c *client.Client, flash *notify.Flasher) *EventsHandler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &EventsHandler{logger: logger, pages: pages, client: c, flash: flash, now: time.Now}
}

// HandleList serves GET /events. Users who are not admins only see
// published events.
func (h *EventsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter := models.EventFilter{
		Query:      r.URL.Query().Get("q"),
		CategoryID: r.URL.Query().Get("category"),
		Status:     models.EventStatus(r.URL.Query().Get("status")),
	}
	if !h.client.Gateway.Session().IsAdmin() {
		filter.Status = models.EventPublished
	}

	var events []models.Event
	var categories []models.EventCategory
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		events, err = h.client.Events.List(ctx)
		return err
	})
	g.Go(func() error {
		categories, _ = h.client.Categories.List(ctx)
		return nil
	})
	var messages []notify.Message
	if err := g.Wait(); err != nil {
		if isExpired(err) {
			apiFailure(w, r, h.logger, h.flash, err, "/dashboard")
			return
		}
		messages = append(messages, notify.Message{Kind: notify.KindError, Text: notify.ErrorText(err)})
	}

	h.pages.Render(w, r, "events.html", map[string]any{
		"Page":       "events",
		"Events":     filter.Apply(events),
		"Categories": categories,
		"Filter":     filter,
		"Statuses":   models.EventStatuses,
		"Messages":   messages,
	})
}

// HandleDetails serves GET /events/{id}. Admins also get the registration
// list, loaded alongside the event.
func (h *EventsHandler) HandleDetails(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	admin := h.client.Gateway.Session().IsAdmin()

	var event *models.Event
	var regs []models.EventRegistration
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		event, err = h.client.Events.Get(ctx, id)
		return err
	})
	if admin {
		g.Go(func() error {
			var err error
			regs, err = h.client.Events.Registrations(ctx, id)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		if client.IsStatus(err, http.StatusNotFound) {
			h.flash.Error(w, r, "Event not found.")
			http.Redirect(w, r, "/events", http.StatusFound)
			return
		}
		apiFailure(w, r, h.logger, h.flash, err, "/events")
		return
	}

	h.pages.Render(w, r, "event_details.html", map[string]any{
		"Page":          "events",
		"Event":         event,
		"Registrations": regs,
		"Open":          event.Status == models.EventPublished,
	})
}

// HandleRegister serves POST /events/{id}/register.
func (h *EventsHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	back := "/events/" + id
	if err := h.client.Events.Register(r.Context(), id); err != nil {
		apiFailure(w, r, h.logger, h.flash, err, back)
		return
	}
	h.flash.Success(w, r, "Successfully registered for the event!")
	http.Redirect(w, r, back, http.StatusFound)
}

// HandleCancel serves POST /events/{id}/cancel.
func (h *EventsHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	back := "/events/" + id
	if err := h.client.Events.CancelRegistration(r.Context(), id); err != nil {
		apiFailure(w, r, h.logger, h.flash, err, back)
		return
	}
	h.flash.Success(w, r, "Your registration has been cancelled.")
	http.Redirect(w, r, back, http.StatusFound)
}

// HandleDelete serves POST /events/{id}/delete.
func (h *EventsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.client.Events.Delete(r.Context(), id); err != nil {
		apiFailure(w, r, h.logger, h.flash, err, "/events/"+id)
		return
	}
	h.logger.Info().Str("event_id", id).Msg("event deleted")
	h.flash.Success(w, r, "Event deleted.")
	http.Redirect(w, r, "/events", http.StatusFound)
}

// HandleNew serves GET /events/new.
func (h *EventsHandler) HandleNew(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, "", models.EventFormData{Status: models.EventDraft, Capacity: 1}, validation.Errors{}, nil)
}

// HandleEdit serves GET /events/{id}/edit.
func (h *EventsHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	event, err := h.client.Events.Get(r.Context(), id)
	if err != nil {
		apiFailure(w, r, h.logger, h.flash, err, "/events")
		return
	}
	h.renderForm(w, r, id, FormFromEvent(event), validation.Errors{}, nil)
}

// HandleCreate serves POST /events.
func (h *EventsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, "")
}

// HandleUpdate serves POST /events/{id}/edit.
func (h *EventsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, chi.URLParam(r, "id"))
}

func (h *EventsHandler) save(w http.ResponseWriter, r *http.Request, id string) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	form := ParseEventForm(r)

	errs := validation.Event(form, h.now())
	if !errs.OK() {
		h.renderForm(w, r, id, form, errs, nil)
		return
	}
	form.Date = validation.APIDate(form.Date)
	form.EndDate = validation.APIDate(form.EndDate)

	var event *models.Event
	var err error
	if id == "" {
		event, err = h.client.Events.Create(r.Context(), form)
	} else {
		event, err = h.client.Events.Update(r.Context(), id, form)
	}
	if err != nil {
		if isExpired(err) {
			apiFailure(w, r, h.logger, h.flash, err, "/events")
			return
		}
		if apiErr, ok := client.AsAPIError(err); ok {
			for field, msg := range apiErr.FieldErrors() {
				errs.Add(field, msg)
			}
		}
		h.renderForm(w, r, id, form, errs, []notify.Message{{Kind: notify.KindError, Text: notify.ErrorText(err)}})
		return
	}

	if id == "" {
		h.flash.Success(w, r, "Event created.")
	} else {
		h.flash.Success(w, r, "Event updated.")
	}
	http.Redirect(w, r, "/events/"+event.ID, http.StatusFound)
}

func (h *EventsHandler) renderForm(w http.ResponseWriter, r *http.Request, id string, form models.EventFormData, errs validation.Errors, messages []notify.Message) {
	categories, err := h.client.Categories.List(r.Context())
	if isExpired(err) {
		apiFailure(w, r, h.logger, h.flash, err, "/events")
		return
	}
	h.pages.Render(w, r, "event_form.html", map[string]any{
		"Page":       "events",
		"EventID":    id,
		"Form":       form,
		"Features":   strings.Join(form.Features, "\n"),
		"Errors":     errs,
		"Categories": categories,
		"Statuses":   models.EventStatuses,
		"Messages":   messages,
	})
}

// HandleRegistrations serves GET /events/{id}/registrations.
func (h *EventsHandler) HandleRegistrations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var event *models.Event
	var regs []models.EventRegistration
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		event, err = h.client.Events.Get(ctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		regs, err = h.client.Events.Registrations(ctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		apiFailure(w, r, h.logger, h.flash, err, "/events/"+id)
		return
	}

	counts := map[string]int{}
	for _, reg := range regs {
		counts[string(reg.Status)]++
	}
	h.pages.Render(w, r, "registrations.html", map[string]any{
		"Page":          "events",
		"Event":         event,
		"Registrations": regs,
		"Counts":        counts,
		"Statuses":      models.RegistrationStatuses,
	})
}

// HandleRegistrationStatus serves POST /events/{id}/registrations/{registrationId}.
func (h *EventsHandler) HandleRegistrationStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	back := "/events/" + id + "/registrations"
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	status := r.FormValue("status")
	if errs := validation.RegistrationStatus(status); !errs.OK() {
		h.flash.Error(w, r, errs.Get("status"))
		http.Redirect(w, r, back, http.StatusFound)
		return
	}

	_, err := h.client.Events.UpdateRegistrationStatus(r.Context(), id, chi.URLParam(r, "registrationId"), models.RegistrationStatus(status))
	if err != nil {
		apiFailure(w, r, h.logger, h.flash, err, back)
		return
	}
	h.flash.Success(w, r, "Registration marked as "+status+".")
	http.Redirect(w, r, back, http.StatusFound)
}

// ParseEventForm reads the event form fields. Features are one per line or
// comma separated.
func ParseEventForm(r *http.Request) models.EventFormData {
	capacity, _ := strconv.Atoi(strings.TrimSpace(r.FormValue("capacity")))
	price, _ := strconv.ParseFloat(strings.TrimSpace(r.FormValue("price")), 64)

	var features []string
	for _, f := range strings.FieldsFunc(r.FormValue("features"), func(c rune) bool { return c == '\n' || c == ',' }) {
		if f = strings.TrimSpace(f); f != "" && !slices.Contains(features, f) {
			features = append(features, f)
		}
	}
	if features == nil {
		features = []string{}
	}

	return models.EventFormData{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Date:        strings.TrimSpace(r.FormValue("date")),
		EndDate:     strings.TrimSpace(r.FormValue("endDate")),
		Location:    strings.TrimSpace(r.FormValue("location")),
		Capacity:    capacity,
		CategoryID:  r.FormValue("categoryId"),
		Status:      models.EventStatus(r.FormValue("status")),
		Price:       price,
		ImageURL:    strings.TrimSpace(r.FormValue("imageUrl")),
		Features:    features,
	}
}

// FormFromEvent fills the edit form from an existing event.
func FormFromEvent(e *models.Event) models.EventFormData {
	return models.EventFormData{
		Title:       e.Title,
		Description: e.Description,
		Date:        inputDate(e.Date),
		EndDate:     inputDate(e.EndDate),
		Location:    e.Location,
		Capacity:    e.Capacity,
		CategoryID:  e.Category.ID,
		Status:      e.Status,
		Price:       e.Price,
		ImageURL:    e.ImageURL,
		Features:    slices.Clone(e.Features),
	}
}

