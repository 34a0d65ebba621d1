package client

import (
	"context"
	"net/url"

	"github.com/bobmcallan/events-portal/internal/models"
)

// EventService covers events and registrations.
type EventService struct {
	gw *Gateway
}

func eventPath(id string) string {
	return "/events/" + url.PathEscape(id)
}

// List returns all events. On failure it returns an empty list together
// with the error so callers can still render.
func (s *EventService) List(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	if err := s.gw.Get(ctx, "/events", &events); err != nil {
		s.gw.logger.Warn().Err(err).Msg("failed to fetch events")
		return []models.Event{}, err
	}
	if events == nil {
		events = []models.Event{}
	}
	return events, nil
}

func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	if err := s.gw.Get(ctx, eventPath(id), &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *EventService) Create(ctx context.Context, data models.EventFormData) (*models.Event, error) {
	var event models.Event
	if err := s.gw.Post(ctx, "/events", data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *EventService) Update(ctx context.Context, id string, data models.EventFormData) (*models.Event, error) {
	var event models.Event
	if err := s.gw.Put(ctx, eventPath(id), data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *EventService) Delete(ctx context.Context, id string) error {
	return s.gw.Delete(ctx, eventPath(id))
}

// Register signs the current user up for an event. Repeated calls are not
// deduplicated; the API rejects duplicates with 400.
func (s *EventService) Register(ctx context.Context, id string) error {
	return s.gw.Post(ctx, eventPath(id)+"/register", nil, nil)
}

// CancelRegistration withdraws the current user from an event.
func (s *EventService) CancelRegistration(ctx context.Context, id string) error {
	return s.gw.Delete(ctx, eventPath(id)+"/register")
}

// Registrations lists everyone registered for an event (admin).
func (s *EventService) Registrations(ctx context.Context, id string) ([]models.EventRegistration, error) {
	var regs []models.EventRegistration
	if err := s.gw.Get(ctx, eventPath(id)+"/registrations", &regs); err != nil {
		return nil, err
	}
	if regs == nil {
		regs = []models.EventRegistration{}
	}
	return regs, nil
}

// UpdateRegistrationStatus changes one registration's status (admin).
func (s *EventService) UpdateRegistrationStatus(ctx context.Context, eventID, registrationID string, status models.RegistrationStatus) (*models.EventRegistration, error) {
	var reg models.EventRegistration
	path := eventPath(eventID) + "/registrations/" + url.PathEscape(registrationID)
	if err := s.gw.Put(ctx, path, models.RegistrationStatusUpdate{Status: status}, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}
