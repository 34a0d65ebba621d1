package models

import "strings"

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventCancelled EventStatus = "cancelled"
	EventCompleted EventStatus = "completed"
)

// EventStatuses lists every valid EventStatus in display order.
var EventStatuses = []EventStatus{EventDraft, EventPublished, EventCancelled, EventCompleted}

// RegistrationStatus is the state of a user's registration for an event.
type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationConfirmed RegistrationStatus = "confirmed"
	RegistrationCancelled RegistrationStatus = "cancelled"
)

// RegistrationStatuses lists every valid RegistrationStatus.
var RegistrationStatuses = []RegistrationStatus{RegistrationPending, RegistrationConfirmed, RegistrationCancelled}

// EventCategory groups events.
type EventCategory struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color"`
}

// Person is the abbreviated user record embedded in events and registrations.
type Person struct {
	ID        string `json:"id"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
}

// Event is a bookable event.
type Event struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Date            string        `json:"date"`
	EndDate         string        `json:"endDate"`
	Location        string        `json:"location"`
	Capacity        int           `json:"capacity"`
	RegisteredCount int           `json:"registeredCount"`
	Category        EventCategory `json:"category"`
	Status          EventStatus   `json:"status"`
	ImageURL        string        `json:"imageUrl,omitempty"`
	Price           float64       `json:"price"`
	Organizer       Person        `json:"organizer"`
	Features        []string      `json:"features"`
	IsRegistered    bool          `json:"isRegistered,omitempty"`
	CreatedAt       string        `json:"createdAt,omitempty"`
	UpdatedAt       string        `json:"updatedAt,omitempty"`
}

// SpotsLeft returns the remaining capacity, never negative.
func (e *Event) SpotsLeft() int {
	if left := e.Capacity - e.RegisteredCount; left > 0 {
		return left
	}
	return 0
}

// IsFull reports whether no spots remain.
func (e *Event) IsFull() bool {
	return e.SpotsLeft() == 0
}

// EventRegistration links a user to an event.
type EventRegistration struct {
	ID        string             `json:"id"`
	Event     *Event             `json:"event,omitempty"`
	User      Person             `json:"user"`
	Status    RegistrationStatus `json:"status"`
	CreatedAt string             `json:"createdAt,omitempty"`
	UpdatedAt string             `json:"updatedAt,omitempty"`
}

// EventFormData is the body of POST /events and PUT /events/{id}.
type EventFormData struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Date        string      `json:"date"`
	EndDate     string      `json:"endDate"`
	Location    string      `json:"location"`
	Capacity    int         `json:"capacity"`
	CategoryID  string      `json:"categoryId"`
	Status      EventStatus `json:"status"`
	Price       float64     `json:"price"`
	ImageURL    string      `json:"imageUrl,omitempty"`
	Features    []string    `json:"features"`
}

// RegistrationStatusUpdate is the body of PUT /events/{id}/registrations/{rid}.
type RegistrationStatusUpdate struct {
	Status RegistrationStatus `json:"status"`
}

// EventFilter narrows an events list by search text, category and status.
// Empty fields match everything.
type EventFilter struct {
	Query      string
	CategoryID string
	Status     EventStatus
}

// Apply returns the events matching f in their original order.
func (f EventFilter) Apply(events []Event) []Event {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if f.CategoryID != "" && e.Category.ID != f.CategoryID {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(e.Title+" "+e.Description+" "+e.Location), q) {
			continue
		}
		out = append(out, e)
	}
	return out
}
