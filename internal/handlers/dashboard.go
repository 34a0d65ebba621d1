package handlers

import (
	"net/http"
	"sort"
	"time"

	"github.com/bobmcallan/events-portal/internal/client"
	"github.com/bobmcallan/events-portal/internal/common"
	"github.com/bobmcallan/events-portal/internal/models"
	"github.com/bobmcallan/events-portal/internal/notify"
	"github.com/bobmcallan/events-portal/internal/validation"
)

// DashboardStats summarises the events list for the dashboard.
type DashboardStats struct {
	Total           int
	Published       int
	Drafts          int
	Registrations   int
	MyRegistrations int
	Upcoming        []models.Event
	Mine            []models.Event
}

// BuildDashboardStats computes the dashboard figures. Upcoming holds at most
// limit published future events, soonest first.
func BuildDashboardStats(events []models.Event, now time.Time, limit int) DashboardStats {
	var s DashboardStats
	for _, e := range events {
		s.Total++
		s.Registrations += e.RegisteredCount
		switch e.Status {
		case models.EventPublished:
			s.Published++
		case models.EventDraft:
			s.Drafts++
		}
		if e.IsRegistered {
			s.MyRegistrations++
			s.Mine = append(s.Mine, e)
		}
		if start, ok := validation.ParseDate(e.Date); ok && e.Status == models.EventPublished && start.After(now) {
			s.Upcoming = append(s.Upcoming, e)
		}
	}
	byDate := func(list []models.Event) {
		sort.SliceStable(list, func(i, j int) bool {
			a, _ := validation.ParseDate(list[i].Date)
			b, _ := validation.ParseDate(list[j].Date)
			return a.Before(b)
		})
	}
	byDate(s.Upcoming)
	byDate(s.Mine)
	if limit > 0 && len(s.Upcoming) > limit {
		s.Upcoming = s.Upcoming[:limit]
	}
	return s
}

// DashboardHandler serves the dashboard page.
type DashboardHandler struct {
	logger *common.Logger
	pages  *PageHandler
	client *client.Client
	flash  *notify.Flasher
	now    func() time.Time
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(logger *common.Logger, pages *PageHandler, c *client.Client, flash *notify.Flasher) *DashboardHandler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &DashboardHandler{logger: logger, pages: pages, client: c, flash: flash, now: time.Now}
}

// ServeHTTP renders the dashboard page.
func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	events, err := h.client.Events.List(r.Context())
	var messages []notify.Message
	if err != nil {
		if isExpired(err) {
			apiFailure(w, r, h.logger, h.flash, err, "/login")
			return
		}
		messages = append(messages, notify.Message{Kind: notify.KindError, Text: notify.ErrorText(err)})
	}

	h.pages.Render(w, r, "dashboard.html", map[string]any{
		"Page":     "dashboard",
		"Stats":    BuildDashboardStats(events, h.now(), 5),
		"Messages": messages,
	})
}
