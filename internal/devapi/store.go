package devapi

import (
	"errors"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/events-portal/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// Seeded accounts.
const (
	AdminEmail    = "admin@example.com"
	AdminPassword = "Admin123!"
	UserEmail     = "user@example.com"
	UserPassword  = "User1234!"
)

var (
	errNotFound          = errors.New("not found")
	errEmailTaken        = errors.New("This email is already registered.")
	errAlreadyRegistered = errors.New("You are already registered for this event")
	errEventFull         = errors.New("Event is full")
	errNotOpen           = errors.New("Event is not open for registration")
	errNotRegistered     = errors.New("You are not registered for this event")
	errBadPassword       = errors.New("Current password is incorrect")
)

type userRecord struct {
	models.UserProfile
	PasswordHash []byte
}

func (u *userRecord) person() models.Person {
	return models.Person{ID: u.ID, Firstname: u.Firstname, Lastname: u.Lastname, Email: u.Email}
}

type registrationRecord struct {
	ID        string
	EventID   string
	UserID    string
	Status    models.RegistrationStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

type eventRecord struct {
	models.Event
	CategoryID  string
	OrganizerID string
}

// store holds all API state. Ids are sequential strings.
type store struct {
	mu   sync.RWMutex
	cost int
	now  func() time.Time
	seq  int

	users         map[string]*userRecord
	categories    map[string]*models.EventCategory
	events        map[string]*eventRecord
	registrations map[string]*registrationRecord
}

func newStore(cost int, now func() time.Time) (*store, error) {
	if cost == 0 {
		cost = bcrypt.MinCost
	}
	s := &store{
		cost:          cost,
		now:           now,
		users:         make(map[string]*userRecord),
		categories:    make(map[string]*models.EventCategory),
		events:        make(map[string]*eventRecord),
		registrations: make(map[string]*registrationRecord),
	}
	return s, s.seed()
}

func (s *store) nextID() string {
	s.seq++
	return strconv.Itoa(s.seq)
}

func (s *store) stamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

func (s *store) seed() error {
	admin, err := s.createUser(models.RegisterCredentials{Firstname: "Ada", Lastname: "Admin", Email: AdminEmail, Password: AdminPassword}, models.RoleUser, models.RoleAdmin)
	if err != nil {
		return err
	}
	if _, err := s.createUser(models.RegisterCredentials{Firstname: "Uma", Lastname: "User", Email: UserEmail, Password: UserPassword}, models.RoleUser); err != nil {
		return err
	}

	tech := s.createCategory(models.EventCategory{Name: "Technology", Description: "Talks and workshops", Color: "#3b82f6"})
	music := s.createCategory(models.EventCategory{Name: "Music", Description: "Concerts and festivals", Color: "#ec4899"})

	start := s.now().UTC().Add(14 * 24 * time.Hour).Truncate(time.Hour)
	_, err = s.createEvent(admin.ID, models.EventFormData{
		Title:       "Go Workshop",
		Description: "A hands-on introduction to concurrency in Go.",
		Date:        start.Format(time.RFC3339),
		EndDate:     start.Add(3 * time.Hour).Format(time.RFC3339),
		Location:    "Main Hall",
		Capacity:    30,
		CategoryID:  tech.ID,
		Status:      models.EventPublished,
		Features:    []string{"Hands-on labs", "Coffee"},
	})
	if err != nil {
		return err
	}
	_, err = s.createEvent(admin.ID, models.EventFormData{
		Title:       "Chamber Evening",
		Description: "An intimate evening of string quartets.",
		Date:        start.Add(7 * 24 * time.Hour).Format(time.RFC3339),
		EndDate:     start.Add(7*24*time.Hour + 2*time.Hour).Format(time.RFC3339),
		Location:    "Recital Room",
		Capacity:    2,
		CategoryID:  music.ID,
		Status:      models.EventPublished,
		Price:       15,
	})
	return err
}

func (s *store) createUser(c models.RegisterCredentials, roles ...string) (*userRecord, error) {
	email := strings.ToLower(strings.TrimSpace(c.Email))
	for _, u := range s.users {
		if u.Email == email {
			return nil, errEmailTaken
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), s.cost)
	if err != nil {
		return nil, err
	}
	now := s.stamp()
	u := &userRecord{
		UserProfile: models.UserProfile{
			User: models.User{
				ID:        s.nextID(),
				Firstname: c.Firstname,
				Lastname:  c.Lastname,
				Email:     email,
				Roles:     roles,
				CreatedAt: now,
				UpdatedAt: now,
			},
			Preferences: models.UserPreferences{EmailNotifications: true, EventReminders: true},
		},
		PasswordHash: hash,
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *store) register(c models.RegisterCredentials) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.createUser(c, models.RoleUser)
	if err != nil {
		return nil, err
	}
	return u.User.Clone(), nil
}

// authenticate returns the user when email and password match.
func (s *store) authenticate(email, password string) (*userRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
				return nil, false
			}
			cp := *u
			return &cp, true
		}
	}
	return nil, false
}

func (s *store) user(id string) (*userRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, false
	}
	cp := *u
	return &cp, true
}

func (s *store) profile(id string) (*models.UserProfile, error) {
	u, ok := s.user(id)
	if !ok {
		return nil, errNotFound
	}
	p := u.UserProfile
	p.Roles = slices.Clone(p.Roles)
	return &p, nil
}

func (s *store) updateProfile(id string, d models.UpdateProfileData) (*models.UserProfile, error) {
	s.mu.Lock()
	u, ok := s.users[id]
	if !ok {
		s.mu.Unlock()
		return nil, errNotFound
	}
	if d.Email != "" {
		email := strings.ToLower(strings.TrimSpace(d.Email))
		for _, other := range s.users {
			if other.ID != id && other.Email == email {
				s.mu.Unlock()
				return nil, errEmailTaken
			}
		}
		u.Email = email
	}
	if d.Firstname != "" {
		u.Firstname = d.Firstname
	}
	if d.Lastname != "" {
		u.Lastname = d.Lastname
	}
	u.Phone = d.Phone
	u.Organization = d.Organization
	u.Bio = d.Bio
	if d.Preferences != nil {
		u.Preferences = *d.Preferences
	}
	u.UpdatedAt = s.stamp()
	s.mu.Unlock()
	return s.profile(id)
}

func (s *store) changePassword(id string, c models.PasswordChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return errNotFound
	}
	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(c.CurrentPassword)) != nil {
		return errBadPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(c.NewPassword), s.cost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.UpdatedAt = s.stamp()
	return nil
}

func (s *store) createCategory(c models.EventCategory) *models.EventCategory {
	c.ID = s.nextID()
	s.categories[c.ID] = &c
	cp := c
	return &cp
}

func (s *store) listCategories() []models.EventCategory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.EventCategory, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return idLess(out[i].ID, out[j].ID) })
	return out
}

func (s *store) category(id string) (*models.EventCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return nil, errNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *store) addCategory(c models.EventCategory) *models.EventCategory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createCategory(c)
}

func (s *store) updateCategory(id string, c models.EventCategory) (*models.EventCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return nil, errNotFound
	}
	c.ID = id
	s.categories[id] = &c
	cp := c
	return &cp, nil
}

func (s *store) deleteCategory(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return errNotFound
	}
	delete(s.categories, id)
	return nil
}

func (s *store) applyForm(e *eventRecord, f models.EventFormData) error {
	if _, ok := s.categories[f.CategoryID]; !ok {
		return errNotFound
	}
	e.Title = f.Title
	e.Description = f.Description
	e.Date = f.Date
	e.EndDate = f.EndDate
	e.Location = f.Location
	e.Capacity = f.Capacity
	e.CategoryID = f.CategoryID
	e.Status = f.Status
	if e.Status == "" {
		e.Status = models.EventDraft
	}
	e.Price = f.Price
	e.ImageURL = f.ImageURL
	e.Features = slices.Clone(f.Features)
	if e.Features == nil {
		e.Features = []string{}
	}
	return nil
}

func (s *store) createEvent(organizerID string, f models.EventFormData) (*eventRecord, error) {
	now := s.stamp()
	e := &eventRecord{OrganizerID: organizerID}
	if err := s.applyForm(e, f); err != nil {
		return nil, err
	}
	e.ID = s.nextID()
	e.CreatedAt = now
	e.UpdatedAt = now
	s.events[e.ID] = e
	return e, nil
}

// view renders an event as seen by viewerID. Must be called with mu held.
func (s *store) view(e *eventRecord, viewerID string) models.Event {
	out := e.Event
	out.Features = slices.Clone(e.Features)
	if c, ok := s.categories[e.CategoryID]; ok {
		out.Category = *c
	}
	if u, ok := s.users[e.OrganizerID]; ok {
		out.Organizer = u.person()
	}
	out.RegisteredCount = 0
	out.IsRegistered = false
	for _, r := range s.registrations {
		if r.EventID != e.ID || r.Status == models.RegistrationCancelled {
			continue
		}
		out.RegisteredCount++
		if r.UserID == viewerID {
			out.IsRegistered = true
		}
	}
	return out
}

func (s *store) listEvents(viewerID string) []models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, s.view(e, viewerID))
	}
	sort.Slice(out, func(i, j int) bool { return idLess(out[i].ID, out[j].ID) })
	return out
}

func (s *store) event(id, viewerID string) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, errNotFound
	}
	v := s.view(e, viewerID)
	return &v, nil
}

func (s *store) addEvent(organizerID string, f models.EventFormData) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.createEvent(organizerID, f)
	if err != nil {
		return nil, err
	}
	v := s.view(e, organizerID)
	return &v, nil
}

func (s *store) updateEvent(id, viewerID string, f models.EventFormData) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, errNotFound
	}
	updated := *e
	if err := s.applyForm(&updated, f); err != nil {
		return nil, err
	}
	updated.UpdatedAt = s.stamp()
	s.events[id] = &updated
	v := s.view(&updated, viewerID)
	return &v, nil
}

func (s *store) deleteEvent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return errNotFound
	}
	delete(s.events, id)
	for rid, r := range s.registrations {
		if r.EventID == id {
			delete(s.registrations, rid)
		}
	}
	return nil
}

// registerUser signs userID up for eventID. Capacity counts pending and
// confirmed registrations.
func (s *store) registerUser(eventID, userID string) (*models.EventRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return nil, errNotFound
	}
	if e.Status != models.EventPublished {
		return nil, errNotOpen
	}
	v := s.view(e, userID)
	if v.IsRegistered {
		return nil, errAlreadyRegistered
	}
	if v.IsFull() {
		return nil, errEventFull
	}
	now := s.now().UTC()
	r := &registrationRecord{
		ID:        s.nextID(),
		EventID:   eventID,
		UserID:    userID,
		Status:    models.RegistrationPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.registrations[r.ID] = r
	return s.registrationView(r, false), nil
}

func (s *store) cancelRegistration(eventID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[eventID]; !ok {
		return errNotFound
	}
	for id, r := range s.registrations {
		if r.EventID == eventID && r.UserID == userID && r.Status != models.RegistrationCancelled {
			delete(s.registrations, id)
			return nil
		}
	}
	return errNotRegistered
}

// registrationView must be called with mu held.
func (s *store) registrationView(r *registrationRecord, withEvent bool) *models.EventRegistration {
	out := &models.EventRegistration{
		ID:        r.ID,
		Status:    r.Status,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
		UpdatedAt: r.UpdatedAt.Format(time.RFC3339),
	}
	if u, ok := s.users[r.UserID]; ok {
		out.User = u.person()
	}
	if withEvent {
		if e, ok := s.events[r.EventID]; ok {
			v := s.view(e, r.UserID)
			out.Event = &v
		}
	}
	return out
}

func (s *store) listRegistrations(eventID string) ([]models.EventRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.events[eventID]; !ok {
		return nil, errNotFound
	}
	out := []models.EventRegistration{}
	for _, r := range s.registrations {
		if r.EventID == eventID {
			out = append(out, *s.registrationView(r, false))
		}
	}
	sort.Slice(out, func(i, j int) bool { return idLess(out[i].ID, out[j].ID) })
	return out, nil
}

func (s *store) setRegistrationStatus(eventID, registrationID string, status models.RegistrationStatus) (*models.EventRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.registrations[registrationID]
	if !ok || r.EventID != eventID {
		return nil, errNotFound
	}
	r.Status = status
	r.UpdatedAt = s.now().UTC()
	return s.registrationView(r, true), nil
}

// idLess orders numeric ids numerically.
func idLess(a, b string) bool {
	ai, errA := strconv.Atoi(a)
	bi, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return ai < bi
	}
	return a < b
}
