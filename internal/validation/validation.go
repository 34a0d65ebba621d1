// Package validation holds the field checks run on portal forms before any
// request reaches the API.
package validation

import (
	"net/mail"
	"net/url"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/bobmcallan/events-portal/internal/models"
)

// Errors maps a form field name to its first failure message.
type Errors map[string]string

// Add records msg for field unless the field already failed.
func (e Errors) Add(field, msg string) {
	if _, exists := e[field]; !exists {
		e[field] = msg
	}
}

// OK reports whether no field failed.
func (e Errors) OK() bool {
	return len(e) == 0
}

// Get returns the message for field, or "".
func (e Errors) Get(field string) string {
	return e[field]
}

// passwordSpecials is the set of special characters the API accepts.
const passwordSpecials = "@$!%*?&"

// DateLayouts are accepted for event dates, most specific first.
var DateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDate parses an event date in any of DateLayouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// APIDate converts an accepted date input to the RFC 3339 form the API
// stores. Unparseable input is returned unchanged.
func APIDate(s string) string {
	if t, ok := ParseDate(s); ok {
		return t.UTC().Format(time.RFC3339)
	}
	return s
}

func minLen(e Errors, field, value string, n int, msg string) {
	if utf8.RuneCountInString(strings.TrimSpace(value)) < n {
		e.Add(field, msg)
	}
}

func email(e Errors, field, value string) {
	value = strings.TrimSpace(value)
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value || !strings.Contains(value[strings.LastIndexByte(value, '@')+1:], ".") {
		e.Add(field, "Invalid email address")
	}
}

// password applies the API's password policy.
func password(e Errors, field, value string) {
	if len(value) < 8 {
		e.Add(field, "Password must be at least 8 characters")
		return
	}
	var upper, lower, digit, special bool
	for _, r := range value {
		switch {
		case unicode.IsUpper(r) && r < unicode.MaxASCII:
			upper = true
		case unicode.IsLower(r) && r < unicode.MaxASCII:
			lower = true
		case unicode.IsDigit(r) && r < unicode.MaxASCII:
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			e.Add(field, "Password may only contain letters, numbers and @$!%*?&")
			return
		}
	}
	switch {
	case !upper:
		e.Add(field, "Password must contain at least one uppercase letter")
	case !lower:
		e.Add(field, "Password must contain at least one lowercase letter")
	case !digit:
		e.Add(field, "Password must contain at least one number")
	case !special:
		e.Add(field, "Password must contain at least one special character (@$!%*?&)")
	}
}

// Login checks the login form.
func Login(c models.LoginCredentials) Errors {
	e := Errors{}
	email(e, "email", c.Email)
	if c.Password == "" {
		e.Add("password", "Password is required")
	}
	return e
}

// Register checks the registration form.
func Register(c models.RegisterCredentials, confirm string) Errors {
	e := Errors{}
	minLen(e, "firstname", c.Firstname, 2, "First name must be at least 2 characters")
	minLen(e, "lastname", c.Lastname, 2, "Last name must be at least 2 characters")
	email(e, "email", c.Email)
	password(e, "password", c.Password)
	if c.Password != confirm {
		e.Add("confirmPassword", "Passwords don't match")
	}
	return e
}

// Event checks the event form. Start and end must be in the future relative
// to now and the end may not precede the start.
func Event(f models.EventFormData, now time.Time) Errors {
	e := Errors{}
	minLen(e, "title", f.Title, 3, "Title must be at least 3 characters")
	minLen(e, "description", f.Description, 10, "Description must be at least 10 characters")

	start, okStart := ParseDate(f.Date)
	switch {
	case !okStart:
		e.Add("date", "Event date is required")
	case !start.After(now):
		e.Add("date", "Event date must be in the future")
	}
	end, okEnd := ParseDate(f.EndDate)
	switch {
	case !okEnd:
		e.Add("endDate", "Event end date is required")
	case !end.After(now):
		e.Add("endDate", "Event end date must be in the future")
	case okStart && end.Before(start):
		e.Add("endDate", "Event end date must be after the start date")
	}

	minLen(e, "location", f.Location, 3, "Location must be at least 3 characters")
	if f.Capacity < 1 {
		e.Add("capacity", "Capacity must be at least 1")
	}
	if strings.TrimSpace(f.CategoryID) == "" {
		e.Add("categoryId", "Category is required")
	}
	if !slices.Contains(models.EventStatuses, f.Status) {
		e.Add("status", "Invalid status")
	}
	if f.Price < 0 {
		e.Add("price", "Price cannot be negative")
	}
	if f.ImageURL != "" {
		if u, err := url.ParseRequestURI(f.ImageURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			e.Add("imageUrl", "Invalid URL")
		}
	}
	return e
}

// Profile checks the profile details form.
func Profile(p models.UpdateProfileData) Errors {
	e := Errors{}
	minLen(e, "firstname", p.Firstname, 2, "First name must be at least 2 characters")
	minLen(e, "lastname", p.Lastname, 2, "Last name must be at least 2 characters")
	email(e, "email", p.Email)
	return e
}

// PasswordChange checks the change-password form.
func PasswordChange(c models.PasswordChange, confirm string) Errors {
	e := Errors{}
	if c.CurrentPassword == "" {
		e.Add("currentPassword", "Current password is required")
	}
	password(e, "newPassword", c.NewPassword)
	if c.NewPassword != confirm {
		e.Add("confirmPassword", "Passwords don't match")
	}
	return e
}

// RegistrationStatus checks an admin status update value.
func RegistrationStatus(s string) Errors {
	e := Errors{}
	if !slices.Contains(models.RegistrationStatuses, models.RegistrationStatus(s)) {
		e.Add("status", "Invalid registration status")
	}
	return e
}
