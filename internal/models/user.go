package models

import "slices"

// Role names issued by the events API.
const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)

// User is the identity record returned alongside access tokens.
type User struct {
	ID        string   `json:"id"`
	Firstname string   `json:"firstname"`
	Lastname  string   `json:"lastname"`
	Email     string   `json:"email"`
	Roles     []string `json:"roles"`
	CreatedAt string   `json:"createdAt,omitempty"`
	UpdatedAt string   `json:"updatedAt,omitempty"`
}

// IsAdmin reports whether the user holds ROLE_ADMIN.
func (u *User) IsAdmin() bool {
	return u != nil && slices.Contains(u.Roles, RoleAdmin)
}

// FullName returns "Firstname Lastname", falling back to the email.
func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	switch {
	case u.Firstname != "" && u.Lastname != "":
		return u.Firstname + " " + u.Lastname
	case u.Firstname != "":
		return u.Firstname
	case u.Lastname != "":
		return u.Lastname
	}
	return u.Email
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Roles = slices.Clone(u.Roles)
	return &c
}

// UserPreferences holds notification preferences on the profile.
type UserPreferences struct {
	EmailNotifications     bool `json:"emailNotifications"`
	EventReminders         bool `json:"eventReminders"`
	NewsletterSubscription bool `json:"newsletterSubscription"`
}

// UserProfile is the extended record served by GET /profile.
type UserProfile struct {
	User
	Phone        string          `json:"phone,omitempty"`
	Organization string          `json:"organization,omitempty"`
	Bio          string          `json:"bio,omitempty"`
	AvatarURL    string          `json:"avatarUrl,omitempty"`
	Preferences  UserPreferences `json:"preferences"`
}

// UpdateProfileData is the body of PUT /profile.
type UpdateProfileData struct {
	Firstname    string           `json:"firstname,omitempty"`
	Lastname     string           `json:"lastname,omitempty"`
	Email        string           `json:"email,omitempty"`
	Phone        string           `json:"phone,omitempty"`
	Organization string           `json:"organization,omitempty"`
	Bio          string           `json:"bio,omitempty"`
	Preferences  *UserPreferences `json:"preferences,omitempty"`
}

// PasswordChange is the body of PUT /profile/password.
type PasswordChange struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}
