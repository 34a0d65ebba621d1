package models

import "time"

// ExpirySkew is subtracted from the token expiry to absorb clock drift and
// in-flight request latency.
const ExpirySkew = 60 * time.Second

// Session is the persisted authentication record. Zero values mean "absent".
type Session struct {
	AccessToken     string `json:"token,omitempty"`
	RefreshToken    string `json:"refreshToken,omitempty"`
	ExpiresAt       int64  `json:"tokenExpiration,omitempty"` // seconds since epoch
	User            *User  `json:"user,omitempty"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

// IsEmpty reports whether every credential field is cleared.
func (s Session) IsEmpty() bool {
	return s.AccessToken == "" && s.RefreshToken == "" && s.ExpiresAt == 0 && s.User == nil && !s.IsAuthenticated
}

// ValidAt reports whether the access token is present and usable at now.
func (s Session) ValidAt(now time.Time) bool {
	if s.AccessToken == "" || s.ExpiresAt == 0 {
		return false
	}
	return now.Before(s.ExpiryTime().Add(-ExpirySkew))
}

// ExpiryTime returns ExpiresAt as a time.Time.
func (s Session) ExpiryTime() time.Time {
	return time.Unix(s.ExpiresAt, 0)
}

// Clone returns a deep copy of s.
func (s *Session) Clone() Session {
	c := *s
	c.User = s.User.Clone()
	return c
}
