package client

import (
	"context"
	"fmt"

	"github.com/bobmcallan/events-portal/internal/models"
)

// ProfileService covers the current user's profile.
type ProfileService struct {
	gw *Gateway
}

func (s *ProfileService) Get(ctx context.Context) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := s.gw.Get(ctx, "/profile", &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Update saves profile changes and refreshes the session's identity record.
func (s *ProfileService) Update(ctx context.Context, data models.UpdateProfileData) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := s.gw.Put(ctx, "/profile", data, &profile); err != nil {
		return nil, err
	}

	user := profile.User
	if current := s.gw.session.User(); current != nil {
		if user.ID == "" {
			user.ID = current.ID
		}
		if len(user.Roles) == 0 {
			user.Roles = current.Roles
		}
	}
	if err := s.gw.session.SetUser(ctx, &user); err != nil {
		return &profile, fmt.Errorf("profile saved but session was not updated: %w", err)
	}
	return &profile, nil
}

func (s *ProfileService) UpdatePassword(ctx context.Context, change models.PasswordChange) error {
	return s.gw.Put(ctx, "/profile/password", change, nil)
}
