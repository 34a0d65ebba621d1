package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/bobmcallan/events-portal/internal/models"
)

// AuthService covers login, registration and token refresh.
type AuthService struct {
	gw *Gateway
}

// Login exchanges credentials for tokens and stores them in the session.
func (s *AuthService) Login(ctx context.Context, creds models.LoginCredentials) (*models.AuthResponse, error) {
	var auth models.AuthResponse
	if err := s.gw.Post(ctx, PathLogin, creds, &auth); err != nil {
		return nil, err
	}
	if auth.Token == "" {
		return nil, errors.New("login response carried no token")
	}

	if auth.TokenExpiration == 0 {
		auth.TokenExpiration = tokenExpiry(auth.Token)
	}
	if auth.User == nil {
		auth.User = &models.User{Email: creds.Email}
	}
	if len(auth.User.Roles) == 0 && len(auth.UserRoles) > 0 {
		auth.User.Roles = append([]string(nil), auth.UserRoles...)
	}

	if err := s.gw.session.SetTokens(ctx, auth.Token, auth.RefreshToken, auth.TokenExpiration, auth.User); err != nil {
		return &auth, fmt.Errorf("logged in but session was not saved: %w", err)
	}

	s.gw.logger.Info().Str("email", creds.Email).Bool("admin", auth.User.IsAdmin()).Msg("logged in")
	return &auth, nil
}

// Register creates an account. It does not log in.
func (s *AuthService) Register(ctx context.Context, creds models.RegisterCredentials) error {
	return s.gw.Post(ctx, PathRegister, creds, nil)
}

// GetProfile returns the current user's identity record.
func (s *AuthService) GetProfile(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := s.gw.Get(ctx, "/profile", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// RefreshToken exchanges refreshToken for new credentials without touching
// the session.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*models.AuthResponse, error) {
	return s.gw.refresh(ctx, refreshToken)
}

// Logout clears the local session. The API keeps no server-side session.
func (s *AuthService) Logout(ctx context.Context) {
	s.gw.session.Logout(ctx)
}
