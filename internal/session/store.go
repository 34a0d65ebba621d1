// Package session holds the process-wide authentication record shared by the
// portal, the CLI and the MCP tools.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bobmcallan/events-portal/internal/common"
	"github.com/bobmcallan/events-portal/internal/interfaces"
	"github.com/bobmcallan/events-portal/internal/models"
)

// DefaultKey is the storage key the session record is persisted under.
const DefaultKey = "auth-storage"

// Clock returns the current time.
type Clock func() time.Time

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used by CheckAuth.
func WithClock(clock Clock) Option {
	return func(s *Store) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// Store is the single authentication record for this process.
// The mutex only guards memory; concurrent writers resolve last-writer-wins.
type Store struct {
	mu     sync.RWMutex
	state  models.Session
	kv     interfaces.KeyValueStorage
	key    string
	now    Clock
	logger *common.Logger

	hooksMu sync.Mutex
	hooks   []func()
}

// New creates an empty Store persisting to kv.
func New(kv interfaces.KeyValueStorage, logger *common.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	s := &Store{
		kv:     kv,
		key:    DefaultKey,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load rehydrates the record from storage. A missing record leaves the
// session cleared. A record that claims to be authenticated without all four
// credential fields is discarded.
func (s *Store) Load(ctx context.Context) error {
	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to read session: %w", err)
	}

	var rec models.Session
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		s.logger.Warn().Err(err).Msg("persisted session is unreadable, clearing")
		s.Logout(ctx)
		return nil
	}

	if rec.IsAuthenticated && !complete(&rec) {
		s.logger.Warn().Msg("persisted session is incomplete, clearing")
		s.Logout(ctx)
		return nil
	}

	s.mu.Lock()
	s.state = rec
	s.mu.Unlock()

	s.logger.Debug().
		Bool("authenticated", rec.IsAuthenticated).
		Str("expires", rec.ExpiryTime().UTC().Format(time.RFC3339)).
		Msg("session rehydrated")
	return nil
}

func complete(rec *models.Session) bool {
	return rec.AccessToken != "" && rec.RefreshToken != "" && rec.ExpiresAt != 0 && rec.User != nil
}

// SetTokens replaces all four credential fields and marks the session
// authenticated. Token contents are not inspected.
func (s *Store) SetTokens(ctx context.Context, accessToken, refreshToken string, expiresAt int64, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = models.Session{
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		ExpiresAt:       expiresAt,
		User:            user.Clone(),
		IsAuthenticated: true,
	}
	return s.persistLocked(ctx)
}

// SetUser replaces only the identity record.
func (s *Store) SetUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.User = user.Clone()
	return s.persistLocked(ctx)
}

// CheckAuth reports whether the access token is present and outside the
// expiry skew. Any failure clears the session.
func (s *Store) CheckAuth(ctx context.Context) bool {
	s.mu.RLock()
	valid := s.state.ValidAt(s.now())
	s.mu.RUnlock()

	if !valid {
		s.Logout(ctx)
		return false
	}
	return true
}

// Logout clears every field, removes the persisted record and runs the
// logout hooks. Safe to call repeatedly.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	wasAuthenticated := s.state.IsAuthenticated
	s.state = models.Session{}
	if err := s.kv.Delete(ctx, s.key); err != nil {
		s.logger.Warn().Err(err).Str("key", s.key).Msg("failed to purge persisted session")
	}
	s.mu.Unlock()

	s.hooksMu.Lock()
	hooks := append([]func(){}, s.hooks...)
	s.hooksMu.Unlock()
	for _, fn := range hooks {
		fn()
	}

	if wasAuthenticated {
		s.logger.Info().Msg("session cleared")
	}
}

// OnLogout registers fn to run after every Logout.
func (s *Store) OnLogout(fn func()) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks = append(s.hooks, fn)
}

func (s *Store) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(s.state)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, string(data)); err != nil {
		s.logger.Warn().Err(err).Str("key", s.key).Msg("failed to persist session")
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.AccessToken
}

func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.RefreshToken
}

// User returns a copy of the identity record, or nil.
func (s *Store) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.User.Clone()
}

// IsAuthenticated reports whether the session is marked authenticated and
// its access token is still outside the expiry skew. It does not clear an
// expired session; CheckAuth does.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticatedLocked()
}

func (s *Store) authenticatedLocked() bool {
	return s.state.IsAuthenticated && s.state.ValidAt(s.now())
}

// IsAdmin reports whether the current user holds ROLE_ADMIN.
func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.User.IsAdmin()
}

// Snapshot returns a copy of all fields. IsAuthenticated is derived the same
// way as the IsAuthenticated accessor.
func (s *Store) Snapshot() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.state.Clone()
	snap.IsAuthenticated = s.authenticatedLocked()
	return snap
}

// Now returns the store's clock reading.
func (s *Store) Now() time.Time {
	return s.now()
}
