package devapi

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var errInvalidToken = errors.New("invalid token")

// accessClaims are carried by issued access tokens.
type accessClaims struct {
	jwt.RegisteredClaims
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

type refreshRecord struct {
	userID  string
	expires time.Time
}

// tokenIssuer signs HS256 access tokens and keeps opaque refresh tokens that
// are single-use.
type tokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time

	mu      sync.Mutex
	refresh map[string]refreshRecord
}

func newTokenIssuer(secret []byte, accessTTL, refreshTTL time.Duration, now func() time.Time) *tokenIssuer {
	return &tokenIssuer{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        now,
		refresh:    make(map[string]refreshRecord),
	}
}

// issue returns a new access token, its expiry and a new refresh token.
func (t *tokenIssuer) issue(u *userRecord) (string, time.Time, string, error) {
	now := t.now().UTC()
	expires := now.Add(t.accessTTL)
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			Issuer:    "events-devapi",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Email: u.Email,
		Roles: u.Roles,
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, "", err
	}

	b := make([]byte, 32)
	rand.Read(b)
	refresh := hex.EncodeToString(b)

	t.mu.Lock()
	t.refresh[refresh] = refreshRecord{userID: u.ID, expires: now.Add(t.refreshTTL)}
	t.mu.Unlock()

	return access, expires, refresh, nil
}

// verify parses and validates an access token.
func (t *tokenIssuer) verify(token string) (*accessClaims, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, errInvalidToken
	}
	return claims, nil
}

// redeem consumes a refresh token and returns its user id.
func (t *tokenIssuer) redeem(refresh string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.refresh[refresh]
	if !ok {
		return "", errInvalidToken
	}
	delete(t.refresh, refresh)
	if !t.now().Before(rec.expires) {
		return "", errInvalidToken
	}
	return rec.userID, nil
}

// revokeUser drops every refresh token held by userID.
func (t *tokenIssuer) revokeUser(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, rec := range t.refresh {
		if rec.userID == userID {
			delete(t.refresh, k)
		}
	}
}
