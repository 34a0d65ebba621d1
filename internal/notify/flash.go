// Package notify carries one-shot notifications across a redirect in a
// signed cookie.
package notify

import (
	"errors"
	"net/http"

	"github.com/bobmcallan/events-portal/internal/client"
	"github.com/bobmcallan/events-portal/internal/common"
	"github.com/gorilla/securecookie"
)

const (
	cookieName   = "events_flash"
	cookieMaxAge = 300
	maxMessages  = 5
)

// Kind is the visual style of a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Message is one notification.
type Message struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

// Flasher reads and writes flash messages.
type Flasher struct {
	sc     *securecookie.SecureCookie
	logger *common.Logger
}

// NewFlasher creates a Flasher signing cookies with secret. An empty secret
// gets a random key, so messages do not survive a restart.
func NewFlasher(secret []byte, logger *common.Logger) *Flasher {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if len(secret) == 0 {
		secret = securecookie.GenerateRandomKey(32)
		logger.Debug().Msg("no cookie secret configured, using a random flash key")
	}
	sc := securecookie.New(secret, nil)
	sc.SetSerializer(securecookie.JSONEncoder{})
	sc.MaxAge(cookieMaxAge)
	return &Flasher{sc: sc, logger: logger}
}

func (f *Flasher) read(r *http.Request) []Message {
	cookie, err := r.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	var msgs []Message
	if err := f.sc.Decode(cookieName, cookie.Value, &msgs); err != nil {
		f.logger.Debug().Err(err).Msg("discarding unreadable flash cookie")
		return nil
	}
	return msgs
}

// Add queues a message for the next page render. Messages already queued on
// the request are kept.
func (f *Flasher) Add(w http.ResponseWriter, r *http.Request, kind Kind, text string) {
	msgs := append(f.read(r), Message{Kind: kind, Text: text})
	if len(msgs) > maxMessages {
		msgs = msgs[len(msgs)-maxMessages:]
	}
	encoded, err := f.sc.Encode(cookieName, msgs)
	if err != nil {
		f.logger.Error().Err(err).Msg("failed to encode flash cookie")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (f *Flasher) Success(w http.ResponseWriter, r *http.Request, text string) {
	f.Add(w, r, KindSuccess, text)
}

func (f *Flasher) Error(w http.ResponseWriter, r *http.Request, text string) {
	f.Add(w, r, KindError, text)
}

func (f *Flasher) Info(w http.ResponseWriter, r *http.Request, text string) {
	f.Add(w, r, KindInfo, text)
}

// Pop returns the queued messages and clears the cookie.
func (f *Flasher) Pop(w http.ResponseWriter, r *http.Request) []Message {
	msgs := f.read(r)
	if _, err := r.Cookie(cookieName); err == nil {
		http.SetCookie(w, &http.Cookie{
			Name:     cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return msgs
}

// Generic texts for failures without a server-provided message.
const (
	TextSessionExpired = "Your session has expired. Please log in again."
	TextUnreachable    = "Something went wrong. Please try again."
)

// ErrorText turns an API error into notification text.
func ErrorText(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, client.ErrSessionExpired) {
		return TextSessionExpired
	}
	if apiErr, ok := client.AsAPIError(err); ok && apiErr.StatusCode < 500 {
		return apiErr.Message()
	}
	return TextUnreachable
}
