package auth

import (
	"crypto/sha256"
	"encoding/gob"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
)

const sessionName = "hrms_session"

var ErrNoSession = errors.New("no active session")

// User is the signed-in identity, whichever way the user authenticated.
type User struct {
	Provider  string
	Subject   string
	Email     string
	Name      string
	AvatarURL string
}

type Session struct {
	User      User
	ExpiresAt time.Time
}

func init() {
	gob.Register(User{})
}

// FromGoth maps a completed OAuth login onto a User.
func FromGoth(u goth.User) User {
	name := u.Name
	if name == "" {
		name = u.FirstName + " " + u.LastName
	}
	return User{
		Provider:  u.Provider,
		Subject:   u.UserID,
		Email:     u.Email,
		Name:      name,
		AvatarURL: u.AvatarURL,
	}
}

// Manager issues and reads the signed, encrypted session cookie.
type Manager struct {
	store    *sessions.CookieStore
	duration time.Duration
	now      func() time.Time
}

// NewManager derives cookie keys from secret. An empty secret gets random
// keys, which means sessions do not survive a restart.
func NewManager(secret string, duration time.Duration, secure bool) *Manager {
	var hashKey, blockKey []byte
	if secret == "" {
		hashKey = securecookie.GenerateRandomKey(64)
		blockKey = securecookie.GenerateRandomKey(32)
	} else {
		h := sha256.Sum256([]byte("hash:" + secret))
		b := sha256.Sum256([]byte("block:" + secret))
		hashKey, blockKey = h[:], b[:]
	}
	if duration <= 0 {
		duration = 24 * time.Hour
	}

	store := sessions.NewCookieStore(hashKey, blockKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(duration.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &Manager{store: store, duration: duration, now: time.Now}
}

// Store exposes the cookie store so the OAuth state cookie shares keys.
func (m *Manager) Store() sessions.Store {
	return m.store
}

func (m *Manager) StoreSession(w http.ResponseWriter, r *http.Request, user User) error {
	s, err := m.store.New(r, sessionName)
	if err != nil && s == nil {
		return fmt.Errorf("new session: %w", err)
	}
	s.Values["user"] = user
	s.Values["expires_at"] = m.now().Add(m.duration).Unix()
	if err := s.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (m *Manager) GetSession(r *http.Request) (*Session, error) {
	s, err := m.store.Get(r, sessionName)
	if err != nil || s.IsNew {
		return nil, ErrNoSession
	}
	user, ok := s.Values["user"].(User)
	if !ok {
		return nil, ErrNoSession
	}
	exp, ok := s.Values["expires_at"].(int64)
	if !ok {
		return nil, ErrNoSession
	}
	expiresAt := time.Unix(exp, 0)
	if !m.now().Before(expiresAt) {
		return nil, ErrNoSession
	}
	return &Session{User: user, ExpiresAt: expiresAt}, nil
}

func (m *Manager) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.store.Options.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// WithAuth sends visitors without a session to the login page.
func (m *Manager) WithAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := m.GetSession(r)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r.WithContext(WithUser(r.Context(), &s.User)))
	}
}

// WithoutAuth sends visitors that already have a session to redirect.
func (m *Manager) WithoutAuth(redirect string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := m.GetSession(r); err == nil {
			http.Redirect(w, r, redirect, http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}
