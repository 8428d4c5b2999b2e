package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gorilla/securecookie"
)

const (
	csrfName = "hrms_csrf"

	// CSRFField is the form field that carries the token on POST.
	CSRFField = "csrf_token"
)

var ErrCSRF = errors.New("missing or invalid form token")

// CSRFToken returns the browser's form token, issuing a new one in a signed
// cookie when the request carries none.
func (m *Manager) CSRFToken(w http.ResponseWriter, r *http.Request) string {
	s, _ := m.store.Get(r, csrfName)
	if tok, ok := s.Values["token"].(string); ok && tok != "" {
		return tok
	}
	tok := base64.RawURLEncoding.EncodeToString(securecookie.GenerateRandomKey(32))
	s.Values["token"] = tok
	if err := s.Save(r, w); err != nil {
		return ""
	}
	return tok
}

// CheckCSRF compares the submitted form token with the cookie.
func (m *Manager) CheckCSRF(r *http.Request) error {
	s, err := m.store.Get(r, csrfName)
	if err != nil || s.IsNew {
		return ErrCSRF
	}
	want, _ := s.Values["token"].(string)
	got := r.PostFormValue(CSRFField)
	if want == "" || subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
		return ErrCSRF
	}
	return nil
}

// WithCSRF rejects state-changing requests without a matching form token.
func (m *Manager) WithCSRF(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
		default:
			if err := m.CheckCSRF(r); err != nil {
				http.Error(w, "Forbidden: invalid form token", http.StatusForbidden)
				return
			}
		}
		next(w, r)
	}
}
