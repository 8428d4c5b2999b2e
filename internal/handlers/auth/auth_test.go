package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"HRMSLite/internal/auth"
	"HRMSLite/internal/db"
	"HRMSLite/internal/handlers/login"
	"HRMSLite/internal/identity"
	"HRMSLite/internal/ratelimit"

	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/faux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLinks struct {
	sent      []string
	redirect  string
	sendErr   error
	session   *identity.Session
	verifyErr error
}

func (f *fakeLinks) SendMagicLink(ctx context.Context, email, redirectTo string) error {
	f.sent = append(f.sent, email)
	f.redirect = redirectTo
	return f.sendErr
}

func (f *fakeLinks) VerifyEmailLink(ctx context.Context, tokenHash string) (*identity.Session, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.session, nil
}

type fakeAccounts struct {
	users []auth.User
	err   error
}

func (f *fakeAccounts) RecordSignIn(ctx context.Context, u auth.User) (*db.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.users = append(f.users, u)
	return &db.Account{ID: int64(len(f.users)), Email: u.Email}, nil
}

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newHandler(links EmailLinks) (*AuthHandler, *auth.Manager) {
	sessions := auth.NewManager("test-secret", time.Hour, false)
	gothic.Store = sessions.Store()
	h := NewAuthHandler(sessions, links, ratelimit.NewKeyed(time.Minute, 1),
		&login.Page{EmailEnabled: links != nil}, "https://hr.example.com/auth/confirm", quietLog())
	return h, sessions
}

func postEmail(h *AuthHandler, email string) *httptest.ResponseRecorder {
	form := url.Values{"email": {email}}
	req := httptest.NewRequest(http.MethodPost, "/auth/magic-link", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.MagicLinkHandler(rec, req)
	return rec
}

func sessionFrom(t *testing.T, m *auth.Manager, rec *httptest.ResponseRecorder) *auth.Session {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	s, err := m.GetSession(req)
	require.NoError(t, err)
	return s
}

func TestMagicLinkSends(t *testing.T) {
	links := &fakeLinks{}
	h, _ := newHandler(links)

	rec := postEmail(h, " Owner@Example.com ")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Check your email for the login link.")
	assert.Equal(t, []string{"owner@example.com"}, links.sent)
	assert.Equal(t, "https://hr.example.com/auth/confirm", links.redirect)
}

func TestMagicLinkInvalidEmail(t *testing.T) {
	links := &fakeLinks{}
	h, _ := newHandler(links)

	rec := postEmail(h, "owner")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "valid email address")
	assert.Empty(t, links.sent)
}

func TestMagicLinkRateLimited(t *testing.T) {
	links := &fakeLinks{}
	h, _ := newHandler(links)

	require.Equal(t, http.StatusOK, postEmail(h, "a@example.com").Code)
	rec := postEmail(h, "A@example.com")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Len(t, links.sent, 1)
	assert.Equal(t, http.StatusOK, postEmail(h, "b@example.com").Code)
}

func TestMagicLinkFailedSendDoesNotCount(t *testing.T) {
	links := &fakeLinks{sendErr: errors.New("connection refused")}
	h, _ := newHandler(links)

	assert.Equal(t, http.StatusBadGateway, postEmail(h, "a@example.com").Code)
	links.sendErr = nil
	assert.Equal(t, http.StatusOK, postEmail(h, "a@example.com").Code)
	assert.Len(t, links.sent, 2)
	assert.Equal(t, http.StatusTooManyRequests, postEmail(h, "a@example.com").Code)
}

func TestMagicLinkUpstreamErrors(t *testing.T) {
	links := &fakeLinks{sendErr: &identity.APIError{Status: 422, Message: "Signups not allowed for otp"}}
	h, _ := newHandler(links)
	rec := postEmail(h, "a@example.com")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Signups not allowed for otp")

	links = &fakeLinks{sendErr: errors.New("connection refused")}
	h, _ = newHandler(links)
	rec = postEmail(h, "a@example.com")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestMagicLinkNotConfigured(t *testing.T) {
	h, _ := newHandler(nil)
	rec := postEmail(h, "a@example.com")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.ConfirmHandler(rec, httptest.NewRequest(http.MethodGet, "/auth/confirm?token_hash=x", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestConfirmStoresSession(t *testing.T) {
	links := &fakeLinks{session: &identity.Session{User: identity.User{
		ID:           "u-1",
		Email:        "owner@example.com",
		UserMetadata: map[string]any{"full_name": "Ada Owner"},
	}}}
	h, sessions := newHandler(links)
	accounts := &fakeAccounts{}

	rec := httptest.NewRecorder()
	h.confirm(rec, httptest.NewRequest(http.MethodGet, "/auth/confirm?token_hash=abc&type=email", nil), accounts)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/home", rec.Header().Get("Location"))
	s := sessionFrom(t, sessions, rec)
	assert.Equal(t, auth.User{Provider: ProviderEmail, Subject: "u-1", Email: "owner@example.com", Name: "Ada Owner"}, s.User)
	require.Len(t, accounts.users, 1)
	assert.Equal(t, "u-1", accounts.users[0].Subject)
}

func TestConfirmInvalidLink(t *testing.T) {
	h, _ := newHandler(&fakeLinks{verifyErr: &identity.APIError{Status: 403, Message: "expired"}})

	rec := httptest.NewRecorder()
	h.ConfirmHandler(rec, httptest.NewRequest(http.MethodGet, "/auth/confirm?token_hash=old", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?error="+login.ErrLinkInvalid, rec.Header().Get("Location"))
	assert.Empty(t, rec.Result().Cookies())
}

func TestFinishSignInAccountFailure(t *testing.T) {
	h, _ := newHandler(nil)

	rec := httptest.NewRecorder()
	h.finishSignIn(rec, httptest.NewRequest(http.MethodGet, "/auth/google/callback", nil),
		auth.User{Provider: "google", Subject: "1"}, &fakeAccounts{err: errors.New("db down")})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestFinishSignInWithoutDirectory(t *testing.T) {
	h, sessions := newHandler(nil)

	rec := httptest.NewRecorder()
	h.finishSignIn(rec, httptest.NewRequest(http.MethodGet, "/auth/google/callback", nil),
		auth.User{Provider: "google", Subject: "1", Email: "g@example.com"}, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "g@example.com", sessionFrom(t, sessions, rec).User.Email)
}

func serveMux(h *AuthHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/{provider}", h.BeginAuthHandler)
	mux.HandleFunc("GET /auth/{provider}/callback", h.CallbackHandler)
	return mux
}

func TestBeginAuthUnknownProvider(t *testing.T) {
	goth.ClearProviders()
	h, _ := newHandler(nil)

	rec := httptest.NewRecorder()
	serveMux(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	serveMux(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google/callback", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBeginAuthRedirectsToProvider(t *testing.T) {
	goth.ClearProviders()
	goth.UseProviders(&faux.Provider{})
	t.Cleanup(goth.ClearProviders)
	h, _ := newHandler(nil)

	rec := httptest.NewRecorder()
	serveMux(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/faux", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Location"))
}

func TestCallbackWithoutStateFails(t *testing.T) {
	goth.ClearProviders()
	goth.UseProviders(&faux.Provider{})
	t.Cleanup(goth.ClearProviders)
	h, _ := newHandler(nil)

	rec := httptest.NewRecorder()
	serveMux(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/faux/callback", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?error="+login.ErrOAuthFailed, rec.Header().Get("Location"))
}

func TestLogoutClearsSession(t *testing.T) {
	h, _ := newHandler(nil)

	rec := httptest.NewRecorder()
	h.LogoutHandler(rec, httptest.NewRequest(http.MethodPost, "/logout", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "hrms_session" && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)
}
