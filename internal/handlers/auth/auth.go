package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"HRMSLite/internal/auth"
	"HRMSLite/internal/db"
	"HRMSLite/internal/handlers/login"
	"HRMSLite/internal/identity"
	"HRMSLite/internal/metrics"
	"HRMSLite/internal/ratelimit"
	loginpage "HRMSLite/web/templates/pages/login"

	"github.com/jackc/pgx/v5"
	"github.com/markbates/goth/gothic"
	"github.com/sirupsen/logrus"
)

// ProviderEmail tags users who signed in through an email link.
const ProviderEmail = "email"

// EmailLinks is the hosted identity service as seen by the handlers.
type EmailLinks interface {
	SendMagicLink(ctx context.Context, email, redirectTo string) error
	VerifyEmailLink(ctx context.Context, tokenHash string) (*identity.Session, error)
}

// AccountRecorder keeps the account directory current on sign-in.
type AccountRecorder interface {
	RecordSignIn(ctx context.Context, u auth.User) (*db.Account, error)
}

type AuthHandler struct {
	sessions   *auth.Manager
	links      EmailLinks
	limiter    *ratelimit.Keyed
	page       *login.Page
	confirmURL string
	log        *logrus.Entry
}

// NewAuthHandler wires the sign-in flows. links may be nil, in which case
// email-link sign-in answers 503.
func NewAuthHandler(sessions *auth.Manager, links EmailLinks, limiter *ratelimit.Keyed, page *login.Page, confirmURL string, log *logrus.Entry) *AuthHandler {
	return &AuthHandler{
		sessions:   sessions,
		links:      links,
		limiter:    limiter,
		page:       page,
		confirmURL: confirmURL,
		log:        log,
	}
}

// withProvider copies the {provider} path segment into the query, where
// gothic looks for it.
func withProvider(r *http.Request) (*http.Request, string) {
	provider := r.PathValue("provider")
	q := r.URL.Query()
	q.Set("provider", provider)
	r2 := r.Clone(r.Context())
	r2.URL.RawQuery = q.Encode()
	return r2, provider
}

func (h *AuthHandler) BeginAuthHandler(w http.ResponseWriter, r *http.Request) {
	r, provider := withProvider(r)
	if !auth.Enabled(provider) {
		http.NotFound(w, r)
		return
	}
	gothic.BeginAuthHandler(w, r)
}

func (h *AuthHandler) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	h.oauthCallback(w, r, nil)
}

// CallbackHandlerWithDB is CallbackHandler with the account directory.
func (h *AuthHandler) CallbackHandlerWithDB(w http.ResponseWriter, r *http.Request, conn *pgx.Conn) {
	h.oauthCallback(w, r, db.NewAccounts(conn))
}

func (h *AuthHandler) oauthCallback(w http.ResponseWriter, r *http.Request, accounts AccountRecorder) {
	r, provider := withProvider(r)
	if !auth.Enabled(provider) {
		http.NotFound(w, r)
		return
	}

	gu, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		metrics.RecordSignIn(provider, "failed")
		h.log.WithError(err).WithField("provider", provider).Warn("oauth callback failed")
		redirectWithError(w, r, login.ErrOAuthFailed)
		return
	}
	h.finishSignIn(w, r, auth.FromGoth(gu), accounts)
}

// finishSignIn records the account when a directory is available, then
// issues the session cookie.
func (h *AuthHandler) finishSignIn(w http.ResponseWriter, r *http.Request, user auth.User, accounts AccountRecorder) {
	if accounts != nil {
		acc, err := accounts.RecordSignIn(r.Context(), user)
		if err != nil {
			metrics.RecordSignIn(user.Provider, "failed")
			h.log.WithError(err).WithField("provider", user.Provider).Error("record account failed")
			http.Error(w, "Failed to process user data", http.StatusInternalServerError)
			return
		}
		h.log.WithField("account_id", acc.ID).Infof("account signed in: %s", acc.Email)
	}

	if err := h.sessions.StoreSession(w, r, user); err != nil {
		metrics.RecordSignIn(user.Provider, "failed")
		h.log.WithError(err).Error("session creation failed")
		redirectWithError(w, r, login.ErrSessionFailed)
		return
	}

	metrics.RecordSignIn(user.Provider, "ok")
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

// MagicLinkHandler asks the identity service to email a sign-in link.
func (h *AuthHandler) MagicLinkHandler(w http.ResponseWriter, r *http.Request) {
	if h.links == nil {
		h.page.Render(w, r, http.StatusServiceUnavailable, loginpage.Props{
			Error: "Email sign-in is not available right now.",
		})
		return
	}

	raw := r.PostFormValue("email")
	email, err := identity.NormalizeEmail(raw)
	if err != nil {
		h.page.Render(w, r, http.StatusBadRequest, loginpage.Props{
			Email: raw,
			Error: "Please enter a valid email address.",
		})
		return
	}

	// Only sent links count against the address.
	undo := func() {}
	if h.limiter != nil {
		var ok bool
		undo, ok = h.limiter.Reserve(email)
		if !ok {
			h.page.Render(w, r, http.StatusTooManyRequests, loginpage.Props{
				Email: email,
				Error: "A sign-in link was sent recently. Please wait a minute before asking again.",
			})
			return
		}
	}

	if err := h.links.SendMagicLink(r.Context(), email, h.confirmURL); err != nil {
		undo()
		metrics.RecordSignIn(ProviderEmail, "send_failed")
		h.log.WithError(err).Warn("send magic link failed")

		status, msg := http.StatusBadGateway, "We could not send the sign-in link. Please try again."
		var apiErr *identity.APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			status, msg = http.StatusBadRequest, apiErr.Message
		}
		h.page.Render(w, r, status, loginpage.Props{Email: email, Error: msg})
		return
	}

	metrics.RecordSignIn(ProviderEmail, "sent")
	h.page.Render(w, r, http.StatusOK, loginpage.Props{
		Email:  email,
		Notice: "Check your email for the login link.",
	})
}

// ConfirmHandler completes email-link sign-in. It expects the token_hash
// query parameter; see config.IdentityConfig for the email template.
func (h *AuthHandler) ConfirmHandler(w http.ResponseWriter, r *http.Request) {
	h.confirm(w, r, nil)
}

func (h *AuthHandler) ConfirmHandlerWithDB(w http.ResponseWriter, r *http.Request, conn *pgx.Conn) {
	h.confirm(w, r, db.NewAccounts(conn))
}

func (h *AuthHandler) confirm(w http.ResponseWriter, r *http.Request, accounts AccountRecorder) {
	if h.links == nil {
		http.Error(w, "Email sign-in is not available", http.StatusServiceUnavailable)
		return
	}

	s, err := h.links.VerifyEmailLink(r.Context(), r.URL.Query().Get("token_hash"))
	if err != nil {
		metrics.RecordSignIn(ProviderEmail, "failed")
		h.log.WithError(err).Warn("email link verification failed")
		redirectWithError(w, r, login.ErrLinkInvalid)
		return
	}

	h.finishSignIn(w, r, auth.User{
		Provider:  ProviderEmail,
		Subject:   s.User.ID,
		Email:     s.User.Email,
		Name:      s.User.DisplayName(),
		AvatarURL: s.User.AvatarURL(),
	}, accounts)
}

func (h *AuthHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	_ = gothic.Logout(w, r)
	h.sessions.ClearSession(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func redirectWithError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, "/login?error="+url.QueryEscape(code), http.StatusSeeOther)
}
