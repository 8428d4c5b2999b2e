package login

import (
	"net/http"

	"HRMSLite/internal/auth"
	"HRMSLite/web/templates/pages/login"

	"github.com/a-h/templ"
)

// Error codes passed back to the login page as ?error=<code>.
const (
	ErrOAuthFailed   = "oauth_failed"
	ErrLinkInvalid   = "link_invalid"
	ErrSessionFailed = "session_failed"
)

var messages = map[string]string{
	ErrOAuthFailed:   "Sign-in with that provider failed. Please try again.",
	ErrLinkInvalid:   "That sign-in link is invalid or has expired. Request a new one below.",
	ErrSessionFailed: "We could not start your session. Please try again.",
}

// Message turns an error code into text for the page. Unknown codes get a
// generic message so arbitrary query input is never echoed.
func Message(code string) string {
	if code == "" {
		return ""
	}
	if m, ok := messages[code]; ok {
		return m
	}
	return "Something went wrong. Please try again."
}

// Page renders the sign-in widget. Sessions, when set, issues the form
// token for the email form.
type Page struct {
	EmailEnabled bool
	Sessions     *auth.Manager
}

func (p *Page) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.Render(w, r, http.StatusOK, login.Props{Error: Message(r.URL.Query().Get("error"))})
}

// Render writes the page with status, filling in server-side state.
func (p *Page) Render(w http.ResponseWriter, r *http.Request, status int, props login.Props) {
	props.Enabled = auth.Enabled
	props.EmailEnabled = p.EmailEnabled
	if p.Sessions != nil {
		props.CSRFToken = p.Sessions.CSRFToken(w, r)
	}
	templ.Handler(login.Login(login.DefaultWidget, props), templ.WithStatus(status)).ServeHTTP(w, r)
}
