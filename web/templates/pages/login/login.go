package login

import (
	"embed"

	"HRMSLite/web/templates"

	"github.com/a-h/templ"
)

//go:embed login.html
var files embed.FS

var page = templates.Parse(files, "login.html")

// Widget is the static configuration of the sign-in widget.
type Widget struct {
	Providers    []string
	MagicLink    bool
	SocialLayout string
	Theme        string
}

var DefaultWidget = Widget{
	Providers:    []string{"google", "linkedin"},
	MagicLink:    true,
	SocialLayout: "horizontal",
	Theme:        "supa",
}

var labels = map[string]string{
	"google":   "Google",
	"linkedin": "LinkedIn",
}

type Provider struct {
	Name    string
	Label   string
	Enabled bool
}

// Props carries the per-request state of the login page.
type Props struct {
	// Enabled reports whether a provider has server credentials.
	Enabled      func(name string) bool
	EmailEnabled bool
	Email        string
	Error        string
	Notice       string
	// CSRFToken goes into the email form.
	CSRFToken string
}

type view struct {
	Widget       Widget
	Providers    []Provider
	EmailEnabled bool
	Email        string
	Error        string
	Notice       string
	CSRFToken    string
}

func Login(w Widget, p Props) templ.Component {
	v := view{
		Widget:       w,
		EmailEnabled: p.EmailEnabled,
		Email:        p.Email,
		Error:        p.Error,
		Notice:       p.Notice,
		CSRFToken:    p.CSRFToken,
	}
	for _, name := range w.Providers {
		label, ok := labels[name]
		if !ok {
			label = name
		}
		v.Providers = append(v.Providers, Provider{
			Name:    name,
			Label:   label,
			Enabled: p.Enabled != nil && p.Enabled(name),
		})
	}
	return templates.Component(page, "layout.html", v)
}
