package home

import (
	"embed"

	"HRMSLite/internal/auth"
	"HRMSLite/web/templates"

	"github.com/a-h/templ"
)

//go:embed home.html
var files embed.FS

var page = templates.Parse(files, "home.html")

type view struct {
	User      *auth.User
	AvatarSrc string
	CSRFToken string
}

// Home renders the signed-in landing. allowed decides whether the avatar
// goes through the image pipeline or is linked directly.
func Home(user *auth.User, allowed func(src string) bool, csrfToken string) templ.Component {
	v := view{User: user, CSRFToken: csrfToken}
	if user != nil && user.AvatarURL != "" {
		v.AvatarSrc = user.AvatarURL
		if allowed != nil && allowed(user.AvatarURL) {
			v.AvatarSrc = templates.ImageURL(user.AvatarURL, 128)
		}
	}
	return templates.Component(page, "layout.html", v)
}
