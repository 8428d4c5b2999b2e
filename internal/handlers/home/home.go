package home

import (
	"net/http"

	"HRMSLite/internal/auth"
	"HRMSLite/web/templates/pages/home"
)

// Handler renders the signed-in home page. allowed reports whether an
// avatar URL may be routed through the image pipeline.
func Handler(sessions *auth.Manager, allowed func(src string) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Set by auth.Manager.WithAuth.
		user := auth.UserFrom(r.Context())

		token := sessions.CSRFToken(w, r)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		home.Home(user, allowed, token).Render(r.Context(), w)
	}
}
