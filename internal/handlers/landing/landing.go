package landing

import (
	"net/http"

	"HRMSLite/internal/config"
	"HRMSLite/web/templates/pages/landing"

	"github.com/a-h/templ"
)

// Handler serves the landing page variant chosen at startup.
func Handler(variant string) http.Handler {
	if variant == config.LandingClassic {
		return templ.Handler(landing.Classic())
	}
	return templ.Handler(landing.Responsive())
}
