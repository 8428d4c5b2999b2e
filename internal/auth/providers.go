package auth

import (
	"sort"

	"HRMSLite/internal/config"

	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	"github.com/markbates/goth/providers/linkedin"
)

// Social identity providers offered by the sign-in widget, in display order.
const (
	ProviderGoogle   = "google"
	ProviderLinkedIn = "linkedin"
)

// SetupProviders registers every social provider that has credentials and
// points gothic at the session manager's cookie store. It returns the names
// that were registered.
func SetupProviders(cfg config.Config, m *Manager) []string {
	gothic.Store = m.Store()

	var providers []goth.Provider
	if cfg.Google.Enabled() {
		providers = append(providers, google.New(
			cfg.Google.Key, cfg.Google.Secret, cfg.CallbackURL(ProviderGoogle),
			"email", "profile",
		))
	}
	if cfg.LinkedIn.Enabled() {
		providers = append(providers, linkedin.New(
			cfg.LinkedIn.Key, cfg.LinkedIn.Secret, cfg.CallbackURL(ProviderLinkedIn),
		))
	}

	goth.ClearProviders()
	goth.UseProviders(providers...)

	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name())
	}
	sort.Strings(names)
	return names
}

// Enabled reports whether name was registered by SetupProviders.
func Enabled(name string) bool {
	_, err := goth.GetProvider(name)
	return err == nil
}
