package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.IdleTimeout)
	assert.Equal(t, LandingResponsive, cfg.LandingVariant)
	assert.Equal(t, 24*time.Hour, cfg.Session.Duration)
	assert.Equal(t, time.Minute, cfg.MagicLink.Interval)
	assert.False(t, cfg.Google.Enabled())
	assert.False(t, cfg.LinkedIn.Enabled())
	assert.False(t, cfg.AccountsDB)
}

func TestLoadImageDomainsDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"via.placeholder.com",
		"res.cloudinary.com",
		"images.unsplash.com",
		"cdn.pixabay.com",
	}, cfg.Images.Domains)
}

func TestLoadImageDomainsOverride(t *testing.T) {
	t.Setenv("IMAGE_DOMAINS", " Example.COM , ,cdn.test ")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"example.com", "cdn.test"}, cfg.Images.Domains)
}

func TestLoadIdentity(t *testing.T) {
	t.Setenv("IDENTITY_URL", "https://project.identity.test")
	t.Setenv("IDENTITY_ANON_KEY", "anon")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://project.identity.test", cfg.Identity.URL)
	assert.Equal(t, "anon", cfg.Identity.AnonKey)
}

func TestLoadLandingVariant(t *testing.T) {
	t.Setenv("LANDING_VARIANT", "Classic")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, LandingClassic, cfg.LandingVariant)

	t.Setenv("LANDING_VARIANT", "retro")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, LandingResponsive, cfg.LandingVariant)
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("READ_TIMEOUT", "soon")
	_, err := Load()
	assert.Error(t, err)
}

func TestCallbackURL(t *testing.T) {
	t.Setenv("BASE_URL", "https://hr.example.com/")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://hr.example.com/auth/google/callback", cfg.CallbackURL("google"))
	assert.Equal(t, "https://hr.example.com/auth/confirm", cfg.ConfirmURL())
}
