package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Landing page variants served at "/".
const (
	LandingClassic    = "classic"
	LandingResponsive = "responsive"
)

type Config struct {
	Port           string        `env:"BACKEND_PORT"    envDefault:"8080"`
	ReadTimeout    time.Duration `env:"READ_TIMEOUT"    envDefault:"15s"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT"   envDefault:"15s"`
	IdleTimeout    time.Duration `env:"IDLE_TIMEOUT"    envDefault:"60s"`
	InstanceName   string        `env:"INSTANCE_NAME"   envDefault:"hrms-lite-1"`
	LogLevel       string        `env:"LOG_LEVEL"       envDefault:"info"`
	BaseURL        string        `env:"BASE_URL"        envDefault:"http://localhost:8080"`
	LandingVariant string        `env:"LANDING_VARIANT" envDefault:"responsive"`

	// AccountsDB turns on the Postgres account directory. Connection
	// settings are the POSTGRES_* variables.
	AccountsDB bool `env:"ACCOUNTS_DB_ENABLED" envDefault:"false"`

	Session   SessionConfig   `envPrefix:"SESSION_"`
	Identity  IdentityConfig  `envPrefix:"IDENTITY_"`
	Google    OAuthClient     `envPrefix:"GOOGLE_"`
	LinkedIn  OAuthClient     `envPrefix:"LINKEDIN_"`
	Images    ImageConfig     `envPrefix:"IMAGE_"`
	MagicLink MagicLinkConfig `envPrefix:"MAGIC_LINK_"`
}

type SessionConfig struct {
	Secret   string        `env:"SECRET"`
	Duration time.Duration `env:"DURATION" envDefault:"24h"`
	Secure   bool          `env:"SECURE"   envDefault:"false"`
}

// IdentityConfig points at the hosted identity service. URL and AnonKey are
// the public values the sign-in widget is initialised with.
//
// The service's magic-link email template must link to
// {{ .RedirectTo }}?token_hash={{ .TokenHash }}&type=email so the link
// lands on /auth/confirm with a token_hash. The stock template sends a
// URL fragment or a code, which this server cannot read.
type IdentityConfig struct {
	URL       string `env:"URL"`
	AnonKey   string `env:"ANON_KEY"`
	JWTSecret string `env:"JWT_SECRET"`
}

type OAuthClient struct {
	Key    string `env:"KEY"`
	Secret string `env:"SECRET"`
}

// Enabled reports whether both halves of the client credentials are set.
func (c OAuthClient) Enabled() bool {
	return c.Key != "" && c.Secret != ""
}

type ImageConfig struct {
	Domains      []string      `env:"DOMAINS"       envDefault:"via.placeholder.com,res.cloudinary.com,images.unsplash.com,cdn.pixabay.com" envSeparator:","`
	CacheTTL     time.Duration `env:"CACHE_TTL"     envDefault:"1h"`
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT" envDefault:"10s"`
}

type MagicLinkConfig struct {
	Interval time.Duration `env:"INTERVAL" envDefault:"60s"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.LandingVariant = strings.ToLower(strings.TrimSpace(cfg.LandingVariant))
	if cfg.LandingVariant != LandingClassic {
		cfg.LandingVariant = LandingResponsive
	}

	domains := make([]string, 0, len(cfg.Images.Domains))
	for _, d := range cfg.Images.Domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			domains = append(domains, d)
		}
	}
	cfg.Images.Domains = domains

	return cfg, nil
}

// CallbackURL builds the absolute OAuth callback for a provider.
func (c Config) CallbackURL(provider string) string {
	return c.BaseURL + "/auth/" + provider + "/callback"
}

// ConfirmURL is where the hosted identity service sends email-link clicks.
func (c Config) ConfirmURL() string {
	return c.BaseURL + "/auth/confirm"
}
