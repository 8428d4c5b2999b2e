package services

import (
	"errors"
	"fmt"
	"time"

	"HRMSLite/internal/config"
	"HRMSLite/internal/identity"
	"HRMSLite/internal/images"
	"HRMSLite/internal/ratelimit"

	"github.com/sirupsen/logrus"
)

// Services holds the outbound clients and shared helpers the handlers use.
type Services struct {
	// Identity is nil when the hosted identity service is not configured.
	Identity       *identity.Client
	Allowlist      *images.Allowlist
	Images         *images.Pipeline
	MagicLinkLimit *ratelimit.Keyed
}

func New(cfg config.Config, log *logrus.Entry) (*Services, error) {
	// Initialize hosted identity client
	client, err := identity.NewClient(cfg.Identity.URL, cfg.Identity.AnonKey,
		identity.WithJWTSecret(cfg.Identity.JWTSecret),
		identity.WithMaxElapsed(identityBudget(cfg.WriteTimeout)))
	switch {
	case errors.Is(err, identity.ErrNotConfigured):
		log.Warn("IDENTITY_URL or IDENTITY_ANON_KEY is not set; email-link sign-in is disabled")
		client = nil
	case err != nil:
		return nil, fmt.Errorf("identity client: %w", err)
	}

	// Initialize image pipeline
	allowlist := images.NewAllowlist(cfg.Images.Domains)
	log.WithField("domains", cfg.Images.Domains).Info("image allow-list loaded")

	return &Services{
		Identity:       client,
		Allowlist:      allowlist,
		Images:         images.NewPipeline(allowlist, cfg.Images.FetchTimeout, cfg.Images.CacheTTL, log),
		MagicLinkLimit: ratelimit.NewKeyed(cfg.MagicLink.Interval, 1),
	}, nil
}

// identityBudget leaves room inside the server's write timeout to render the
// login page after the identity service gives up.
func identityBudget(writeTimeout time.Duration) time.Duration {
	if writeTimeout <= 0 {
		return 10 * time.Second
	}
	budget := writeTimeout * 2 / 3
	if budget < time.Second {
		budget = writeTimeout / 2
	}
	return budget
}
