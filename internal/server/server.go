package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"HRMSLite/internal/auth"
	"HRMSLite/internal/config"
	appAuth "HRMSLite/internal/handlers/auth"
	"HRMSLite/internal/handlers/health"
	"HRMSLite/internal/handlers/home"
	"HRMSLite/internal/handlers/landing"
	"HRMSLite/internal/handlers/login"
	"HRMSLite/internal/middleware"
	"HRMSLite/internal/services"
	"HRMSLite/web"

	"github.com/gchalakovmmi/PulpuWEB/db"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type Server struct {
	config              config.Config
	log                 *logrus.Entry
	sessions            *auth.Manager
	authHandler         *appAuth.AuthHandler
	loginPage           *login.Page
	services            *services.Services
	dbConnectionDetails *db.ConnectionDetails
}

func New(cfg config.Config, log *logrus.Entry) (*Server, error) {
	sessions := auth.NewManager(cfg.Session.Secret, cfg.Session.Duration, cfg.Session.Secure)
	if cfg.Session.Secret == "" {
		log.Warn("SESSION_SECRET is not set; sessions will not survive a restart")
	}

	providers := auth.SetupProviders(cfg, sessions)
	log.WithField("providers", providers).Info("social sign-in providers registered")

	// Initialize services
	svc, err := services.New(cfg, log)
	if err != nil {
		return nil, err
	}

	// A nil interface, not a nil *identity.Client, when unconfigured.
	var links appAuth.EmailLinks
	if svc.Identity != nil {
		links = svc.Identity
	}

	loginPage := &login.Page{EmailEnabled: links != nil, Sessions: sessions}
	authHandler := appAuth.NewAuthHandler(
		sessions,
		links,
		svc.MagicLinkLimit,
		loginPage,
		cfg.ConfirmURL(),
		log,
	)

	s := &Server{
		config:      cfg,
		log:         log,
		sessions:    sessions,
		authHandler: authHandler,
		loginPage:   loginPage,
		services:    svc,
	}

	if cfg.AccountsDB {
		details, err := db.GetPostgresConfig()
		if err != nil {
			return nil, fmt.Errorf("database config: %w", err)
		}
		s.dbConnectionDetails = &details
	}

	return s, nil
}

func (s *Server) avatarAllowed(src string) bool {
	_, err := s.services.Allowlist.Check(src)
	return err == nil
}

func (s *Server) createHandler() http.Handler {
	mux := http.NewServeMux()

	// Static files and operational endpoints
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(web.Static())))
	mux.HandleFunc("GET /health", health.Handler)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /_image", s.services.Images)

	// Pages
	mux.Handle("GET /{$}", landing.Handler(s.config.LandingVariant))
	mux.Handle("GET /login", s.sessions.WithoutAuth("/home", s.loginPage.ServeHTTP))
	mux.Handle("GET /home", s.sessions.WithAuth(home.Handler(s.sessions, s.avatarAllowed)))

	// Authentication routes
	mux.HandleFunc("GET /auth/{provider}", s.authHandler.BeginAuthHandler)
	mux.HandleFunc("POST /auth/magic-link", s.sessions.WithCSRF(s.authHandler.MagicLinkHandler))
	if s.dbConnectionDetails != nil {
		mux.HandleFunc("GET /auth/{provider}/callback",
			db.WithDB(*s.dbConnectionDetails, s.authHandler.CallbackHandlerWithDB))
		mux.HandleFunc("GET /auth/confirm",
			db.WithDB(*s.dbConnectionDetails, s.authHandler.ConfirmHandlerWithDB))
	} else {
		mux.HandleFunc("GET /auth/{provider}/callback", s.authHandler.CallbackHandler)
		mux.HandleFunc("GET /auth/confirm", s.authHandler.ConfirmHandler)
	}
	mux.HandleFunc("POST /logout", s.sessions.WithCSRF(s.authHandler.LogoutHandler))

	var h http.Handler = mux
	h = middleware.WithMetrics(h)
	h = middleware.WithRequestLog(s.log, h)
	h = middleware.WithRecover(s.log, h)
	return h
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests for up to ten seconds.
func (s *Server) ListenAndServe(ctx context.Context) error {
	server := &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      s.createHandler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
