package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"HRMSLite/internal/config"
	"HRMSLite/internal/logger"
	"HRMSLite/internal/server"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Initialize JSON logging
	entry := logger.New(cfg.InstanceName, cfg.LogLevel)
	log.SetFlags(0)
	log.SetOutput(&logger.JSONLogger{Entry: entry})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(cfg, entry)
	if err != nil {
		entry.WithError(err).Fatal("server setup failed")
	}

	entry.Infof("Serving on port %s...", cfg.Port)
	if err := srv.ListenAndServe(ctx); err != nil {
		entry.WithError(err).Fatal("server stopped")
	}
	entry.Info("server stopped")
}
