package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tendant/media-proxy/pkg/mediaproxy/activity"
	"github.com/tendant/media-proxy/pkg/mediaproxy/api"
	"github.com/tendant/media-proxy/pkg/mediaproxy/config"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load server configuration: %v", err)
	}

	svc, closeSink, err := cfg.BuildService(logger)
	if err != nil {
		log.Fatalf("Failed to build service: %v", err)
	}
	defer closeSink()

	registry := activity.NewRegistry(cfg.ActivityTTL, time.Minute)
	defer registry.Close()

	handler := api.NewHandler(svc, registry, api.Config{
		JWTSecret:       cfg.JWTSecret,
		PlaceholderPath: cfg.PlaceholderPath,
	}, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Mount("/", handler.Routes())

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
	}

	go func() {
		logger.Info("media proxy server starting",
			"port", cfg.Port, "env", cfg.Environment, "storage", cfg.StorageBackend)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("server exiting")
}
