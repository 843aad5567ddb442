package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"festival-orders/internal/devserver"
	"festival-orders/internal/logger"
)

func main() {
	logger.New()

	port := getEnv("DEVSERVER_PORT", "8080")
	pin := getEnv("ADMIN_PIN", "1234")
	secret := getEnv("SESSION_SECRET", "")
	if secret == "" {
		secret = "devserver-local-secret"
		slog.Warn("SESSION_SECRET not set, using a fixed development secret")
	}

	srv := devserver.New(devserver.Config{
		PIN:       pin,
		JWTSecret: []byte(secret),
	})

	server := &http.Server{
		Addr:        ":" + port,
		Handler:     srv.Router(),
		ReadTimeout: 15 * time.Second,
		// No write timeout: the SSE stream endpoint holds its response open.
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		slog.Info("devserver listening", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start devserver", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down devserver")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("devserver forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("devserver stopped")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
