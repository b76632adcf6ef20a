/*
Package main is the entry point for the chat relay server.

It loads configuration, initializes the global logging system, connects the
identity directory, wires the connection registry and broadcaster into the
HTTP layer, and handles operating system interrupt signals (SIGINT, SIGTERM)
for a graceful shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatrelay/internal/app/directory"
	"chatrelay/internal/app/relay"
	"chatrelay/internal/configs"
	"chatrelay/internal/handler"
	"chatrelay/internal/pkg/logx"
	"chatrelay/internal/pkg/randx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Bool("echo_self", cfg.EchoSelf).
		Bool("remove_on_disconnect", cfg.RemoveOnDisconnect).
		Msg("Configuration loaded successfully")

	// Development runs get an ephemeral session secret when none is set.
	// Existing cookies stop verifying across restarts, which is acceptable there.
	if cfg.SessionSecret == "" {
		secret, err := randx.Token(32)
		if err != nil {
			logx.Fatal(err, "Failed to generate development session secret")
		}
		cfg.SessionSecret = secret
		logx.Warn("SESSION_SECRET not set; generated an ephemeral development secret.")
	}

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect the identity directory (Postgres) and run migrations.
	store, err := directory.NewStore(ctx, cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to initialize identity directory")
	}
	defer store.Close()

	// Build the relay core and the HTTP layer around it.
	registry := relay.NewRegistry()
	broadcaster := relay.NewBroadcaster(registry, cfg.EchoSelf)

	deps := &handler.AppDeps{
		Config:      cfg,
		Directory:   store,
		Registry:    registry,
		Broadcaster: broadcaster,
	}

	router := handler.Router(deps)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     router,
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Chat relay server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for the interrupt signal, then shut down with a timeout.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	// Close every outbound handle so all pumps drain and exit.
	registry.CloseAll()

	logx.Info("Server gracefully stopped.")
}
