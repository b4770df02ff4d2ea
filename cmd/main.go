/*
Package main is the entry point for the zone server.

It is responsible for loading configuration, initializing the global logging system,
restoring zone state from the configured store, starting the zone loop and the HTTP
server, and gracefully handling operating system interrupt signals (SIGINT, SIGTERM)
so the final state is saved before the process exits.
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

	"zone/internal/app/library"
	"zone/internal/app/playback"
	"zone/internal/app/storage"
	"zone/internal/app/ticket"
	"zone/internal/app/zone"
	"zone/internal/configs"
	"zone/internal/handler"
	"zone/internal/pkg/clock"
	"zone/internal/pkg/logx"
	"zone/internal/pkg/pow"
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
		Int("pow_difficulty", cfg.PowDifficulty).
		Str("state_backend", cfg.StateBackend).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, storage.Config{
		Driver:            cfg.StateBackend,
		SQLitePath:        cfg.SQLitePath,
		DatabaseURL:       cfg.DatabaseDSN,
		S3BucketName:      cfg.S3BucketName,
		S3Endpoint:        cfg.S3Endpoint,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
		S3Prefix:          cfg.S3Prefix,
	})
	if err != nil {
		logx.Fatal(err, "Failed to open state store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logx.Error(err, "Failed to close state store")
		}
	}()

	var lib *library.Library
	if cfg.LibraryPath != "" {
		lib, err = library.Load(cfg.LibraryPath)
		if err != nil {
			logx.Fatal(err, "Failed to load media library", "path", cfg.LibraryPath)
		}
		logx.Info("Media library loaded.", "items", lib.Len())
	}

	// Initialize the zone and restore persisted state before the loop starts
	z := zone.New(clock.Real(), zone.Config{
		Playback: playback.Config{
			PerSubmitterLimit: cfg.QueueLimit,
			VoteThreshold:     cfg.VoteSkipThreshold,
		},
		AdminPasswordHash: cfg.AdminPasswordHash,
		Store:             store,
	})
	if err := z.Load(ctx, store); err != nil {
		logx.Fatal(err, "Failed to restore zone state")
	}
	go z.Run()
	go z.Autosave(ctx, cfg.AutosaveInterval)

	tickets := ticket.NewBroker(clock.Real(), cfg.TokenSecret, cfg.TicketExpiry)

	var powManager *pow.Manager
	if cfg.PowDifficulty > 0 {
		powManager = pow.NewManager(cfg.PowDifficulty)
	}

	// Setup HTTP server and routes
	router := handler.Router(&handler.AppDeps{
		Zone:    z,
		Tickets: tickets,
		Config:  cfg,
		Library: lib,
		Pow:     powManager,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Zone Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	if err := z.Save(shutdownCtx); err != nil {
		logx.Error(err, "Final save failed")
	}

	z.Stop()
	<-z.Done()

	tickets.Close()
	if powManager != nil {
		powManager.Stop()
	}

	logx.Info("Server gracefully stopped.")
}
