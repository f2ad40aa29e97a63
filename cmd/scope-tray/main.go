package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/petems/scope-tray/internal/app"
	"github.com/petems/scope-tray/internal/audio"
	"github.com/petems/scope-tray/internal/config"
	"github.com/petems/scope-tray/internal/host"
	"github.com/petems/scope-tray/internal/hotkey"
	"github.com/petems/scope-tray/internal/logging"
	"github.com/petems/scope-tray/internal/permissions"
	"github.com/petems/scope-tray/internal/tray"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

func main() {
	// Load config from XDG/Library/AppData
	cfg, err := config.Load()
	if err != nil {
		// Use default logger if config fails to load
		log := logging.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize logger with configured level
	log := logging.NewWithLevel(cfg.LogLevel)

	// macOS asks for microphone approval; without it only playback works
	if cfg.Capture.Enabled {
		if err := permissions.EnsureMicrophone(); err != nil {
			log.Warn().Err(err).Msg("Capture disabled")
			cfg.Capture.Enabled = false
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize audio backend
	audioHost, err := host.New(cfg.Backend, log)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Backend).Msg("Failed to initialize audio")
	}
	defer audioHost.Close()

	if inputs, err := audio.ListInputDevices(audioHost); err != nil {
		log.Warn().Err(err).Msg("Failed to list input devices")
	} else {
		for _, dev := range inputs {
			log.Info().Str("id", dev.ID).Str("name", dev.Name).Bool("default", dev.Default).Msg("Input device")
		}
	}

	// Create tray UI first (we'll pass it to app)
	trayUI := tray.New(cfg, Version, Commit, log, cancel)

	// Create app with tray as status updater
	application, err := app.New(app.Config{
		Host:          audioHost,
		Config:        cfg,
		Logger:        log,
		StatusUpdater: trayUI,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize app")
	}

	// Set app reference in tray
	trayUI.SetApp(application)

	// A capture failure leaves playback usable
	_ = application.Start()

	// Register global hotkey
	hkManager, err := hotkey.New()
	switch {
	case errors.Is(err, hotkey.ErrUnsupported):
		log.Info().Msg("Global hotkey unavailable on this platform")
	case err != nil:
		log.Warn().Err(err).Msg("Failed to initialize hotkeys")
	default:
		defer hkManager.Close()
		if err := hkManager.Register(cfg.PlatformHotkey(), application.OnHotkey); err != nil {
			log.Warn().Err(err).Str("hotkey", cfg.PlatformHotkey()).Msg("Failed to register hotkey")
		}
	}

	if len(os.Args) > 1 {
		_ = application.Play(os.Args[1])
	}

	log.Info().Str("version", Version).Msg("ScopeTray starting...")

	go func() {
		if err := application.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Monitor stopped")
		}
	}()

	// Start tray UI - MUST run on main thread
	if err := trayUI.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Tray error")
	}

	log.Info().Msg("Shutting down...")
	if err := application.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
}
