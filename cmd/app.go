package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/recently/internal/config"
	"github.com/jfmyers9/recently/internal/recent"
	"github.com/jfmyers9/recently/internal/settings"
	"github.com/jfmyers9/recently/pkg/lastfm"
)

// app bundles the pieces every command needs
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	store   *settings.Store
	service *recent.Service
}

// loadConfig loads configuration and applies persistent flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	return cfg, nil
}

// openSettings opens the settings store under the data directory
func openSettings(cfg *config.Config) (*settings.Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := settings.NewStore(cfg.SettingsPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open settings: %w", err)
	}
	return store, nil
}

// newApp wires configuration, logging, the settings store and the
// recent-tracks service
func newApp(defaultLevel string) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if logLevel == "" && defaultLevel != "" {
		level = defaultLevel
	}
	logger := setupLogger(logFile, level)

	store, err := openSettings(cfg)
	if err != nil {
		return nil, err
	}

	client, err := lastfm.NewClient(lastfm.Config{
		BaseURL: cfg.LastFM.BaseURL,
		Timeout: cfg.LastFM.Timeout,
		Logger:  recent.NewLastFMLogger(logger),
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create Last.fm client: %w", err)
	}

	resolver := recent.NewResolver(store, recent.OSEnv{}, logger)
	service := recent.NewService(
		recent.Config{DefaultLimit: cfg.DefaultLimit},
		client.User(),
		resolver,
		recent.NewCache(cfg.CacheTTL),
		logger,
	)

	return &app{cfg: cfg, logger: logger, store: store, service: service}, nil
}

// Close releases the settings store
func (a *app) Close() error {
	return a.store.Close()
}

// signalContext returns a context cancelled on SIGINT/SIGTERM. A second
// signal forces exit.
func signalContext(logger zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
			signal.Stop(sigChan)
			return
		}
		logger.Info().Msg("Shutdown signal received, initiating graceful shutdown")
		cancel()

		<-sigChan
		logger.Warn().Msg("Second shutdown signal received, forcing exit")
		os.Exit(1)
	}()

	return ctx, cancel
}
