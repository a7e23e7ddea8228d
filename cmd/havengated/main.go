package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/havengate/havengate/internal/haven/common/clock"
	"github.com/havengate/havengate/internal/haven/common/log"
	"github.com/havengate/havengate/internal/haven/config"
	"github.com/havengate/havengate/internal/haven/domain"
	"github.com/havengate/havengate/internal/haven/gateways/httpapi"
	"github.com/havengate/havengate/internal/haven/gateways/remote"
	"github.com/havengate/havengate/internal/haven/gateways/telemetry"
	"github.com/havengate/havengate/internal/haven/repos/allowlist"
	"github.com/havengate/havengate/internal/haven/repos/allowlist/bolt"
	"github.com/havengate/havengate/internal/haven/repos/decisioncache"
	"github.com/havengate/havengate/internal/haven/services/gate"
)

const (
	version = "0.1.0-dev"
	appName = "havengated"

	defaultShutdownTimeout = 10 * time.Second
)

// Application holds the wired components of the protection engine.
type Application struct {
	config *config.AppConfig
	store  allowlist.Store
	source *allowlist.Source
	sink   *telemetry.Sink
	gate   *gate.Gate
	api    *httpapi.Server
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	if err := log.Configure(cfg.Env, cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"version":          version,
		"env":              cfg.Env,
		"log_level":        cfg.LogLevel,
		"db_path":          cfg.DBPath,
		"allowlist_url":    cfg.AllowlistURL != "",
		"telemetry_url":    cfg.TelemetryURL != "",
		"refresh_interval": cfg.RefreshInterval,
	}, "Starting crisis resource protection engine")

	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
		cancel()
	}()

	if err := app.Run(ctx); err != nil {
		log.Fatal(map[string]any{"error": err}, "Engine failed")
	}

	log.Info(nil, "Engine stopped gracefully")
}

// buildApplication constructs all components and wires them together.
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	clk := clock.RealClock{}
	logger := log.GetLogger()

	store, err := bolt.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}

	var fetcher allowlist.Fetcher
	if cfg.AllowlistURL != "" {
		f, err := remote.NewFetcher(remote.Options{URL: cfg.AllowlistURL, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("failed to create allowlist fetcher: %w", err)
		}
		fetcher = f
	} else {
		log.Info(nil, "Remote allowlist refresh disabled")
	}

	source := allowlist.NewSource(allowlist.Options{
		Store:   store,
		Fetcher: fetcher,
		Clock:   clk,
		Logger:  logger,
		TTL:     cfg.SnapshotTTL,
	})

	cache, err := decisioncache.New(int(cfg.CacheSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create decision cache: %w", err)
	}

	var sink *telemetry.Sink
	var sinkIface gate.TelemetrySink = gate.NopSink{}
	if cfg.TelemetryURL != "" {
		poster, err := telemetry.NewHTTPPoster(cfg.TelemetryURL, &http.Client{})
		if err != nil {
			return nil, fmt.Errorf("failed to create telemetry poster: %w", err)
		}
		device, _ := domain.ParseDeviceType(cfg.DeviceType)
		sink = telemetry.New(telemetry.Options{
			Poster:     poster,
			DeviceType: device,
			Clock:      clk,
			Logger:     logger,
		})
		sinkIface = sink
	} else {
		log.Info(nil, "Fuzzy-match telemetry disabled")
	}

	g := gate.New(gate.Options{
		Source:    source,
		Cache:     cache,
		Telemetry: sinkIface,
		Logger:    logger,
	})

	var api *httpapi.Server
	if cfg.ListenAddr != "" {
		api, err = httpapi.New(httpapi.Options{
			Addr:      cfg.ListenAddr,
			Evaluator: g,
			Snapshots: source,
			Logger:    logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create evaluate API: %w", err)
		}
	}

	return &Application{
		config: cfg,
		store:  store,
		source: source,
		sink:   sink,
		gate:   g,
		api:    api,
	}, nil
}

// Run starts the engine and blocks until the context is cancelled.
func (app *Application) Run(ctx context.Context) error {
	if app.api != nil {
		if err := app.api.Start(ctx); err != nil {
			return fmt.Errorf("failed to start evaluate API: %w", err)
		}
		log.Info(map[string]any{"address": app.api.Address()}, "Evaluate API started")
	}

	go app.refreshLoop(ctx)

	<-ctx.Done()
	log.Info(nil, "Shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		if app.api != nil {
			if err := app.api.Stop(); err != nil {
				log.Warn(map[string]any{"error": err}, "Error during API shutdown")
			}
		}
		if app.sink != nil {
			app.sink.Close()
		}
		if err := app.store.Close(); err != nil {
			log.Warn(map[string]any{"error": err}, "Error closing snapshot store")
		}
		close(done)
	}()

	select {
	case <-done:
		log.Info(nil, "Graceful shutdown completed")
		return nil
	case <-shutdownCtx.Done():
		log.Warn(map[string]any{"timeout": defaultShutdownTimeout}, "Shutdown timeout exceeded")
		return fmt.Errorf("shutdown timeout")
	}
}

// refreshLoop keeps the allowlist fresh: one jittered initial refresh so
// a fleet of agents does not stampede the endpoint, then a steady ticker.
// Refresh failures are already contained and logged by the source.
func (app *Application) refreshLoop(ctx context.Context) {
	jitter := time.Duration(rand.Int63n(int64(30 * time.Second)))
	select {
	case <-ctx.Done():
		return
	case <-time.After(jitter):
	}
	_ = app.source.Refresh(ctx)

	ticker := time.NewTicker(app.config.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = app.source.Refresh(ctx)
		}
	}
}
