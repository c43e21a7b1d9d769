package main

import (
	"alcyxob/workout-playlist/internal/api"
	"alcyxob/workout-playlist/internal/config"
	"alcyxob/workout-playlist/internal/domain"
	"alcyxob/workout-playlist/internal/events"
	"alcyxob/workout-playlist/internal/logger"
	"alcyxob/workout-playlist/internal/repository"
	"alcyxob/workout-playlist/internal/repository/mongo"
	"alcyxob/workout-playlist/internal/service"
	"alcyxob/workout-playlist/internal/storage"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// @title Workout Playlist API
// @version 1.0
// @description Builds validated video playlists for coached workouts.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	os.Exit(start())
}

// start runs the server and returns the process exit code. Deferred calls,
// including the logger flush, run before the process exits.
func start() int {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		return 1
	}

	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not build logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		return 1
	}
	return 0
}

func run(cfg config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts, err := service.OptionsFromConfig(cfg.Playlist)
	if err != nil {
		return fmt.Errorf("playlist options: %w", err)
	}

	// --- Database ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI, cfg.Database.ConnectTimeout)
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer func() {
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Error("failed to disconnect mongo", "error", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Info("database connected", "db", cfg.Database.Name)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := mongo.EnsureIndexes(ctx, appDB); err != nil {
			log.Warn("index creation failed", "error", err)
		}
	}()

	// --- Storage ---
	router, err := newStorageRouter(ctx, cfg, log)
	if err != nil {
		return err
	}

	// --- Playlist engine ---
	// The repository notifies listeners on writes; they are filled in once
	// the caches they invalidate exist.
	var listeners repository.ChangeListeners
	store := mongo.NewMongoClipRepository(appDB, &listeners, log)

	catalog := service.NewCatalog(store, opts.CatalogTTL, log)
	coverage := service.NewCoverageService(store, opts.CoverageKinds, opts.CoverageTTL, log)
	invalidator := service.NewInvalidator(catalog, coverage, log)
	listeners = append(listeners, invalidator)

	origin := uuid.NewString()
	var publisher api.ScopePublisher
	if cfg.Redis.Addr != "" {
		bus, err := events.NewRedisBus(cfg.Redis, origin, log)
		if err != nil {
			return fmt.Errorf("invalidation bus: %w", err)
		}
		defer bus.Close()
		if err := bus.Start(ctx, invalidator); err != nil {
			return fmt.Errorf("invalidation bus: %w", err)
		}
		notifier := events.NewNotifier(bus, origin, log)
		listeners = append(listeners, notifier)
		publisher = notifier
	}

	if cfg.Database.WatchChanges {
		go func() {
			if err := mongo.WatchChanges(ctx, appDB, invalidator, log); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("change stream stopped", "error", err)
			}
		}()
	}

	resolver := service.NewResolver(store, opts.ArchetypeFallbackOrder, log)
	checker := service.NewAvailabilityChecker(router, opts.ProbeTimeout, log)
	builder := service.NewPlaylistBuilder(catalog, coverage, resolver, checker, router, opts, log)

	// --- HTTP ---
	if cfg.Log.Mode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), api.RequestLogger(log))
	api.SetupRoutes(engine, cfg.JWT.Secret,
		api.NewPlaylistHandler(builder, cfg.Playlist.BuildTimeout, log),
		api.NewLibraryHandler(catalog, coverage, store, invalidator, publisher, opts.SimilarityWeights, log),
	)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      engine,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Playlist.BuildTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", cfg.Server.Address, "origin", origin)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	log.Info("server exited")
	return nil
}

// newStorageRouter wires a backend for every provider that is configured.
// External URLs need no credentials and are always available.
func newStorageRouter(ctx context.Context, cfg config.Config, log *logger.Logger) (*storage.Router, error) {
	httpClient := &http.Client{Timeout: 10 * time.Second}
	backends := map[domain.StorageProvider]storage.Backend{
		domain.ProviderExternal: storage.NewExternalBackend(httpClient),
	}
	if cfg.R2.BucketName != "" {
		r2, err := storage.NewR2Backend(ctx, cfg.R2)
		if err != nil {
			return nil, fmt.Errorf("r2 storage: %w", err)
		}
		backends[domain.ProviderR2] = r2
	} else {
		log.Warn("r2 bucket not configured, r2 clips will be reported unavailable")
	}
	if cfg.Stream.AccountID != "" {
		stream, err := storage.NewStreamBackend(cfg.Stream, httpClient)
		if err != nil {
			return nil, fmt.Errorf("stream storage: %w", err)
		}
		backends[domain.ProviderStream] = stream
	}

	return storage.NewRouter(backends, storage.BreakerSettings{
		MaxRequests:  cfg.Breaker.MaxRequests,
		Interval:     cfg.Breaker.Interval,
		Timeout:      cfg.Breaker.Timeout,
		MinRequests:  cfg.Breaker.MinRequests,
		FailureRatio: cfg.Breaker.FailureRatio,
	}, log), nil
}
