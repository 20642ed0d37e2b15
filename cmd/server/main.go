package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ternarybob/arbor"

	"github.com/0verL1nk/rental-search/internal/config"
	"github.com/0verL1nk/rental-search/internal/handler"
	"github.com/0verL1nk/rental-search/internal/provider"
	"github.com/0verL1nk/rental-search/internal/repository"
	"github.com/0verL1nk/rental-search/internal/service"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("Rental Search")

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	// Initialize database connection
	repo, err := repository.NewPostgresRepository(
		cfg.GetPostgreSQLDSN(),
		cfg.PostgreSQL.MaxConnections,
		cfg.PostgreSQL.MaxIdleConnections,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer repo.Close()

	logger.Info().Msg("✅ Connected to PostgreSQL database")

	store, closeStore, err := openStore(cfg, repo, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("Failed to open saved search store")
	}
	defer closeStore()

	logger.Info().Str("driver", cfg.Store.Driver).Msg("✅ Saved search store ready")

	// Initialize providers
	var (
		geocoder provider.Geocoder
		places   provider.PlacesProvider
		routing  provider.RoutingProvider
	)
	if cfg.Providers.Enabled() {
		opts := []provider.Option{
			provider.WithBaseURL(cfg.Providers.BaseURL),
			provider.WithTimeout(cfg.Providers.Timeout),
			provider.WithRateLimit(cfg.Providers.RateLimit),
			provider.WithCacheTTL(cfg.Providers.CacheTTL),
			provider.WithLogger(logger),
		}
		g := provider.NewGoogleGeocoder(cfg.Providers.APIKey, opts...)
		defer g.Close()
		p := provider.NewGooglePlaces(cfg.Providers.APIKey, opts...)
		defer p.Close()
		geocoder, places, routing = g, p, provider.NewGoogleRouting(cfg.Providers.APIKey, opts...)

		logger.Info().
			Str("base_url", cfg.Providers.BaseURL).
			Int("rate_limit", cfg.Providers.RateLimit).
			Str("timeout", cfg.Providers.Timeout.String()).
			Msg("✅ Map providers initialized")
	} else {
		logger.Warn().Msg("⚠️  Map providers are disabled - address, POI and commute constraints will be assumed satisfied")
		logger.Warn().Msg("   Set MAPS_API_KEY environment variable to enable them")
	}

	var notifier provider.Notifier
	if cfg.Notifications.WebhookURL != "" {
		notifier = provider.NewWebhookNotifier(cfg.Notifications.WebhookURL, cfg.Notifications.Timeout, logger)
	} else {
		notifier = provider.NewLogNotifier(logger)
	}

	// Initialize services
	ranker := service.NewRanker(cfg.Ranking.WeightPrice, cfg.Ranking.WeightRecency)
	proximity := service.NewProximityFilter(places, routing, cfg.Providers.Timeout, logger)
	matcher := service.NewListingMatcher(geocoder, proximity, ranker, cfg.Matcher.Concurrency, cfg.Providers.Timeout, logger)
	scheduler := service.NewSearchScheduler(store, repo, matcher, notifier, cfg.Scheduler.Concurrency, logger)
	searchService := service.NewSearchService(repo, store, matcher, ranker, scheduler, logger)

	if cfg.Scheduler.Enabled {
		if err := scheduler.Start(cfg.Scheduler.Schedule); err != nil {
			logger.Fatal().Err(err).Str("schedule", cfg.Scheduler.Schedule).Msg("Failed to start scheduler")
		}
		defer scheduler.Stop()
	}

	logger.Info().Msg("✅ Services initialized")

	// Initialize handlers
	searchHandler := handler.NewSearchHandler(searchService, cfg.Search.DefaultLimit, cfg.Search.MaxLimit, logger)
	savedSearchHandler := handler.NewSavedSearchHandler(searchService, logger)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	corsConfig.AllowMethods = cfg.Server.AllowedMethods
	corsConfig.AllowHeaders = cfg.Server.AllowedHeaders
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":     "healthy",
			"service":    "rental-search",
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// Version endpoint
	router.GET("/version", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// API routes
	apiV1 := router.Group("/api/v1")
	{
		// Search endpoints
		apiV1.POST("/search", searchHandler.Search)
		apiV1.POST("/search/stream", searchHandler.SearchStream) // Streaming search

		// Saved search endpoints
		savedSearchHandler.RegisterRoutes(apiV1)
	}

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: router}

	logger.Info().Str("addr", addr).Msg("🚀 Starting server")
	logger.Info().Msg(fmt.Sprintf("📝 API Documentation: http://localhost:%d/api/v1", cfg.Server.Port))

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("✅ Server stopped")
}

// openStore opens the saved search store selected by STORE_DRIVER
func openStore(cfg *config.Config, repo *repository.PostgresRepository, logger arbor.ILogger) (repository.SavedSearchStore, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreDriverBadger:
		store, err := repository.NewBadgerStore(cfg.Store.BadgerPath, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		// Shares the catalog connection pool; closed with repo
		return repo, func() {}, nil
	}
}
