package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/plantlab/lessonhub/internal/api"
	"github.com/plantlab/lessonhub/internal/api/middleware"
	"github.com/plantlab/lessonhub/internal/auth"
	"github.com/plantlab/lessonhub/internal/config"
	"github.com/plantlab/lessonhub/internal/logger"
	"github.com/plantlab/lessonhub/internal/repository"
	"github.com/plantlab/lessonhub/internal/service"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.SetDefaultLogger(logger.NewDefault())
	defer logger.Sync()

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	// Initialize repositories
	lessonRepo := repository.NewLessonRepository(db)
	archiveRepo := repository.NewArchiveRepository(db)
	resolutionRepo := repository.NewResolutionRepository(db)
	dismissalRepo := repository.NewDismissalRepository(db)

	// Initialize optional vector index
	var finderIndex service.VectorIndex
	var cleanupIndex service.VectorIndexCleaner
	if cfg.Qdrant.Enabled {
		qdrantRepo, err := repository.NewQdrantRepository(&repository.QdrantConnectionConfig{
			Host:            cfg.Qdrant.Host,
			Port:            cfg.Qdrant.Port,
			Collection:      cfg.Qdrant.Collection,
			APIKey:          cfg.Qdrant.APIKey,
			UseTLS:          cfg.Qdrant.UseTLS,
			VectorDimension: cfg.Dedup.EmbeddingDimensions,
		})
		if err != nil {
			logger.Fatal("Failed to initialize Qdrant repository: %v", err)
		}
		defer qdrantRepo.Close()

		if err := qdrantRepo.EnsureCollection(context.Background()); err != nil {
			logger.Fatal("Failed to ensure Qdrant collection: %v", err)
		}
		finderIndex = qdrantRepo
		cleanupIndex = qdrantRepo
	}

	// Initialize auth provider chain: static service tokens, then the
	// external role provider when configured.
	providers := auth.ChainProvider{auth.NewStaticTokenProvider(cfg.Auth.ServiceTokens)}
	if cfg.Auth.ProviderURL != "" {
		providers = append(providers, auth.NewHTTPProvider(cfg.Auth.ProviderURL, cfg.Auth.Timeout))
	}

	// Initialize services
	finder := service.NewFinderService(lessonRepo, finderIndex, &service.FinderConfig{
		SimilarityThreshold: cfg.Dedup.SimilarityThreshold,
		ExcludedTitle:       cfg.Dedup.ExcludedTitle,
	})
	resolution := service.NewResolutionService(db, lessonRepo, archiveRepo, resolutionRepo, dismissalRepo, cleanupIndex)
	review := service.NewReviewService(lessonRepo, &service.ReviewConfig{
		BaseURL:       cfg.Review.BaseURL,
		PreviewLength: cfg.Review.PreviewLength,
	})

	// Setup router
	router := api.SetupRouter(finder, resolution, review, providers, middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	}, cfg.Server.Mode)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting API server: port=%d, mode=%s", cfg.Server.Port, cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
