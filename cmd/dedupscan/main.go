// Command dedupscan runs one duplicate-detection pass over the lesson store
// and prints the unresolved candidate groups as JSON. It is operator tooling
// for inspecting the review queue without going through the API.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/plantlab/lessonhub/internal/config"
	"github.com/plantlab/lessonhub/internal/logger"
	"github.com/plantlab/lessonhub/internal/repository"
	"github.com/plantlab/lessonhub/internal/service"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config file")
	pairsOnly := flag.Bool("pairs", false, "print raw pairs instead of grouped components")
	includeResolved := flag.Bool("include-resolved", false, "keep groups that were already archived or dismissed")
	reindex := flag.Bool("reindex", false, "rebuild the vector index from the live lesson set before scanning")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.SetDefaultLogger(logger.NewDefault())
	defer logger.Sync()

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	lessonRepo := repository.NewLessonRepository(db)
	archiveRepo := repository.NewArchiveRepository(db)
	resolutionRepo := repository.NewResolutionRepository(db)
	dismissalRepo := repository.NewDismissalRepository(db)

	var finderIndex service.VectorIndex
	var qdrantRepo *repository.QdrantRepository
	if cfg.Qdrant.Enabled {
		qdrantRepo, err = repository.NewQdrantRepository(&repository.QdrantConnectionConfig{
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
		finderIndex = qdrantRepo
	}

	finder := service.NewFinderService(lessonRepo, finderIndex, &service.FinderConfig{
		SimilarityThreshold: cfg.Dedup.SimilarityThreshold,
		ExcludedTitle:       cfg.Dedup.ExcludedTitle,
	})
	resolution := service.NewResolutionService(db, lessonRepo, archiveRepo, resolutionRepo, dismissalRepo, nil)

	ctx := context.Background()

	if *reindex {
		if qdrantRepo == nil {
			logger.Fatal("Reindex requested but the vector index is not enabled in config")
		}
		if err := qdrantRepo.EnsureCollection(ctx); err != nil {
			logger.Fatal("Failed to ensure Qdrant collection: %v", err)
		}
		indexed, err := finder.RebuildIndex(ctx, qdrantRepo)
		if err != nil {
			logger.Fatal("Index rebuild failed: %v", err)
		}
		logger.Info("Index rebuild complete: points=%d", indexed)
	}

	pairs, err := finder.FindDuplicatePairs(ctx)
	if err != nil {
		logger.Fatal("Duplicate scan failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if *pairsOnly {
		if err := enc.Encode(pairs); err != nil {
			logger.Fatal("Failed to encode pairs: %v", err)
		}
		return
	}

	groups := service.GroupPairs(pairs)
	if !*includeResolved {
		groups, err = resolution.FilterUnresolved(ctx, groups)
		if err != nil {
			logger.Fatal("Failed to filter resolved groups: %v", err)
		}
	}

	if err := enc.Encode(groups); err != nil {
		logger.Fatal("Failed to encode groups: %v", err)
	}

	logger.Info("Scan complete: pairs=%d, groups=%d", len(pairs), len(groups))
}
