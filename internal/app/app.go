// Package app assembles the matcher from configuration. The HTTP server and
// the ingestion CLI share it.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"alfredoptarigan/resume-matcher/internal/config"
	"alfredoptarigan/resume-matcher/internal/matching"
	"alfredoptarigan/resume-matcher/internal/repositories"
	"alfredoptarigan/resume-matcher/internal/services"
)

type App struct {
	DB *gorm.DB

	Resumes repositories.ResumeRepository
	Jobs    repositories.JobDescriptionRepository
	Matches repositories.MatchResultRepository
	Runs    repositories.MatchRunRepository

	Documents services.DocumentService
	Matcher   services.MatcherService
	Worker    services.Worker

	// Defaults are the batch options for requests that do not override them.
	Defaults services.BatchOptions
}

// Build connects to the database and wires every service. Semantic matching
// is enabled only when a Gemini API key is configured.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	strategy, err := matching.ParseStrategy(cfg.Matching.Strategy)
	if err != nil {
		return nil, err
	}

	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		return nil, err
	}

	a := &App{
		DB:      db,
		Resumes: repositories.NewResumeRepository(db),
		Jobs:    repositories.NewJobDescriptionRepository(db),
		Matches: repositories.NewMatchResultRepository(db),
		Runs:    repositories.NewMatchRunRepository(db),
		Defaults: services.BatchOptions{
			Strategy:      strategy,
			AllowFallback: cfg.Matching.AllowFallback,
			TopK:          cfg.Matching.TopK,
		},
	}

	storage := services.NewStorageService(cfg.Storage.UploadPath)
	if err := storage.EnsureUploadDir(); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	semantic, evicter, err := buildSemantic(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	a.Documents = services.NewDocumentService(a.Resumes, a.Jobs, storage, services.NewTextExtractor(), evicter, log)

	// A nil *Semantic must stay a nil interface for the matcher.
	var sim matching.Similarity
	if semantic != nil {
		sim = semantic
	}
	a.Matcher = services.NewMatcherService(a.Jobs, a.Resumes, a.Matches, sim, cfg.Matching.Workers, log)

	a.Worker = services.NewWorker(a.Runs, a.Matcher, services.WorkerOptions{
		Concurrency:  cfg.Worker.Concurrency,
		PollInterval: cfg.Worker.PollInterval,
		Defaults:     a.Defaults,
	}, log)

	return a, nil
}

type embeddingStore interface {
	matching.EmbeddingCache
	services.EmbeddingEvicter
}

func buildSemantic(ctx context.Context, cfg *config.Config, log *zap.Logger) (*matching.Semantic, services.EmbeddingEvicter, error) {
	if cfg.Gemini.APIKey == "" {
		log.Warn("GEMINI_API_KEY not set, semantic matching disabled")
		return nil, nil, nil
	}

	gemini, err := services.NewGeminiService(ctx, services.GeminiOptions{
		APIKey:       cfg.Gemini.APIKey,
		EmbedModel:   cfg.Gemini.EmbedModel,
		RatePerSec:   cfg.Matching.EmbedRatePerSec,
		MaxRetries:   cfg.Gemini.MaxRetries,
		RetryBackoff: cfg.Gemini.RetryBackoff,
	}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize gemini: %w", err)
	}

	var store embeddingStore = matching.NewMemoryCache()
	if cfg.Qdrant.URL != "" {
		qdrant, err := services.NewQdrantService(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, cfg.Qdrant.VectorSize, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize qdrant: %w", err)
		}
		if err := qdrant.InitCollection(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to initialize qdrant collection: %w", err)
		}
		store = qdrant
		log.Info("embedding cache backed by qdrant", zap.String("collection", cfg.Qdrant.Collection))
	} else {
		log.Info("embedding cache kept in memory")
	}

	semantic := matching.NewSemantic(gemini, matching.SemanticOptions{
		Cache:       store,
		Concurrency: cfg.Matching.EmbedConcurrency,
		Timeout:     cfg.Matching.EmbedTimeout,
	})
	return semantic, store, nil
}
