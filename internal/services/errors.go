package services

import (
	"errors"
	"fmt"

	"alfredoptarigan/resume-matcher/internal/matching"
	"alfredoptarigan/resume-matcher/internal/repositories"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = repositories.ErrNotFound
	ErrPersistence       = errors.New("failed to persist match results")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrCorruptFile       = errors.New("file is corrupt or unreadable")

	// ErrServiceUnavailable and ErrRateLimited are the embedding failures that
	// allow a semantic batch to fall back to lexical scoring.
	ErrServiceUnavailable = fmt.Errorf("embedding service unavailable: %w", matching.ErrSimilarityUnavailable)
	ErrRateLimited        = fmt.Errorf("embedding service rate limited: %w", matching.ErrSimilarityUnavailable)
)
