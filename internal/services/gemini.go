package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const (
	defaultEmbedModel = "text-embedding-004"
	embedChunkSize    = 6000
	embedChunkOverlap = 200
)

// GeminiService embeds text with a Gemini embedding model. It satisfies
// matching.Embedder.
type GeminiService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type GeminiOptions struct {
	APIKey       string
	EmbedModel   string
	RatePerSec   float64
	MaxRetries   int
	RetryBackoff time.Duration
}

// embedFunc returns one vector per chunk.
type embedFunc func(ctx context.Context, chunks []string) ([][]float32, error)

type geminiService struct {
	embed        embedFunc
	chunker      TextChunker
	limiter      *rate.Limiter
	maxRetries   int
	retryBackoff time.Duration
	logger       *zap.Logger
}

func NewGeminiService(ctx context.Context, opts GeminiOptions, logger *zap.Logger) (GeminiService, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := strings.TrimSpace(opts.EmbedModel)
	if model == "" {
		model = defaultEmbedModel
	}

	embed := func(ctx context.Context, chunks []string) ([][]float32, error) {
		contents := make([]*genai.Content, 0, len(chunks))
		for _, c := range chunks {
			contents = append(contents, genai.NewContentFromText(c, genai.RoleUser))
		}

		result, err := client.Models.EmbedContent(ctx, model, contents, &genai.EmbedContentConfig{
			TaskType: "SEMANTIC_SIMILARITY",
		})
		if err != nil {
			return nil, err
		}
		if result == nil || len(result.Embeddings) != len(chunks) {
			return nil, errors.New("embedding count does not match chunk count")
		}

		vectors := make([][]float32, len(result.Embeddings))
		for i, e := range result.Embeddings {
			vectors[i] = e.Values
		}
		return vectors, nil
	}

	logger.Info("gemini embedder ready", zap.String("model", model), zap.Float64("rate_per_sec", opts.RatePerSec))
	return newGeminiService(embed, opts, logger), nil
}

func newGeminiService(embed embedFunc, opts GeminiOptions, logger *zap.Logger) *geminiService {
	limit := rate.Inf
	burst := 1
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
		burst = int(opts.RatePerSec)
		if burst < 1 {
			burst = 1
		}
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}

	return &geminiService{
		embed:        embed,
		chunker:      NewTextChunker(),
		limiter:      rate.NewLimiter(limit, burst),
		maxRetries:   opts.MaxRetries,
		retryBackoff: opts.RetryBackoff,
		logger:       logger,
	}
}

// Embed implements GeminiService. Long text is embedded in chunks whose
// vectors are averaged, weighted by chunk length. Failures wrap
// ErrRateLimited or ErrServiceUnavailable.
func (g *geminiService) Embed(ctx context.Context, text string) ([]float32, error) {
	chunks := g.chunker.ChunkText(text, embedChunkSize, embedChunkOverlap)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: nothing to embed", ErrInvalidInput)
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
		}

		vectors, err := g.embed(ctx, chunks)
		if err == nil {
			return meanPool(chunks, vectors)
		}

		lastErr = classifyEmbedError(err)
		if !errors.Is(lastErr, ErrRateLimited) || attempt == g.maxRetries {
			break
		}

		backoff := g.retryBackoff * time.Duration(1<<(attempt-1))
		g.logger.Warn("embedding rate limited, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff))

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, ctx.Err())
		case <-time.After(backoff):
		}
	}

	return nil, lastErr
}

func classifyEmbedError(err error) error {
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		code = apiErrPtr.Code
	}

	if code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
}

func meanPool(chunks []string, vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 || len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d chunks", ErrServiceUnavailable, len(vectors), len(chunks))
	}
	if len(vectors) == 1 {
		return vectors[0], nil
	}

	dim := len(vectors[0])
	sum := make([]float64, dim)
	var total float64
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: chunk embeddings differ in size", ErrServiceUnavailable)
		}
		w := float64(utf8.RuneCountInString(chunks[i]))
		total += w
		for j, x := range v {
			sum[j] += w * float64(x)
		}
	}

	out := make([]float32, dim)
	for j := range sum {
		out[j] = float32(sum[j] / total)
	}
	return out, nil
}
