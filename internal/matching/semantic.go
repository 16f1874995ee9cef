package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Embedder turns text into a fixed-length dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingCache stores embeddings by document id and content hash, so an
// edited document is embedded again.
type EmbeddingCache interface {
	Get(ctx context.Context, docID, contentHash string) ([]float32, bool, error)
	Put(ctx context.Context, docID, contentHash string, vector []float32) error
}

// SemanticOptions tunes calls to the embedder.
type SemanticOptions struct {
	Cache       EmbeddingCache
	Concurrency int
	Timeout     time.Duration
}

// Semantic scores documents by cosine similarity of their embeddings. Scores
// do not depend on the rest of the batch, but they do depend on the model
// behind the embedder, and their distribution differs from lexical scores.
type Semantic struct {
	embedder Embedder
	cache    EmbeddingCache
	timeout  time.Duration
	slots    chan struct{}
	group    singleflight.Group
}

const defaultEmbedTimeout = 30 * time.Second

// NewSemantic wraps embedder. A nil cache defaults to an in-memory cache.
func NewSemantic(embedder Embedder, opts SemanticOptions) *Semantic {
	if opts.Cache == nil {
		opts.Cache = NewMemoryCache()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultEmbedTimeout
	}
	return &Semantic{
		embedder: embedder,
		cache:    opts.Cache,
		timeout:  opts.Timeout,
		slots:    make(chan struct{}, opts.Concurrency),
	}
}

// Name implements Similarity.
func (s *Semantic) Name() StrategyName {
	return StrategySemantic
}

// Score implements Similarity. The corpus is not needed: embeddings are
// independent of the batch.
func (s *Semantic) Score(ctx context.Context, jd, resume Document, _ *Corpus) (float64, error) {
	if jd.IsEmpty() || resume.IsEmpty() {
		return 0, nil
	}

	jv, err := s.Embedding(ctx, jd)
	if err != nil {
		return 0, err
	}
	rv, err := s.Embedding(ctx, resume)
	if err != nil {
		return 0, err
	}

	cos, err := CosineDense(jv, rv)
	if err != nil {
		return 0, err
	}
	return Clamp01(cos), nil
}

// Prepare implements Preparer by embedding the job description.
func (s *Semantic) Prepare(ctx context.Context, jd Document, _ *Corpus) error {
	_, err := s.Embedding(ctx, jd)
	return err
}

// Embedding returns the cached embedding of doc or asks the embedder for it.
// Concurrent requests for the same content share one call. Embedder failures
// are reported as ErrSimilarityUnavailable.
func (s *Semantic) Embedding(ctx context.Context, doc Document) ([]float32, error) {
	if doc.IsEmpty() {
		return nil, fmt.Errorf("embed document %s: %w", doc.ID, ErrEmptyDocument)
	}

	hash := doc.ContentHash()
	if vec, ok, err := s.cache.Get(ctx, doc.ID, hash); err == nil && ok {
		return vec, nil
	}

	// The shared call outlives any single caller: it runs detached, bounded
	// by the embed timeout, and each caller waits only as long as its own
	// context allows.
	ch := s.group.DoChan(doc.ID+":"+hash, func() (interface{}, error) {
		shared := context.WithoutCancel(ctx)
		vec, err := s.embed(shared, doc.Text)
		if err != nil {
			return nil, err
		}
		// A failed cache write only costs a future embedding call.
		_ = s.cache.Put(shared, doc.ID, hash, vec)
		return vec, nil
	})

	var v interface{}
	var err error
	select {
	case res := <-ch:
		v, err = res.Val, res.Err
	case <-ctx.Done():
		err = fmt.Errorf("%w: %w", ErrSimilarityUnavailable, ctx.Err())
	}
	if err != nil {
		return nil, fmt.Errorf("embed document %s: %w", doc.ID, err)
	}
	return v.([]float32), nil
}

func (s *Semantic) embed(ctx context.Context, text string) ([]float32, error) {
	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrSimilarityUnavailable, ctx.Err())
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		if !errors.Is(err, ErrSimilarityUnavailable) {
			err = fmt.Errorf("%w: %w", ErrSimilarityUnavailable, err)
		}
		return nil, err
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrSimilarityUnavailable)
	}
	return vec, nil
}

// MemoryCache is an EmbeddingCache kept in process memory.
type MemoryCache struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewMemoryCache returns an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{vectors: make(map[string][]float32)}
}

// Get implements EmbeddingCache.
func (c *MemoryCache) Get(_ context.Context, docID, contentHash string) ([]float32, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vec, ok := c.vectors[docID+":"+contentHash]
	return vec, ok, nil
}

// Put implements EmbeddingCache.
func (c *MemoryCache) Put(_ context.Context, docID, contentHash string, vector []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vectors[docID+":"+contentHash] = vector
	return nil
}

// DeleteDocument drops every cached version of a document.
func (c *MemoryCache) DeleteDocument(_ context.Context, docID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.vectors {
		if strings.HasPrefix(key, docID+":") {
			delete(c.vectors, key)
		}
	}
	return nil
}
