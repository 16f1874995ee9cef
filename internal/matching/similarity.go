package matching

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
)

// StrategyName identifies a similarity strategy in configuration and reports.
type StrategyName string

const (
	StrategyLexical  StrategyName = "lexical"
	StrategySemantic StrategyName = "semantic"
)

// ParseStrategy maps a configuration value to a strategy name.
func ParseStrategy(s string) (StrategyName, error) {
	switch StrategyName(s) {
	case StrategyLexical, "tfidf", "":
		return StrategyLexical, nil
	case StrategySemantic, "embedding", "bert":
		return StrategySemantic, nil
	}
	return "", fmt.Errorf("unknown similarity strategy %q", s)
}

var (
	// ErrEmptyDocument is returned when a document has no text to score.
	ErrEmptyDocument = errors.New("document has no text")
	// ErrSimilarityUnavailable wraps failures of an external similarity
	// collaborator such as the embedding service.
	ErrSimilarityUnavailable = errors.New("similarity service unavailable")
	// ErrDimensionMismatch is returned for embeddings of different lengths.
	ErrDimensionMismatch = errors.New("vector dimensions differ")
)

// Similarity scores a job description against a resume. The result is in
// [0,1]. Both documents belong to corpus, the frozen set of documents of the
// current batch.
type Similarity interface {
	Name() StrategyName
	Score(ctx context.Context, jd, resume Document, corpus *Corpus) (float64, error)
}

// Preparer is implemented by strategies that can do per-batch work once,
// before resumes are scored concurrently. An error from Prepare means no
// resume of the batch can be scored.
type Preparer interface {
	Prepare(ctx context.Context, jd Document, corpus *Corpus) error
}

// Corpus is an immutable snapshot of the documents compared in one batch.
// Corpus-relative weighting (TF-IDF) is computed from it once, lazily.
type Corpus struct {
	docs []Document

	lexOnce sync.Once
	lex     *lexicalModel
}

// NewCorpus copies docs so later changes by the caller do not leak into a
// running batch.
func NewCorpus(docs ...Document) *Corpus {
	snapshot := make([]Document, len(docs))
	copy(snapshot, docs)
	return &Corpus{docs: snapshot}
}

// Len returns the number of documents in the snapshot.
func (c *Corpus) Len() int {
	return len(c.docs)
}

// Documents returns a copy of the snapshot.
func (c *Corpus) Documents() []Document {
	out := make([]Document, len(c.docs))
	copy(out, c.docs)
	return out
}

func (c *Corpus) lexical() *lexicalModel {
	c.lexOnce.Do(func() {
		c.lex = buildLexicalModel(c.docs)
	})
	return c.lex
}

// ToPercent converts a cosine similarity to a 0-100 score. Negative cosines,
// possible with dense embeddings, clamp to 0. The result keeps two decimals.
func ToPercent(cosine float64) float64 {
	return math.Round(Clamp01(cosine)*10000) / 100
}

// Clamp01 limits v to [0,1]; NaN becomes 0.
func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// CosineDense computes the cosine similarity of two dense vectors. A zero
// vector on either side yields 0.
func CosineDense(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}
