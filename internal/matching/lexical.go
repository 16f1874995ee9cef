package matching

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"
)

// MaxLexicalFeatures caps the TF-IDF vocabulary of one corpus.
const MaxLexicalFeatures = 5000

// Lexical scores documents by cosine similarity of TF-IDF vectors built over
// the batch corpus, using unigrams and bigrams without stop words.
//
// Weights are corpus-relative: the same pair scores differently in different
// batches, so lexical scores are only comparable within one batch.
type Lexical struct{}

// NewLexical returns the lexical strategy.
func NewLexical() *Lexical {
	return &Lexical{}
}

// Name implements Similarity.
func (l *Lexical) Name() StrategyName {
	return StrategyLexical
}

// Score implements Similarity. A nil corpus means a corpus of just the two
// documents.
func (l *Lexical) Score(_ context.Context, jd, resume Document, corpus *Corpus) (float64, error) {
	if jd.IsEmpty() || resume.IsEmpty() {
		return 0, nil
	}
	if corpus == nil {
		corpus = NewCorpus(jd, resume)
	}

	model := corpus.lexical()
	return Clamp01(model.vector(jd).dot(model.vector(resume))), nil
}

// Prepare implements Preparer by building the corpus model up front.
func (l *Lexical) Prepare(_ context.Context, _ Document, corpus *Corpus) error {
	if corpus != nil {
		corpus.lexical()
	}
	return nil
}

type sparseVector struct {
	idx []int
	val []float64
}

// dot walks both index lists in order, so the summation order and the result
// are the same on every run.
func (v sparseVector) dot(o sparseVector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v.idx) && j < len(o.idx) {
		switch {
		case v.idx[i] == o.idx[j]:
			sum += v.val[i] * o.val[j]
			i++
			j++
		case v.idx[i] < o.idx[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

type lexicalModel struct {
	index   map[string]int
	idf     []float64
	vectors map[string]sparseVector
	texts   map[string]string
}

func buildLexicalModel(docs []Document) *lexicalModel {
	counts := make([]map[string]int, len(docs))
	df := make(map[string]int)
	total := make(map[string]int)

	for i, d := range docs {
		counts[i] = termCounts(d.Text)
		for term, n := range counts[i] {
			df[term]++
			total[term] += n
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	if len(terms) > MaxLexicalFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if total[terms[i]] != total[terms[j]] {
				return total[terms[i]] > total[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:MaxLexicalFeatures]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	m := &lexicalModel{
		index:   make(map[string]int, len(terms)),
		idf:     make([]float64, len(terms)),
		vectors: make(map[string]sparseVector, len(docs)),
		texts:   make(map[string]string, len(docs)),
	}
	for i, term := range terms {
		m.index[term] = i
		m.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	for i, d := range docs {
		m.vectors[d.ID] = m.weigh(counts[i])
		m.texts[d.ID] = d.Text
	}
	return m
}

// vector returns the cached vector of a corpus document, or weighs the text
// against the corpus vocabulary when the document is not part of it.
func (m *lexicalModel) vector(d Document) sparseVector {
	if v, ok := m.vectors[d.ID]; ok && m.texts[d.ID] == d.Text {
		return v
	}
	return m.weigh(termCounts(d.Text))
}

func (m *lexicalModel) weigh(counts map[string]int) sparseVector {
	type weight struct {
		i int
		w float64
	}

	weights := make([]weight, 0, len(counts))
	for term, n := range counts {
		if i, ok := m.index[term]; ok {
			weights = append(weights, weight{i: i, w: float64(n) * m.idf[i]})
		}
	}
	sort.Slice(weights, func(a, b int) bool { return weights[a].i < weights[b].i })

	var norm float64
	for _, w := range weights {
		norm += w.w * w.w
	}
	if norm == 0 {
		return sparseVector{}
	}
	norm = math.Sqrt(norm)

	v := sparseVector{idx: make([]int, len(weights)), val: make([]float64, len(weights))}
	for k, w := range weights {
		v.idx[k] = w.i
		v.val[k] = w.w / norm
	}
	return v
}

// termCounts tokenizes text into unigram and bigram counts. Stop words are
// removed before bigrams are formed.
func termCounts(text string) map[string]int {
	tokens := tokenize(text)
	counts := make(map[string]int, len(tokens)*2)
	for i, tok := range tokens {
		counts[tok]++
		if i > 0 {
			counts[tokens[i-1]+" "+tok]++
		}
	}
	return counts
}

// tokenize lower-cases text and splits it into words. '+', '#' and inner dots
// are word characters so "c++", "c#" and "node.js" survive as tokens.
func tokenize(text string) []string {
	var tokens []string
	var word strings.Builder
	flush := func() {
		w := strings.Trim(word.String(), ".")
		word.Reset()
		if len([]rune(w)) < 2 || stopWords[w] {
			return
		}
		tokens = append(tokens, w)
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#' || r == '.' {
			word.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}
