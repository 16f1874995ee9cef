package services

import (
	"strings"
	"unicode/utf8"
)

// TextChunker splits long documents into pieces small enough for one
// embedding request.
type TextChunker interface {
	ChunkText(text string, maxChunkSize int, overlap int) []string
}

type textChunker struct{}

func NewTextChunker() TextChunker {
	return &textChunker{}
}

// ChunkText implements TextChunker. Sizes are in runes. Lines are packed into
// chunks whole; a line longer than a chunk is split at sentence ends, and a
// sentence longer than a chunk is cut hard. Each chunk after the first starts
// with the last overlap runes of the previous one.
func (tc *textChunker) ChunkText(text string, maxChunkSize int, overlap int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChunkSize {
		overlap = maxChunkSize / 4
	}

	var (
		chunks  []string
		current strings.Builder
		size    int
		fresh   bool
	)

	flush := func() {
		if !fresh {
			return
		}
		chunk := current.String()
		chunks = append(chunks, chunk)
		current.Reset()
		size = 0
		fresh = false
		if tail := lastRunes(chunk, overlap); tail != "" {
			current.WriteString(tail)
			size = utf8.RuneCountInString(tail)
		}
	}

	add := func(piece, sep string) {
		n := utf8.RuneCountInString(piece)
		if size+len(sep)+n > maxChunkSize {
			flush()
		}
		if size+len(sep)+n > maxChunkSize {
			// The overlap does not fit next to this piece.
			current.Reset()
			size = 0
		}
		if size > 0 {
			current.WriteString(sep)
			size += len(sep)
		}
		current.WriteString(piece)
		size += n
		fresh = true
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) <= maxChunkSize {
			add(line, "\n")
			continue
		}
		for _, sentence := range splitIntoSentences(line) {
			for _, piece := range splitRunes(sentence, maxChunkSize-overlap) {
				add(piece, " ")
			}
		}
	}

	flush()

	return chunks
}

// splitIntoSentences splits after '.', '!' and '?', keeping the punctuation.
func splitIntoSentences(text string) []string {
	var (
		result []string
		start  int
	)
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				result = append(result, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		result = append(result, s)
	}
	return result
}

func splitRunes(s string, n int) []string {
	if n <= 0 {
		n = 1
	}
	runes := []rune(s)
	if len(runes) <= n {
		return []string{s}
	}
	var out []string
	for len(runes) > 0 {
		end := n
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[:end]))
		runes = runes[end:]
	}
	return out
}

func lastRunes(text string, n int) string {
	if n <= 0 {
		return ""
	}

	runes := []rune(text)
	if len(runes) <= n {
		return text
	}

	return string(runes[len(runes)-n:])
}
