// Package embedding defines the embedding collaborator boundary used by the
// retrieval engine, plus a deterministic offline implementation suitable for
// tests and environments without an embedding backend.
package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Embedder turns text into fixed-length vectors for similarity search.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector length produced by this embedder.
	Dimensions() int
}

// HashEmbedder is a deterministic bag-of-tokens embedder: each token is
// hashed into one of Dimensions buckets and the resulting vector is
// L2-normalized. It has no semantic power beyond lexical overlap, which is
// exactly what deterministic retrieval tests need, and it doubles as a
// degraded offline fallback.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder creates a HashEmbedder with the given vector length.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 256
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Embed implements Embedder. It never fails and ignores ctx beyond the usual
// cancellation check.
func (h *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = h.embedOne(text)
	}
	return vectors, nil
}

// Dimensions implements Embedder.
func (h *HashEmbedder) Dimensions() int { return h.dimensions }

func (h *HashEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, h.dimensions)
	for _, token := range Tokenize(text) {
		hasher := fnv.New32a()
		_, _ = hasher.Write([]byte(token))
		vec[int(hasher.Sum32())%h.dimensions]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

// Tokenize lower-cases text and splits it on non-letter/non-digit runes.
// Shared with the retrieval engine's keyword extraction.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
