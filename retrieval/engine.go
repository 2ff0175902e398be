// Package retrieval implements the RAG subsystem: chunking of ingested text,
// embedding-backed nearest-neighbor lookup over a per-corpus document store,
// context assembly for prompt injection, and query expansion for ambiguous
// anaphoric questions.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/hupe1980/tutormesh/core"
	"github.com/hupe1980/tutormesh/embedding"
	"github.com/hupe1980/tutormesh/logging"
)

// deicticTerms is the closed list of anaphoric/deictic markers that trigger
// query expansion when a conversation window is available.
var deicticTerms = []string{
	"it", "this", "that", "they", "these", "those", "he", "she", "its",
	"compare", "它", "这", "那",
}

// stopWords are excluded from topic keyword extraction.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true,
	"to": true, "of": true, "in": true, "on": true, "and": true, "or": true,
	"for": true, "with": true, "as": true, "by": true, "at": true, "be": true,
	"that": true, "this": true, "it": true, "you": true, "your": true,
	"can": true, "will": true, "not": true, "from": true, "have": true,
	"has": true, "its": true, "which": true, "what": true, "when": true,
}

// Options configures an Engine.
type Options struct {
	ChunkSize     int
	ChunkOverlap  int
	ContextBudget int
	// ExpansionKeywords caps how many topic keywords query expansion appends.
	ExpansionKeywords int
	Logger            logging.Logger
}

// Engine splits ingested text into chunks, computes embeddings, answers
// nearest-neighbor queries and builds prompt context. It holds no private
// chunk copies; the Store owns all chunk data.
type Engine struct {
	store    Store
	embedder embedding.Embedder
	splitter *Splitter

	contextBudget     int
	expansionKeywords int
	logger            logging.Logger
}

// NewEngine constructs an Engine over the given store and embedder.
func NewEngine(store Store, embedder embedding.Embedder, optFns ...func(o *Options)) *Engine {
	opts := Options{
		ChunkSize:         1000,
		ChunkOverlap:      200,
		ContextBudget:     6000,
		ExpansionKeywords: 5,
		Logger:            logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Engine{
		store:             store,
		embedder:          embedder,
		splitter:          NewSplitter(opts.ChunkSize, opts.ChunkOverlap),
		contextBudget:     opts.ContextBudget,
		expansionKeywords: opts.ExpansionKeywords,
		logger:            opts.Logger,
	}
}

// Ingest splits text into overlapping chunks, embeds them and appends them to
// the corpus. It returns the number of chunks written. Empty or whitespace
// text is an ingestion error surfaced to the caller.
func (e *Engine) Ingest(ctx context.Context, corpus, text string, metadata map[string]string) (int, error) {
	texts := e.splitter.Split(text)
	if len(texts) == 0 {
		return 0, core.IngestionError("source text is empty")
	}

	vectors, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, core.IngestionError("embedding failed: %v", err)
	}
	if len(vectors) != len(texts) {
		return 0, core.IngestionError("embedder returned %d vectors for %d chunks", len(vectors), len(texts))
	}

	sourceID := core.NewID()
	if metadata != nil {
		if id, ok := metadata["source_id"]; ok && id != "" {
			sourceID = id
		}
	}

	chunks := make([]core.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = core.Chunk{
			SourceID:      sourceID,
			SequenceIndex: i,
			Text:          t,
			Embedding:     vectors[i],
			Metadata:      metadata,
		}
	}
	if err := e.store.Append(corpus, chunks); err != nil {
		return 0, core.IngestionError("store append failed: %v", err)
	}

	e.logger.Debug("ingested source", "corpus", corpus, "source_id", sourceID, "chunks", len(chunks))
	return len(chunks), nil
}

// Retrieve returns the k most similar chunks for the query, ordered by
// descending cosine similarity with ties broken by chunk insertion order.
// Identical (query, k, corpus state) inputs yield identical ordered results.
func (e *Engine) Retrieve(ctx context.Context, corpus, query string, k int) ([]core.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	chunks, err := e.store.Chunks(corpus)
	if err != nil {
		return nil, core.RetrievalError(err)
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	vectors, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, core.RetrievalError(fmt.Errorf("query embedding: %w", err))
	}
	queryVec := vectors[0]

	scored := make([]core.ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		scored = append(scored, core.ScoredChunk{Chunk: c, Score: cosine(queryVec, c.Embedding)})
	}
	// Stable sort keeps insertion order on equal similarity.
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// BuildContext retrieves the top-k chunks and concatenates their text with
// source labels for direct prompt injection, truncated to the context budget.
// An empty corpus yields an empty string without error.
func (e *Engine) BuildContext(ctx context.Context, corpus, query string, k int) (string, error) {
	results, err := e.Retrieve(ctx, corpus, query, k)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", nil
	}

	var b strings.Builder
	for i, r := range results {
		source := r.Chunk.SourceID
		if name, ok := r.Chunk.Metadata["source"]; ok && name != "" {
			source = name
		}
		part := fmt.Sprintf("[source %d: %s]\n%s", i+1, source, r.Chunk.Text)
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		b.WriteString(part)
	}

	out := b.String()
	if runes := []rune(out); len(runes) > e.contextBudget {
		out = string(runes[:e.contextBudget])
	}
	return out, nil
}

// ExpandQuery recovers retrieval accuracy for ambiguous short questions: when
// the query contains a deictic term and recent history is available, topic
// keywords extracted from the last assistant turn are appended to the query.
// Queries without anaphora pass through unchanged.
func (e *Engine) ExpandQuery(query string, history []core.Message) string {
	if !containsDeictic(query) {
		return query
	}

	var lastAssistant string
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == core.RoleAssistant {
			lastAssistant = history[i].Content
			break
		}
	}
	if lastAssistant == "" {
		return query
	}

	keywords := TopicKeywords(lastAssistant, e.expansionKeywords)
	if len(keywords) == 0 {
		return query
	}
	return query + " " + strings.Join(keywords, " ")
}

// TopicKeywords extracts up to max frequent non-stopword tokens from text,
// ordered by frequency then first occurrence for determinism.
func TopicKeywords(text string, max int) []string {
	tokens := embedding.Tokenize(text)
	counts := map[string]int{}
	firstSeen := map[string]int{}
	for i, tok := range tokens {
		if len(tok) < 3 || stopWords[tok] {
			continue
		}
		if _, ok := counts[tok]; !ok {
			firstSeen[tok] = i
		}
		counts[tok]++
	}

	unique := make([]string, 0, len(counts))
	for tok := range counts {
		unique = append(unique, tok)
	}
	sort.Slice(unique, func(i, j int) bool {
		if counts[unique[i]] != counts[unique[j]] {
			return counts[unique[i]] > counts[unique[j]]
		}
		return firstSeen[unique[i]] < firstSeen[unique[j]]
	})

	if max > len(unique) {
		max = len(unique)
	}
	return unique[:max]
}

func containsDeictic(query string) bool {
	tokens := embedding.Tokenize(query)
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	for _, term := range deicticTerms {
		if isASCII(term) {
			if set[term] {
				return true
			}
			continue
		}
		// CJK text carries no word separators, so tokenization never
		// isolates these markers; match them as substrings instead.
		if strings.Contains(query, term) {
			return true
		}
	}
	return false
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > 127 {
			return false
		}
	}
	return true
}

// cosine computes cosine similarity; mismatched or zero vectors score 0.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
