package core

// Chunk is a bounded span of ingested text with its embedding vector. Chunks
// are created at ingestion time and immutable thereafter; a chunk is uniquely
// identified by (SourceID, SequenceIndex).
type Chunk struct {
	SourceID      string            `json:"source_id"`
	SequenceIndex int               `json:"sequence_index"`
	Text          string            `json:"text"`
	Embedding     []float32         `json:"embedding,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// ScoredChunk pairs a retrieved chunk with its similarity score.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}
