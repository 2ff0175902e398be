package retrieval

import "strings"

// Splitter cuts text into fixed-size overlapping windows. Overlap keeps
// continuity across chunk boundaries; sizes are in runes so multi-byte text
// splits at rune boundaries.
type Splitter struct {
	chunkSize int
	overlap   int
}

// NewSplitter creates a splitter. Overlap must be smaller than chunkSize;
// invalid values fall back to the 1000/200 defaults.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 || overlap < 0 || overlap >= chunkSize {
		chunkSize, overlap = 1000, 200
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}
}

// Split returns the ordered chunk texts for the input. Whitespace-only input
// yields no chunks; chunk texts are trimmed but never empty.
func (s *Splitter) Split(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	runes := []rune(trimmed)
	if len(runes) <= s.chunkSize {
		return []string{trimmed}
	}

	step := s.chunkSize - s.overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}
