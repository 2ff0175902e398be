package capability

import (
	"encoding/json"
	"strings"

	"github.com/hupe1980/tutormesh/internal/util"
)

// decodeStructured applies the three-step recovery chain to raw model output:
// strict unmarshal of the whole text, then extraction of embedded JSON, then
// the caller's deterministic default. The returned level records which step
// produced the value. The chain never fails; a capability that reaches the
// default still returns a usable result.
func decodeStructured[T any](raw string, fallback func() *T) (*T, int) {
	trimmed := strings.TrimSpace(raw)

	var strict T
	if err := json.Unmarshal([]byte(trimmed), &strict); err == nil {
		return &strict, FallbackNone
	}

	if candidate, ok := util.ExtractJSON(trimmed); ok {
		var extracted T
		if err := json.Unmarshal([]byte(candidate), &extracted); err == nil {
			return &extracted, FallbackExtracted
		}
	}

	return fallback(), FallbackDefault
}
