package util

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ExtractJSON pulls the first plausible JSON object or array out of free-form
// model output. It checks fenced code blocks first, then scans for a balanced
// object or array in the raw text. Returns false when nothing parseable is
// found.
func ExtractJSON(text string) (string, bool) {
	for _, m := range fencedJSON.FindAllStringSubmatch(text, -1) {
		if candidate := strings.TrimSpace(m[1]); json.Valid([]byte(candidate)) {
			return candidate, true
		}
	}

	for _, open := range []byte{'{', '['} {
		if candidate, ok := balancedSlice(text, open); ok {
			return candidate, true
		}
	}
	return "", false
}

// balancedSlice finds the first balanced {...} or [...] region that parses as
// JSON. String literals are skipped so braces inside values do not confuse
// the depth count.
func balancedSlice(text string, open byte) (string, bool) {
	closing := byte('}')
	if open == '[' {
		closing = ']'
	}

	start := strings.IndexByte(text, open)
	for start >= 0 {
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(text); i++ {
			c := text[i]
			switch {
			case escaped:
				escaped = false
			case c == '\\' && inString:
				escaped = true
			case c == '"':
				inString = !inString
			case inString:
			case c == open:
				depth++
			case c == closing:
				depth--
				if depth == 0 {
					candidate := text[start : i+1]
					if json.Valid([]byte(candidate)) {
						return candidate, true
					}
					i = len(text) // abandon this start position
				}
			}
		}
		next := strings.IndexByte(text[start+1:], open)
		if next < 0 {
			break
		}
		start += 1 + next
	}
	return "", false
}
