package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("Topic: {{.topic}} ({{upper .level}})", map[string]any{
		"topic": "goroutines",
		"level": "beginner",
	})
	require.NoError(t, err)
	assert.Equal(t, "Topic: goroutines (BEGINNER)", out)
}

func TestRenderTemplateFastPath(t *testing.T) {
	out, err := RenderTemplate("no markers here", nil)
	require.NoError(t, err)
	assert.Equal(t, "no markers here", out)
}

func TestRenderTemplateDefault(t *testing.T) {
	out, err := RenderTemplate(`{{default "general" .topic}}`, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "general", out)
}

func TestExtractJSONFenced(t *testing.T) {
	text := "Here is the plan:\n```json\n{\"topic\": \"raft\"}\n```\nHope that helps."
	got, ok := ExtractJSON(text)
	require.True(t, ok)
	assert.JSONEq(t, `{"topic": "raft"}`, got)
}

func TestExtractJSONEmbedded(t *testing.T) {
	text := `Sure! {"questions": [{"prompt": "What is 2+2?"}]} Let me know.`
	got, ok := ExtractJSON(text)
	require.True(t, ok)
	assert.Contains(t, got, `"questions"`)
}

func TestExtractJSONBracesInStrings(t *testing.T) {
	text := `prefix {"note": "braces } inside { strings"} suffix`
	got, ok := ExtractJSON(text)
	require.True(t, ok)
	assert.JSONEq(t, `{"note": "braces } inside { strings"}`, got)
}

func TestExtractJSONNone(t *testing.T) {
	_, ok := ExtractJSON("plain prose with no structure at all")
	assert.False(t, ok)
}

func TestExtractJSONArray(t *testing.T) {
	got, ok := ExtractJSON(`the answers are [1, 2, 3] as listed`)
	require.True(t, ok)
	assert.Equal(t, "[1, 2, 3]", got)
}
