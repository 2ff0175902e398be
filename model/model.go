// Package model defines the generative text collaborator boundary. The core
// never talks to a provider SDK directly; it depends on the Model interface
// so that providers (and test doubles) are substitutable.
//
// Responses are produced as completed units. Token-level streaming is outside
// the core contract; a capability either receives the full text or an error.
package model

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/tutormesh/core"
)

// Options enumerates the per-call knobs of the generative collaborator.
type Options struct {
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Timeout     time.Duration `json:"timeout"`
}

// Request captures the normalized model input produced by capabilities.
type Request struct {
	// Instructions is the system prompt.
	Instructions string `json:"instructions"`
	// Contents is the ordered conversation handed to the provider.
	Contents []core.Message `json:"contents"`
	Options  Options        `json:"options"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a completed generation result.
type Response struct {
	Text         string      `json:"text"`
	FinishReason string      `json:"finish_reason"` // "stop", "length", etc.
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Model is the minimal interface required to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
// Canned responses are matched by substring against the last user message so
// tests can key on prompt fragments rather than full rendered prompts.
type MockModel struct {
	info      Info
	responses map[string]string
	calls     int
	err       error
}

// NewMockModel constructs a MockModel.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: "mock"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for prompts
// containing the given fragment.
func (m *MockModel) AddResponse(fragment, response string) { m.responses[fragment] = response }

// FailWith makes every subsequent Generate call return err.
func (m *MockModel) FailWith(err error) { m.err = err }

// Calls returns how many times Generate has been invoked.
func (m *MockModel) Calls() int { return m.calls }

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(req.Contents) == 0 {
		return nil, fmt.Errorf("no contents provided")
	}
	input := req.Instructions + "\n" + req.Contents[len(req.Contents)-1].Content
	for fragment, resp := range m.responses {
		if strings.Contains(input, fragment) {
			return &Response{Text: resp, FinishReason: "stop"}, nil
		}
	}
	return &Response{Text: fmt.Sprintf("Mock response to: %s", req.Contents[len(req.Contents)-1].Content), FinishReason: "stop"}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
