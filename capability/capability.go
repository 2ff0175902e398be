// Package capability implements the specialist generation units the
// orchestrator dispatches to: Planner, Tutor, Validator, and Reporter. Each
// capability owns its prompt, its output contract, and its recovery behavior
// when a model response does not honor that contract.
package capability

import (
	"context"

	"github.com/hupe1980/tutormesh/core"
	"github.com/hupe1980/tutormesh/model"
)

// Fallback levels recorded on a Result when structured output needed repair.
const (
	// FallbackNone means the model output parsed strictly on the first try.
	FallbackNone = 0
	// FallbackExtracted means valid JSON was recovered from surrounding prose
	// or a fenced code block.
	FallbackExtracted = 1
	// FallbackDefault means no parseable output was found and a deterministic
	// default was substituted.
	FallbackDefault = 2
)

// Context carries the conversational state a capability may draw on. All
// fields are optional; capabilities ignore what they do not need.
type Context struct {
	// Domain is the subject the session is about.
	Domain string
	// History holds the recent conversation window, oldest first.
	History []core.Message
	// Retrieved is the assembled retrieval context, empty in degraded mode.
	Retrieved string
	// Plan is the session's current learning plan, if one exists.
	Plan *core.Plan
	// Quiz is the session's current quiz, if one exists.
	Quiz *core.Quiz
}

// Result is the outcome of a capability invocation. Exactly one structured
// field is populated for structured capabilities; Text is always set.
type Result struct {
	Text          string
	Plan          *core.Plan
	Quiz          *core.Quiz
	Report        *core.Report
	FallbackLevel int
}

// Capability is a named generation unit invoked by the orchestrator.
type Capability interface {
	// Name identifies the capability in traces and logs.
	Name() string
	// Generate produces a result for the given user input and session
	// context. A non-nil error means generation failed entirely; recoverable
	// format problems are absorbed and surface as FallbackLevel instead.
	Generate(ctx context.Context, input string, cc Context) (*Result, error)
}

// generate is the shared model call path: every capability funnels its prompt
// through here so options and error wrapping stay uniform.
func generate(ctx context.Context, m model.Model, instructions string, contents []core.Message, opts model.Options) (string, error) {
	resp, err := m.Generate(ctx, model.Request{
		Instructions: instructions,
		Contents:     contents,
		Options:      opts,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
