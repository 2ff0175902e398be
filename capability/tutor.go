package capability

import (
	"context"
	"fmt"

	"github.com/hupe1980/tutormesh/core"
	"github.com/hupe1980/tutormesh/internal/util"
	"github.com/hupe1980/tutormesh/logging"
	"github.com/hupe1980/tutormesh/model"
)

const tutorInstructions = `You are a patient tutor. Answer the learner's question clearly and
concretely, grounding your answer in the source material when it is provided.
If the source material does not cover the question, say so and answer from
general knowledge. Keep answers focused; prefer a short worked example over
abstract description.`

const tutorPrompt = `{{if .plan}}Current learning plan:
{{.plan}}

{{end}}{{if .retrieved}}Source material:
{{.retrieved}}

{{end}}Question: {{.input}}`

// TutorOptions configures a Tutor instance.
type TutorOptions struct {
	Logger       logging.Logger
	ModelOptions model.Options
}

// Tutor answers learner questions as free text. It has no structured output
// contract, so it never reports a fallback level above FallbackNone.
type Tutor struct {
	model  model.Model
	logger logging.Logger
	opts   model.Options
}

// NewTutor creates a Tutor backed by the given model.
func NewTutor(m model.Model, optFns ...func(o *TutorOptions)) *Tutor {
	opts := TutorOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Tutor{model: m, logger: opts.Logger, opts: opts.ModelOptions}
}

// Name implements Capability.
func (t *Tutor) Name() string { return "tutor" }

// Generate implements Capability.
func (t *Tutor) Generate(ctx context.Context, input string, cc Context) (*Result, error) {
	var planText string
	if cc.Plan != nil {
		planText = cc.Plan.Markdown()
	}

	prompt, err := util.RenderTemplate(tutorPrompt, map[string]any{
		"input":     input,
		"retrieved": cc.Retrieved,
		"plan":      planText,
	})
	if err != nil {
		return nil, fmt.Errorf("tutor: render prompt: %w", err)
	}

	contents := append(append([]core.Message(nil), cc.History...), core.NewUserMessage(prompt))

	text, err := generate(ctx, t.model, tutorInstructions, contents, t.opts)
	switch {
	case err != nil && ctx.Err() != nil:
		// An abandoned turn is discarded by the caller, not defaulted.
		return nil, err
	case err != nil:
		// Terminal generation failure: degrade to a deterministic reply so
		// the turn still completes.
		t.logger.Warn("tutor generation failed, using degraded answer", "err", err)
		return &Result{Text: degradedAnswer(cc), FallbackLevel: FallbackDefault}, nil
	}
	return &Result{Text: text}, nil
}

// degradedAnswer is the deterministic last-resort reply when no model answer
// is available. It points the learner back at whatever material exists.
func degradedAnswer(cc Context) string {
	switch {
	case cc.Retrieved != "":
		return "I cannot generate an answer right now. Here is the most relevant source material instead:\n\n" + cc.Retrieved
	case cc.Plan != nil:
		return "I cannot generate an answer right now. While you wait, review your current plan:\n\n" + cc.Plan.Markdown()
	default:
		return "I cannot generate an answer right now. Please try again in a moment."
	}
}
