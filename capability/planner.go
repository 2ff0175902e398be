package capability

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/tutormesh/core"
	"github.com/hupe1980/tutormesh/internal/util"
	"github.com/hupe1980/tutormesh/logging"
	"github.com/hupe1980/tutormesh/model"
)

const plannerInstructions = `You are a curriculum planner. Design a staged learning plan for the
learner's goal using the provided source material.

Respond with ONLY a JSON object, no prose, matching this shape:
{
  "domain": "<subject area>",
  "goal": "<one-sentence learning goal>",
  "stages": [
    {"title": "<stage title>", "objectives": ["<objective>", ...], "key_terms": ["<term>", ...]}
  ]
}

Use 3 to 6 stages ordered from foundations to advanced topics. Ground stage
content in the source material when it is available.`

const plannerPrompt = `Learner request: {{.input}}
{{if .retrieved}}
Source material:
{{.retrieved}}
{{end}}`

// PlannerOptions configures a Planner instance.
type PlannerOptions struct {
	Logger       logging.Logger
	ModelOptions model.Options
}

// Planner produces a structured learning plan from the user's goal and the
// retrieval context. Its output fully replaces any previous plan.
type Planner struct {
	model  model.Model
	logger logging.Logger
	opts   model.Options
}

// NewPlanner creates a Planner backed by the given model.
func NewPlanner(m model.Model, optFns ...func(o *PlannerOptions)) *Planner {
	opts := PlannerOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Planner{model: m, logger: opts.Logger, opts: opts.ModelOptions}
}

// Name implements Capability.
func (p *Planner) Name() string { return "planner" }

// Generate implements Capability. Parse failures degrade through the recovery
// chain down to a minimal single-stage plan built from the input itself.
func (p *Planner) Generate(ctx context.Context, input string, cc Context) (*Result, error) {
	prompt, err := util.RenderTemplate(plannerPrompt, map[string]any{
		"input":     input,
		"retrieved": cc.Retrieved,
	})
	if err != nil {
		return nil, fmt.Errorf("planner: render prompt: %w", err)
	}

	var plan *core.Plan
	level := FallbackDefault

	raw, err := generate(ctx, p.model, plannerInstructions, []core.Message{core.NewUserMessage(prompt)}, p.opts)
	switch {
	case err != nil && ctx.Err() != nil:
		// An abandoned turn is discarded by the caller, not defaulted.
		return nil, err
	case err != nil:
		// Terminal generation failure: absorb into the deterministic default
		// so the workflow never stalls.
		p.logger.Warn("planner generation failed, using default plan", "err", err)
		plan = defaultPlan(cc.Domain, input)
	default:
		plan, level = decodeStructured(raw, func() *core.Plan {
			return defaultPlan(cc.Domain, input)
		})
	}
	if level != FallbackNone {
		p.logger.Warn("planner output needed recovery", "fallback_level", level)
	}
	if plan.Domain == "" {
		plan.Domain = cc.Domain
	}
	plan.Created = time.Now()

	return &Result{
		Text:          plan.Markdown(),
		Plan:          plan,
		FallbackLevel: level,
	}, nil
}

// defaultPlan is the deterministic last-resort plan: one stage derived from
// the request so the session can still advance.
func defaultPlan(domain, input string) *core.Plan {
	if domain == "" {
		domain = "general"
	}
	return &core.Plan{
		Domain: domain,
		Goal:   input,
		Stages: []core.PlanStage{
			{
				Title:      fmt.Sprintf("Foundations of %s", domain),
				Objectives: []string{"Understand the core concepts", "Work through the source material"},
			},
		},
	}
}
