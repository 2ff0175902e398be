package capability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/tutormesh/core"
	"github.com/hupe1980/tutormesh/internal/util"
	"github.com/hupe1980/tutormesh/logging"
	"github.com/hupe1980/tutormesh/model"
)

const reporterInstructions = `You are a learning coach writing a short progress summary. You are
given the learner's plan, quiz outcome, and weak topics. Write 2-4 sentences
of encouraging, specific prose: what went well, what to revisit, and a
suggested next step. Do not repeat the raw numbers; they are shown separately.`

const reporterPrompt = `Domain: {{.domain}}
Stages completed: {{.stages}}
Quiz accuracy: {{.accuracy}}
{{if .weak}}Topics answered incorrectly: {{.weak}}
{{end}}`

// ReporterOptions configures a Reporter instance.
type ReporterOptions struct {
	Logger       logging.Logger
	ModelOptions model.Options
}

// Reporter derives a progress report from session state. The figures are
// computed from the plan and graded quiz; only the narrative comes from the
// model, and a model failure downgrades to a deterministic narrative rather
// than failing the report.
type Reporter struct {
	model  model.Model
	logger logging.Logger
	opts   model.Options
}

// NewReporter creates a Reporter backed by the given model.
func NewReporter(m model.Model, optFns ...func(o *ReporterOptions)) *Reporter {
	opts := ReporterOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Reporter{model: m, logger: opts.Logger, opts: opts.ModelOptions}
}

// Name implements Capability.
func (r *Reporter) Name() string { return "reporter" }

// Generate implements Capability. It requires a graded quiz in the context;
// the orchestrator's guards enforce that before dispatching here.
func (r *Reporter) Generate(ctx context.Context, input string, cc Context) (*Result, error) {
	report := buildReport(cc)

	prompt, err := util.RenderTemplate(reporterPrompt, map[string]any{
		"domain":   report.Domain,
		"stages":   report.StagesCompleted,
		"accuracy": fmt.Sprintf("%.0f%%", report.QuizAccuracy*100),
		"weak":     strings.Join(report.WeakTopics, ", "),
	})
	if err != nil {
		return nil, fmt.Errorf("reporter: render prompt: %w", err)
	}

	level := FallbackNone
	narrative, err := generate(ctx, r.model, reporterInstructions, []core.Message{core.NewUserMessage(prompt)}, r.opts)
	if err != nil && ctx.Err() != nil {
		// An abandoned turn is discarded by the caller, not defaulted.
		return nil, err
	}
	if err != nil || strings.TrimSpace(narrative) == "" {
		r.logger.Warn("reporter narrative unavailable, using computed summary", "err", err)
		narrative = defaultNarrative(report)
		level = FallbackDefault
	}
	report.Narrative = strings.TrimSpace(narrative)

	return &Result{
		Text:          report.Markdown(),
		Report:        report,
		FallbackLevel: level,
	}, nil
}

// buildReport computes the report figures from session state alone.
func buildReport(cc Context) *core.Report {
	report := &core.Report{
		Domain:  cc.Domain,
		Created: time.Now(),
	}
	if report.Domain == "" && cc.Plan != nil {
		report.Domain = cc.Plan.Domain
	}
	if cc.Plan != nil {
		report.StagesCompleted = len(cc.Plan.Stages)
	}
	if cc.Quiz != nil && cc.Quiz.Graded() {
		report.QuizAccuracy = *cc.Quiz.Score
		report.WeakTopics = WeakTopics(cc.Quiz)
	}
	return report
}

func defaultNarrative(r *core.Report) string {
	if len(r.WeakTopics) > 0 {
		return fmt.Sprintf("You completed %d stage(s) with %.0f%% quiz accuracy. Revisit %s before moving on.",
			r.StagesCompleted, r.QuizAccuracy*100, strings.Join(r.WeakTopics, ", "))
	}
	return fmt.Sprintf("You completed %d stage(s) with %.0f%% quiz accuracy. Keep going.",
		r.StagesCompleted, r.QuizAccuracy*100)
}
