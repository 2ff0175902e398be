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

const validatorInstructions = `You are an assessment writer. Create a short quiz that checks the
learner's understanding of the given topic, using the source material for
question content.

Respond with ONLY a JSON object, no prose, matching this shape:
{
  "topic": "<quiz topic>",
  "questions": [
    {
      "question": "<question text>",
      "options": ["<option>", "<option>", "<option>", "<option>"],
      "correct_answer": "<exact text of the correct option>",
      "explanation": "<why the answer is correct>",
      "topic": "<sub-topic this question checks>"
    }
  ]
}

Write 3 to 5 multiple-choice questions. Every correct_answer must match one
of its question's options exactly.`

const validatorPrompt = `Quiz topic: {{.input}}
{{if .retrieved}}
Source material:
{{.retrieved}}
{{end}}`

// ValidatorOptions configures a Validator instance.
type ValidatorOptions struct {
	Logger       logging.Logger
	ModelOptions model.Options
}

// Validator produces quizzes and grades submitted answers. Quiz generation
// goes through the model; grading is fully deterministic and never calls it.
type Validator struct {
	model  model.Model
	logger logging.Logger
	opts   model.Options
}

// NewValidator creates a Validator backed by the given model.
func NewValidator(m model.Model, optFns ...func(o *ValidatorOptions)) *Validator {
	opts := ValidatorOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Validator{model: m, logger: opts.Logger, opts: opts.ModelOptions}
}

// Name implements Capability.
func (v *Validator) Name() string { return "validator" }

// Generate implements Capability. Parse failures degrade to a single
// free-answer question so the session can still move through validation.
func (v *Validator) Generate(ctx context.Context, input string, cc Context) (*Result, error) {
	prompt, err := util.RenderTemplate(validatorPrompt, map[string]any{
		"input":     input,
		"retrieved": cc.Retrieved,
	})
	if err != nil {
		return nil, fmt.Errorf("validator: render prompt: %w", err)
	}

	var quiz *core.Quiz
	level := FallbackDefault

	raw, err := generate(ctx, v.model, validatorInstructions, []core.Message{core.NewUserMessage(prompt)}, v.opts)
	switch {
	case err != nil && ctx.Err() != nil:
		// An abandoned turn is discarded by the caller, not defaulted.
		return nil, err
	case err != nil:
		// Terminal generation failure: absorb into the deterministic default
		// so the workflow never stalls.
		v.logger.Warn("validator generation failed, using default quiz", "err", err)
		quiz = defaultQuiz(input)
	default:
		quiz, level = decodeStructured(raw, func() *core.Quiz {
			return defaultQuiz(input)
		})
	}
	if level != FallbackNone {
		v.logger.Warn("validator output needed recovery", "fallback_level", level)
	}
	if quiz.Topic == "" {
		quiz.Topic = input
	}
	quiz.Created = time.Now()

	return &Result{
		Text:          quiz.Markdown(),
		Quiz:          quiz,
		FallbackLevel: level,
	}, nil
}

// Grade scores submitted answers against the quiz and returns a copy with
// SubmittedAnswers and Score set. Answers are matched case-insensitively;
// for multiple-choice questions a bare option letter (A, B, ...) is accepted
// in place of the option text. Submitting fewer answers than questions leaves
// the missing ones wrong.
func Grade(quiz *core.Quiz, answers []string) *core.Quiz {
	graded := *quiz
	graded.Questions = append([]core.Question(nil), quiz.Questions...)
	graded.SubmittedAnswers = make([]string, len(graded.Questions))

	correct := 0
	for i, q := range graded.Questions {
		var answer string
		if i < len(answers) {
			answer = answers[i]
		}
		graded.SubmittedAnswers[i] = answer
		if answerMatches(q, answer) {
			correct++
		}
	}

	score := 0.0
	if len(graded.Questions) > 0 {
		score = float64(correct) / float64(len(graded.Questions))
	}
	graded.Score = &score
	return &graded
}

// WeakTopics returns the distinct topics of incorrectly answered questions,
// in question order. It reports nothing for an ungraded quiz.
func WeakTopics(quiz *core.Quiz) []string {
	if !quiz.Graded() {
		return nil
	}

	seen := make(map[string]struct{})
	var topics []string
	for i, q := range quiz.Questions {
		if answerMatches(q, quiz.SubmittedAnswers[i]) {
			continue
		}
		topic := q.Topic
		if topic == "" {
			topic = quiz.Topic
		}
		if _, ok := seen[topic]; !ok {
			seen[topic] = struct{}{}
			topics = append(topics, topic)
		}
	}
	return topics
}

func answerMatches(q core.Question, answer string) bool {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return false
	}
	if strings.TrimSpace(q.CorrectAnswer) == "" {
		// Free-answer items credit any non-empty attempt.
		return true
	}
	if strings.EqualFold(answer, strings.TrimSpace(q.CorrectAnswer)) {
		return true
	}

	// Option letter shorthand: "B" or "b)" selects the second option.
	if len(q.Options) > 0 {
		letter := strings.ToUpper(strings.TrimRight(answer, ".)"))
		if len(letter) == 1 && letter[0] >= 'A' && letter[0] < byte('A'+len(q.Options)) {
			selected := q.Options[letter[0]-'A']
			return strings.EqualFold(strings.TrimSpace(selected), strings.TrimSpace(q.CorrectAnswer))
		}
	}
	return false
}

// defaultQuiz is the deterministic last-resort quiz: one free-answer item on
// the requested topic.
func defaultQuiz(topic string) *core.Quiz {
	if strings.TrimSpace(topic) == "" {
		topic = "the material covered so far"
	}
	return &core.Quiz{
		Topic: topic,
		Questions: []core.Question{
			{
				Prompt:        fmt.Sprintf("In your own words, summarize the key ideas of %s.", topic),
				CorrectAnswer: "",
				Topic:         topic,
			},
		},
	}
}
