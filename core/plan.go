package core

import (
	"fmt"
	"strings"
	"time"
)

// PlanStage is one ordered step of a learning plan.
type PlanStage struct {
	Title      string   `json:"title"`
	Objectives []string `json:"objectives"`
	KeyTerms   []string `json:"key_terms"`
}

// Plan is the structured output of the Planner capability. A new plan fully
// replaces any previous one; plans are never merged.
type Plan struct {
	Domain  string      `json:"domain"`
	Goal    string      `json:"goal"`
	Stages  []PlanStage `json:"stages"`
	Created time.Time   `json:"created"`
}

// Markdown renders the plan for direct display in an assistant message.
func (p *Plan) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Learning plan: %s\n\n", p.Domain)
	if p.Goal != "" {
		fmt.Fprintf(&b, "**Goal**: %s\n\n", p.Goal)
	}
	for i, st := range p.Stages {
		fmt.Fprintf(&b, "## Stage %d: %s\n", i+1, st.Title)
		for _, o := range st.Objectives {
			fmt.Fprintf(&b, "- %s\n", o)
		}
		if len(st.KeyTerms) > 0 {
			fmt.Fprintf(&b, "\nKey terms: %s\n", strings.Join(st.KeyTerms, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Question is a single quiz item. Options may be nil for free-answer items.
type Question struct {
	Prompt        string   `json:"question"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty"`
	Topic         string   `json:"topic,omitempty"`
}

// Quiz is the structured output of the Validator capability plus grading
// state. Score is non-nil only once every question has a submitted answer.
type Quiz struct {
	Topic            string     `json:"topic"`
	Questions        []Question `json:"questions"`
	SubmittedAnswers []string   `json:"submitted_answers,omitempty"`
	Score            *float64   `json:"score,omitempty"`
	Created          time.Time  `json:"created"`
}

// Graded reports whether every question has a submitted answer and a score
// has been computed.
func (q *Quiz) Graded() bool {
	return q.Score != nil && len(q.SubmittedAnswers) == len(q.Questions)
}

// Markdown renders the quiz questions (without answers) for display.
func (q *Quiz) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Quiz: %s\n\n", q.Topic)
	for i, question := range q.Questions {
		fmt.Fprintf(&b, "**Question %d**: %s\n", i+1, question.Prompt)
		for j, opt := range question.Options {
			fmt.Fprintf(&b, "%c. %s\n", 'A'+j, opt)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Report is a derived, read-only aggregate over a session. It is computed by
// the Reporter capability and never independently mutated.
type Report struct {
	Domain          string    `json:"domain"`
	StagesCompleted int       `json:"stages_completed"`
	QuizAccuracy    float64   `json:"quiz_accuracy"`
	WeakTopics      []string  `json:"weak_topics"`
	Narrative       string    `json:"narrative,omitempty"`
	Created         time.Time `json:"created"`
}

// Markdown renders the report for display.
func (r *Report) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Progress report: %s\n\n", r.Domain)
	fmt.Fprintf(&b, "- Stages completed: %d\n", r.StagesCompleted)
	fmt.Fprintf(&b, "- Quiz accuracy: %.0f%%\n", r.QuizAccuracy*100)
	if len(r.WeakTopics) > 0 {
		fmt.Fprintf(&b, "- Topics to revisit: %s\n", strings.Join(r.WeakTopics, ", "))
	}
	if r.Narrative != "" {
		fmt.Fprintf(&b, "\n%s\n", r.Narrative)
	}
	return b.String()
}
