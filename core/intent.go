package core

// Intent is the classified category of a user request. The router maps free
// form input onto exactly one member of this closed set; anything that cannot
// be classified confidently degrades to IntentChitchat.
type Intent string

const (
	// IntentCreatePlan requests generation (or regeneration) of a learning plan.
	IntentCreatePlan Intent = "create_plan"
	// IntentAskQuestion requests a tutoring answer.
	IntentAskQuestion Intent = "ask_question"
	// IntentStartQuiz requests a quiz over the current material.
	IntentStartQuiz Intent = "start_quiz"
	// IntentGetReport requests a progress report.
	IntentGetReport Intent = "get_report"
	// IntentChitchat is small talk; it never advances the session stage.
	IntentChitchat Intent = "chitchat"
)

// Valid reports whether i is a member of the closed intent set.
func (i Intent) Valid() bool {
	switch i {
	case IntentCreatePlan, IntentAskQuestion, IntentStartQuiz, IntentGetReport, IntentChitchat:
		return true
	}
	return false
}

// Intents returns the full closed set in a stable order, used by the router's
// constrained model fallback prompt.
func Intents() []Intent {
	return []Intent{IntentCreatePlan, IntentAskQuestion, IntentStartQuiz, IntentGetReport, IntentChitchat}
}
