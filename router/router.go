// Package router classifies raw user input into the closed intent set that
// drives capability selection. Classification is deterministic keyword
// matching first; a constrained model call is the fallback, and anything
// unconfident degrades to chitchat.
package router

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/tutormesh/core"
	"github.com/hupe1980/tutormesh/logging"
	"github.com/hupe1980/tutormesh/model"
)

// rule binds an intent to the keyword fragments that signal it. Rule order in
// the table below is the priority order when several rules match and none of
// them is the stage's primary expected intent.
type rule struct {
	intent   core.Intent
	keywords []string
	// weak marks a catch-all rule that yields to any non-weak match.
	// Interrogative words appear in almost every sentence, so they only
	// decide when nothing more specific matched.
	weak bool
}

var rules = []rule{
	{intent: core.IntentStartQuiz, keywords: []string{"quiz", "test me", "exam", "question me", "check my understanding"}},
	{intent: core.IntentGetReport, keywords: []string{"report", "progress", "summary", "how am i doing", "how did i do"}},
	{intent: core.IntentCreatePlan, keywords: []string{"plan", "teach me", "learn", "curriculum", "study", "course", "roadmap", "syllabus"}},
	{intent: core.IntentAskQuestion, keywords: []string{"what", "why", "how", "when", "where", "who", "which", "explain", "difference", "?"}, weak: true},
}

// allowedIntents narrows the candidate set per stage. Guards downstream still
// apply; this only keeps obviously out-of-place intents from being offered,
// like start_quiz before any plan exists.
var allowedIntents = map[core.Stage][]core.Intent{
	core.StageIdle:       {core.IntentCreatePlan, core.IntentAskQuestion, core.IntentChitchat},
	core.StagePlanning:   {core.IntentCreatePlan, core.IntentAskQuestion, core.IntentChitchat},
	core.StageLearning:   {core.IntentCreatePlan, core.IntentAskQuestion, core.IntentStartQuiz, core.IntentGetReport, core.IntentChitchat},
	core.StageValidating: {core.IntentCreatePlan, core.IntentAskQuestion, core.IntentStartQuiz, core.IntentGetReport, core.IntentChitchat},
	core.StageReporting:  {core.IntentCreatePlan, core.IntentAskQuestion, core.IntentGetReport, core.IntentChitchat},
	core.StageCompleted:  {core.IntentCreatePlan, core.IntentAskQuestion, core.IntentGetReport, core.IntentChitchat},
}

// primaryIntent is the tie-break winner per stage when several keyword rules
// match at once.
var primaryIntent = map[core.Stage]core.Intent{
	core.StageIdle:       core.IntentCreatePlan,
	core.StagePlanning:   core.IntentCreatePlan,
	core.StageLearning:   core.IntentAskQuestion,
	core.StageValidating: core.IntentStartQuiz,
	core.StageReporting:  core.IntentGetReport,
	core.StageCompleted:  core.IntentChitchat,
}

const classifyInstructions = `Classify the user's message into exactly one of these intents:
%s

Reply with ONLY the intent label, nothing else.`

// Options configures a Router instance.
type Options struct {
	Logger logging.Logger
	// CacheEnabled memoizes classifications by exact (input, stage) pair.
	CacheEnabled bool
	// ModelOptions bounds the constrained fallback call (token cap, hard
	// wall-clock timeout), same as any other generative call.
	ModelOptions model.Options
}

// Router implements stage-aware intent classification. It is safe for
// concurrent use.
type Router struct {
	model        model.Model
	logger       logging.Logger
	cacheEnabled bool
	modelOpts    model.Options

	mu    sync.RWMutex
	cache map[string]core.Intent
}

// New creates a Router. The model is only consulted when keyword matching is
// inconclusive; a nil model skips the fallback and classifies unmatched input
// as chitchat.
func New(m model.Model, optFns ...func(o *Options)) *Router {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Router{
		model:        m,
		logger:       opts.Logger,
		cacheEnabled: opts.CacheEnabled,
		modelOpts:    opts.ModelOptions,
		cache:        make(map[string]core.Intent),
	}
}

// Classify maps input onto the closed intent set given the current stage.
// Classification is pure: it never mutates session state, and a failing model
// fallback degrades to chitchat rather than erroring. A chitchat produced by
// a model failure is not cached; the next identical input classifies fresh.
func (r *Router) Classify(ctx context.Context, input string, stage core.Stage, history []core.Message) core.Intent {
	key := string(stage) + "\x00" + input
	if r.cacheEnabled {
		r.mu.RLock()
		cached, ok := r.cache[key]
		r.mu.RUnlock()
		if ok {
			return cached
		}
	}

	intent, cacheable := r.classify(ctx, input, stage, history)

	if r.cacheEnabled && cacheable {
		r.mu.Lock()
		r.cache[key] = intent
		r.mu.Unlock()
	}
	return intent
}

func (r *Router) classify(ctx context.Context, input string, stage core.Stage, history []core.Message) (core.Intent, bool) {
	lowered := strings.ToLower(input)
	allowed := allowedIntents[stage]
	if allowed == nil {
		allowed = core.Intents()
	}

	var matched, strong []core.Intent
	for _, rl := range rules {
		if !intentAllowed(rl.intent, allowed) {
			continue
		}
		for _, kw := range rl.keywords {
			if strings.Contains(lowered, kw) {
				matched = append(matched, rl.intent)
				if !rl.weak {
					strong = append(strong, rl.intent)
				}
				break
			}
		}
	}
	if len(strong) > 0 {
		matched = strong
	}

	switch len(matched) {
	case 0:
		return r.modelFallback(ctx, input, allowed, history)
	case 1:
		return matched[0], true
	}

	// Several rules matched: the stage's primary expected intent wins if it
	// is among them, otherwise the rule table's priority order decides.
	if primary, ok := primaryIntent[stage]; ok {
		for _, m := range matched {
			if m == primary {
				return m, true
			}
		}
	}
	return matched[0], true
}

// modelFallback asks the model to pick a label from the allowed set. Any
// response outside the set, and any model error, classifies as chitchat. The
// error case reports false so a transient failure is not memoized.
func (r *Router) modelFallback(ctx context.Context, input string, allowed []core.Intent, history []core.Message) (core.Intent, bool) {
	if r.model == nil {
		return core.IntentChitchat, true
	}

	labels := make([]string, len(allowed))
	for i, in := range allowed {
		labels[i] = string(in)
	}

	contents := append(append([]core.Message(nil), history...), core.NewUserMessage(input))
	resp, err := r.model.Generate(ctx, model.Request{
		Instructions: fmt.Sprintf(classifyInstructions, strings.Join(labels, "\n")),
		Contents:     contents,
		Options:      r.modelOpts,
	})
	if err != nil {
		r.logger.Warn("intent fallback call failed, defaulting to chitchat", "err", err)
		return core.IntentChitchat, false
	}

	candidate := core.Intent(strings.ToLower(strings.TrimSpace(resp.Text)))
	if candidate.Valid() && intentAllowed(candidate, allowed) {
		return candidate, true
	}
	r.logger.Debug("intent fallback produced out-of-set label", "label", resp.Text)
	return core.IntentChitchat, true
}

func intentAllowed(intent core.Intent, allowed []core.Intent) bool {
	for _, a := range allowed {
		if a == intent {
			return true
		}
	}
	return false
}
