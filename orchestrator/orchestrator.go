// Package orchestrator implements the per-session turn loop: it loads the
// session, classifies the input, applies the stage transition table under its
// guards, assembles retrieval and memory context for the selected capability,
// and persists the result. Sessions are processed one turn at a time; turns
// for different sessions run concurrently.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/tutormesh/capability"
	"github.com/hupe1980/tutormesh/config"
	"github.com/hupe1980/tutormesh/core"
	"github.com/hupe1980/tutormesh/logging"
	"github.com/hupe1980/tutormesh/model"
	"github.com/hupe1980/tutormesh/retrieval"
	"github.com/hupe1980/tutormesh/router"
	"github.com/hupe1980/tutormesh/session"
)

// passThreshold is the quiz accuracy required to advance from validating to
// reporting; below it the session backtracks to learning.
const passThreshold = 0.6

// focusedTopK is the narrower retrieval depth used for tutoring and quiz
// generation; planning uses the configured (wider) TopK.
const focusedTopK = 3

// Options configures an Orchestrator instance.
type Options struct {
	Config config.Config
	Logger logging.Logger
	Sink   core.TraceSink
	Store  session.Store
}

// Orchestrator is the session state machine. Safe for concurrent use across
// sessions; turns within one session are serialized.
type Orchestrator struct {
	cfg       config.Config
	logger    logging.Logger
	sink      core.TraceSink
	store     session.Store
	engine    *retrieval.Engine
	router    *router.Router
	planner   capability.Capability
	tutor     capability.Capability
	validator capability.Capability
	reporter  capability.Capability

	mu       sync.Mutex
	sessions map[string]*session.Session
	locks    map[string]*sync.Mutex
}

// New creates an Orchestrator around a generative model and a retrieval
// engine. The model is wrapped with the configured retry policy before any
// capability sees it.
func New(m model.Model, engine *retrieval.Engine, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		Config: config.Default(),
		Logger: logging.NoOpLogger{},
		Sink:   core.NoOpSink{},
		Store:  session.NewInMemoryStore(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	retryModel := model.WithRetry(m, func(o *model.RetryOptions) {
		o.MaxRetries = opts.Config.Model.MaxRetries
		o.Backoff = opts.Config.Model.RetryBackoff
	})

	modelOpts := model.Options{
		MaxTokens:   opts.Config.Model.MaxTokens,
		Temperature: opts.Config.Model.Temperature,
		Timeout:     opts.Config.Model.Timeout,
	}

	return &Orchestrator{
		cfg:    opts.Config,
		logger: opts.Logger,
		sink:   opts.Sink,
		store:  opts.Store,
		engine: engine,
		router: router.New(retryModel, func(o *router.Options) {
			o.Logger = opts.Logger
			o.CacheEnabled = opts.Config.Router.CacheEnabled
			o.ModelOptions = modelOpts
		}),
		planner: capability.NewPlanner(retryModel, func(o *capability.PlannerOptions) {
			o.Logger = opts.Logger
			o.ModelOptions = modelOpts
		}),
		tutor: capability.NewTutor(retryModel, func(o *capability.TutorOptions) {
			o.Logger = opts.Logger
			o.ModelOptions = modelOpts
		}),
		validator: capability.NewValidator(retryModel, func(o *capability.ValidatorOptions) {
			o.Logger = opts.Logger
			o.ModelOptions = modelOpts
		}),
		reporter: capability.NewReporter(retryModel, func(o *capability.ReporterOptions) {
			o.Logger = opts.Logger
			o.ModelOptions = modelOpts
		}),
		sessions: make(map[string]*session.Session),
		locks:    make(map[string]*sync.Mutex),
	}
}

// TurnResult is what a completed turn returns to the caller.
type TurnResult struct {
	SessionID string
	Intent    core.Intent
	Stage     core.Stage
	Text      string
	Plan      *core.Plan
	Quiz      *core.Quiz
	Report    *core.Report
	// Degraded is set when retrieval was unavailable and generation ran
	// ungrounded.
	Degraded bool
	// FallbackLevel records the deepest structured-output recovery level any
	// capability in this turn needed.
	FallbackLevel int
}

// Ingest adds source material to a corpus. Ingestion failures surface to the
// caller; the turn loop is never involved.
func (o *Orchestrator) Ingest(ctx context.Context, corpus, text string, metadata map[string]string) (int, error) {
	n, err := o.engine.Ingest(ctx, corpus, text, metadata)
	if err != nil {
		return 0, err
	}
	o.sink.Emit(core.NewTraceEvent(core.TraceIngestionCompleted, corpus, "", map[string]string{
		"chunks": strconv.Itoa(n),
	}))
	return n, nil
}

// GetSession returns a snapshot of the session's current state.
func (o *Orchestrator) GetSession(id string) (session.Snapshot, error) {
	o.mu.Lock()
	s, ok := o.sessions[id]
	o.mu.Unlock()
	if ok {
		return session.TakeSnapshot(s), nil
	}
	return o.store.Load(id)
}

// SubmitTurn processes one user turn end-to-end. A guard violation is
// returned as an error wrapping core.ErrTransitionGuard with the session
// unchanged; an ingestion-free turn otherwise always yields a usable result.
func (o *Orchestrator) SubmitTurn(ctx context.Context, sessionID, input string) (*TurnResult, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty input")
	}

	lock := o.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s := o.loadOrCreate(sessionID)
	s.Turn++
	token := s.Turn

	limiter := core.NewCallLimiter(o.cfg.Model.MaxCallsPerTurn)

	intent := o.router.Classify(ctx, input, s.Stage, s.Window.Last(6))
	o.emit(core.TraceIntentClassified, s, map[string]string{"intent": string(intent), "input_len": strconv.Itoa(len(input))})

	res, err := o.dispatch(ctx, s, token, limiter, intent, input)
	if err != nil {
		return nil, err
	}

	// Abandoned turns are discarded: a result arriving after cancellation or
	// after the session moved on never mutates state.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Turn != token {
		return nil, fmt.Errorf("turn superseded: session %s", s.ID)
	}

	s.Window.Append(core.NewUserMessage(input), core.NewAssistantMessage(res.Text))
	s.Updated = time.Now()
	o.persist(s)

	res.SessionID = s.ID
	res.Intent = intent
	res.Stage = s.Stage
	return res, nil
}

// dispatch applies the transition table. It mutates the session only on the
// paths whose guards pass.
func (o *Orchestrator) dispatch(ctx context.Context, s *session.Session, token uint64, limiter *core.CallLimiter, intent core.Intent, input string) (*TurnResult, error) {
	// In validating, anything that is not an explicit re-quiz or report
	// request is an answer submission, including input that classifies as
	// chitchat or a question.
	if s.Stage == core.StageValidating && intent != core.IntentStartQuiz && intent != core.IntentGetReport && intent != core.IntentCreatePlan {
		return o.runGrading(ctx, s, token, limiter, input)
	}

	// Chitchat never advances the stage, from anywhere.
	if intent == core.IntentChitchat {
		return o.runTutor(ctx, s, limiter, input, false)
	}

	if s.Stage.Terminal() {
		return nil, &core.GuardViolation{
			Stage:  s.Stage,
			Intent: intent,
			Reason: "session is completed; start a new session to continue learning",
		}
	}

	switch s.Stage {
	case core.StageIdle, core.StagePlanning:
		// Anything but chitchat from idle starts a planning cycle.
		return o.runPlanning(ctx, s, token, limiter, input)

	case core.StageLearning:
		switch intent {
		case core.IntentCreatePlan:
			return o.runPlanning(ctx, s, token, limiter, input)
		case core.IntentAskQuestion:
			return o.runTutor(ctx, s, limiter, input, true)
		case core.IntentStartQuiz:
			if s.Plan == nil {
				return nil, &core.GuardViolation{
					Stage:  s.Stage,
					Intent: intent,
					Reason: "no learning plan exists yet; create a plan before taking a quiz",
				}
			}
			return o.runQuiz(ctx, s, token, limiter, input)
		case core.IntentGetReport:
			if s.Quiz == nil || !s.Quiz.Graded() {
				return nil, &core.GuardViolation{
					Stage:  s.Stage,
					Intent: intent,
					Reason: "no graded quiz yet; take a quiz before requesting a report",
				}
			}
			return o.runReport(ctx, s, token, limiter, input)
		}

	case core.StageValidating:
		switch intent {
		case core.IntentStartQuiz:
			// A fresh quiz replaces the pending one.
			return o.runQuiz(ctx, s, token, limiter, input)
		case core.IntentCreatePlan:
			return o.runPlanning(ctx, s, token, limiter, input)
		case core.IntentGetReport:
			if s.Quiz == nil || !s.Quiz.Graded() {
				return nil, &core.GuardViolation{
					Stage:  s.Stage,
					Intent: intent,
					Reason: "the current quiz is not graded yet; submit your answers first",
				}
			}
			return o.runReport(ctx, s, token, limiter, input)
		}

	case core.StageReporting:
		switch intent {
		case core.IntentAskQuestion:
			return o.runTutor(ctx, s, limiter, input, true)
		default:
			return o.runReport(ctx, s, token, limiter, input)
		}
	}

	return nil, &core.GuardViolation{
		Stage:  s.Stage,
		Intent: intent,
		Reason: "no transition is defined for this combination",
	}
}

// runPlanning drives IDLE/LEARNING -> PLANNING -> LEARNING. Plan generation
// never runs ungrounded while source documents exist: the retrieval bundle is
// assembled unconditionally before the Planner is invoked.
func (o *Orchestrator) runPlanning(ctx context.Context, s *session.Session, token uint64, limiter *core.CallLimiter, input string) (*TurnResult, error) {
	from := s.Stage
	o.transition(s, core.StagePlanning)

	retrieved, degraded := o.contextBundle(ctx, s, planningQuery(input), o.cfg.Retrieval.TopK)

	res, err := o.invoke(ctx, s, limiter, o.planner, input, capability.Context{
		Domain:    s.Domain,
		History:   s.Window.Last(6),
		Retrieved: retrieved,
	})
	if err != nil {
		o.transition(s, from)
		return nil, err
	}
	if err := o.stillCurrent(ctx, s, token); err != nil {
		o.transition(s, from)
		return nil, err
	}

	s.Plan = res.Plan
	if s.Domain == "" {
		s.Domain = res.Plan.Domain
	}
	s.Quiz = nil
	s.Report = nil
	o.transition(s, core.StageLearning)

	return &TurnResult{
		Text:          res.Text,
		Plan:          res.Plan,
		Degraded:      degraded,
		FallbackLevel: res.FallbackLevel,
	}, nil
}

// runTutor answers a question. withRetrieval is false for chitchat.
func (o *Orchestrator) runTutor(ctx context.Context, s *session.Session, limiter *core.CallLimiter, input string, withRetrieval bool) (*TurnResult, error) {
	var retrieved string
	var degraded bool
	if withRetrieval {
		query := o.engine.ExpandQuery(input, s.Window.Messages())
		retrieved, degraded = o.contextBundle(ctx, s, query, focusedTopK)
	}

	res, err := o.invoke(ctx, s, limiter, o.tutor, input, capability.Context{
		Domain:    s.Domain,
		History:   s.Window.Last(6),
		Retrieved: retrieved,
		Plan:      s.Plan,
	})
	if err != nil {
		return nil, err
	}

	return &TurnResult{Text: res.Text, Degraded: degraded}, nil
}

// runQuiz drives LEARNING -> VALIDATING.
func (o *Orchestrator) runQuiz(ctx context.Context, s *session.Session, token uint64, limiter *core.CallLimiter, input string) (*TurnResult, error) {
	retrieved, degraded := o.contextBundle(ctx, s, o.engine.ExpandQuery(input, s.Window.Messages()), focusedTopK)

	res, err := o.invoke(ctx, s, limiter, o.validator, input, capability.Context{
		Domain:    s.Domain,
		History:   s.Window.Last(6),
		Retrieved: retrieved,
		Plan:      s.Plan,
	})
	if err != nil {
		return nil, err
	}
	if err := o.stillCurrent(ctx, s, token); err != nil {
		return nil, err
	}

	s.Quiz = res.Quiz
	o.transition(s, core.StageValidating)

	return &TurnResult{
		Text:          res.Text,
		Quiz:          res.Quiz,
		Degraded:      degraded,
		FallbackLevel: res.FallbackLevel,
	}, nil
}

// runGrading grades submitted answers and advances to reporting or
// backtracks to learning depending on the score.
func (o *Orchestrator) runGrading(ctx context.Context, s *session.Session, token uint64, limiter *core.CallLimiter, input string) (*TurnResult, error) {
	if s.Quiz == nil {
		return nil, &core.GuardViolation{
			Stage:  s.Stage,
			Intent: core.IntentStartQuiz,
			Reason: "no quiz is pending",
		}
	}

	graded := capability.Grade(s.Quiz, parseAnswers(input, len(s.Quiz.Questions)))
	if err := o.stillCurrent(ctx, s, token); err != nil {
		return nil, err
	}
	prevQuiz := s.Quiz
	s.Quiz = graded

	if *graded.Score >= passThreshold {
		from := s.Stage
		o.transition(s, core.StageReporting)
		res, err := o.runReport(ctx, s, token, limiter, input)
		if err != nil {
			s.Quiz = prevQuiz
			o.transition(s, from)
			return nil, err
		}
		res.Quiz = graded
		return res, nil
	}

	// Weak result: back to learning with targeted feedback.
	o.transition(s, core.StageLearning)
	feedback := fmt.Sprintf(
		"The learner scored %.0f%% on a quiz about %s and struggled with: %s. Briefly explain these topics again and suggest what to review.",
		*graded.Score*100, graded.Topic, strings.Join(capability.WeakTopics(graded), ", "),
	)
	res, err := o.runTutor(ctx, s, limiter, feedback, true)
	if err != nil {
		return nil, err
	}
	res.Quiz = graded
	return res, nil
}

// runReport drives REPORTING -> COMPLETED.
func (o *Orchestrator) runReport(ctx context.Context, s *session.Session, token uint64, limiter *core.CallLimiter, input string) (*TurnResult, error) {
	from := s.Stage
	if s.Stage != core.StageReporting {
		o.transition(s, core.StageReporting)
	}

	res, err := o.invoke(ctx, s, limiter, o.reporter, input, capability.Context{
		Domain: s.Domain,
		Plan:   s.Plan,
		Quiz:   s.Quiz,
	})
	if err == nil {
		err = o.stillCurrent(ctx, s, token)
	}
	if err != nil {
		// A discarded or failed turn leaves no intermediate stage behind.
		if from != s.Stage {
			o.transition(s, from)
		}
		return nil, err
	}

	s.Report = res.Report
	o.transition(s, core.StageCompleted)

	return &TurnResult{
		Text:          res.Text,
		Report:        res.Report,
		FallbackLevel: res.FallbackLevel,
	}, nil
}

// invoke runs a capability under the per-turn call budget and emits the
// capability and parse-fallback trace events.
func (o *Orchestrator) invoke(ctx context.Context, s *session.Session, limiter *core.CallLimiter, c capability.Capability, input string, cc capability.Context) (*capability.Result, error) {
	if err := limiter.Increment(); err != nil {
		return nil, core.GenerationError(err)
	}

	timer := time.Now()
	res, err := c.Generate(ctx, input, cc)
	o.emit(core.TraceCapabilityInvoked, s, map[string]string{
		"capability":  c.Name(),
		"duration_ms": strconv.FormatInt(time.Since(timer).Milliseconds(), 10),
	})
	if err != nil {
		o.logger.Error("capability failed", "capability", c.Name(), "session_id", s.ID, "err", err)
		return nil, err
	}

	if res.FallbackLevel > capability.FallbackNone {
		o.emit(core.TraceParseFallback, s, map[string]string{
			"capability": c.Name(),
			"level":      strconv.Itoa(res.FallbackLevel),
		})
	}
	return res, nil
}

// contextBundle assembles the retrieval context for a capability call.
// Retrieval failure degrades to ungrounded generation instead of failing the
// turn; the degraded flag is propagated to the caller's payload.
func (o *Orchestrator) contextBundle(ctx context.Context, s *session.Session, query string, k int) (string, bool) {
	text, err := o.engine.BuildContext(ctx, s.CorpusID, query, k)
	if err != nil {
		o.logger.Warn("retrieval unavailable, running ungrounded", "session_id", s.ID, "err", err)
		return "", true
	}
	o.emit(core.TraceRetrievalPerformed, s, map[string]string{
		"query":       query,
		"context_len": strconv.Itoa(len(text)),
	})
	return text, false
}

// stillCurrent rejects results that arrive after the turn was abandoned or
// superseded, so they are discarded before any state mutation.
func (o *Orchestrator) stillCurrent(ctx context.Context, s *session.Session, token uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.Turn != token {
		return fmt.Errorf("turn superseded: session %s", s.ID)
	}
	return nil
}

func (o *Orchestrator) transition(s *session.Session, to core.Stage) {
	from := s.Stage
	s.Stage = to
	o.logger.Debug("stage transition", "session_id", s.ID, "from", string(from), "to", string(to))
	o.emit(core.TraceStageTransition, s, map[string]string{"from": string(from), "to": string(to)})
}

// persist writes the session snapshot. Failure is reported but never rolls
// back the in-memory transition; memory stays authoritative for the rest of
// the process lifetime.
func (o *Orchestrator) persist(s *session.Session) {
	if err := o.store.Save(session.TakeSnapshot(s)); err != nil {
		o.logger.Error("session persistence failed", "session_id", s.ID, "err", err)
		o.emit(core.TracePersistenceFailed, s, map[string]string{"err": err.Error()})
	}
}

func (o *Orchestrator) emit(t core.TraceEventType, s *session.Session, payload map[string]string) {
	o.sink.Emit(core.NewTraceEvent(t, s.ID, s.Stage, payload))
}

func (o *Orchestrator) sessionLock(id string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[id] = lock
	}
	return lock
}

func (o *Orchestrator) loadOrCreate(id string) *session.Session {
	o.mu.Lock()
	defer o.mu.Unlock()

	if s, ok := o.sessions[id]; ok {
		return s
	}
	if snap, err := o.store.Load(id); err == nil {
		s := session.Restore(snap)
		o.sessions[id] = s
		return s
	} else if !errors.Is(err, core.ErrSessionNotFound) {
		o.logger.Warn("session load failed, starting fresh", "session_id", id, "err", err)
	}

	s := session.New(id, o.cfg.Memory.WindowCapacity)
	o.sessions[id] = s
	return s
}

// planningQuery picks the retrieval query for a planning cycle: the input
// itself when it carries a specific ask, otherwise a full-corpus summary
// probe.
func planningQuery(input string) string {
	if len(strings.Fields(input)) >= 4 {
		return input
	}
	return "overview of the main topics and key concepts"
}

// parseAnswers splits a submission into one answer per question. Commas,
// semicolons, and newlines separate answers; a single unseparated token list
// for a multi-question quiz falls back to whitespace splitting.
func parseAnswers(input string, questions int) []string {
	parts := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	if len(parts) == 1 && questions > 1 {
		fields := strings.Fields(parts[0])
		if len(fields) == questions {
			return fields
		}
	}
	return parts
}
