package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageValid(t *testing.T) {
	for _, s := range []Stage{StageIdle, StagePlanning, StageLearning, StageValidating, StageReporting, StageCompleted} {
		assert.True(t, s.Valid(), "stage %q", s)
	}
	assert.False(t, Stage("paused").Valid())
	assert.True(t, StageCompleted.Terminal())
	assert.False(t, StageLearning.Terminal())
}

func TestIntentValid(t *testing.T) {
	for _, i := range Intents() {
		assert.True(t, i.Valid())
	}
	assert.False(t, Intent("summarize").Valid())
}

func TestGuardViolationUnwraps(t *testing.T) {
	var err error = &GuardViolation{Stage: StageLearning, Intent: IntentStartQuiz, Reason: "no plan exists yet"}
	assert.True(t, errors.Is(err, ErrTransitionGuard))

	var gv *GuardViolation
	require.True(t, errors.As(err, &gv))
	assert.Equal(t, StageLearning, gv.Stage)
	assert.Contains(t, err.Error(), "no plan exists yet")
}

func TestErrorWrappers(t *testing.T) {
	assert.True(t, errors.Is(IngestionError("empty source %q", "a.pdf"), ErrIngestion))
	assert.True(t, errors.Is(RetrievalError(errors.New("backend down")), ErrRetrieval))
	assert.True(t, errors.Is(GenerationError(errors.New("timeout")), ErrGeneration))
}

func TestQuizGraded(t *testing.T) {
	q := &Quiz{Questions: []Question{{Prompt: "p", CorrectAnswer: "A"}, {Prompt: "p2", CorrectAnswer: "B"}}}
	assert.False(t, q.Graded())

	score := 0.5
	q.SubmittedAnswers = []string{"A"}
	q.Score = &score
	assert.False(t, q.Graded(), "score must not count as graded until every question is answered")

	q.SubmittedAnswers = []string{"A", "C"}
	assert.True(t, q.Graded())
}

func TestChannelSinkNeverBlocks(t *testing.T) {
	sink := NewChannelSink(1)
	sink.Emit(NewTraceEvent(TraceIntentClassified, "s1", StageIdle, nil))
	// Buffer is full now; further emissions must drop instead of blocking.
	sink.Emit(NewTraceEvent(TraceStageTransition, "s1", StagePlanning, nil))
	sink.Emit(NewTraceEvent(TraceStageTransition, "s1", StageLearning, nil))

	ev := <-sink.Events()
	assert.Equal(t, TraceIntentClassified, ev.Type)
	select {
	case ev2 := <-sink.Events():
		t.Fatalf("expected dropped events, got %v", ev2.Type)
	default:
	}
}

func TestCallLimiter(t *testing.T) {
	cl := NewCallLimiter(2)
	require.NoError(t, cl.Increment())
	require.NoError(t, cl.Increment())
	assert.Error(t, cl.Increment())
	assert.Equal(t, 3, cl.Count())

	unlimited := NewCallLimiter(0)
	for i := 0; i < 10; i++ {
		require.NoError(t, unlimited.Increment())
	}
	assert.Equal(t, -1, unlimited.Remaining())
}

func TestPlanMarkdown(t *testing.T) {
	p := &Plan{Domain: "Go concurrency", Goal: "use it fluently", Stages: []PlanStage{
		{Title: "Goroutines", Objectives: []string{"spawn", "wait"}, KeyTerms: []string{"go", "sync.WaitGroup"}},
	}}
	md := p.Markdown()
	assert.Contains(t, md, "# Learning plan: Go concurrency")
	assert.Contains(t, md, "Stage 1: Goroutines")
	assert.Contains(t, md, "sync.WaitGroup")
}
