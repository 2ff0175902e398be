package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/tutormesh/core"
	"github.com/hupe1980/tutormesh/model"
	"github.com/stretchr/testify/assert"
)

func TestClassifyKeywords(t *testing.T) {
	r := New(nil)
	ctx := context.Background()

	tests := []struct {
		input string
		stage core.Stage
		want  core.Intent
	}{
		{"teach me the basics of raft", core.StageIdle, core.IntentCreatePlan},
		{"what is a quorum?", core.StageLearning, core.IntentAskQuestion},
		{"quiz me on elections", core.StageLearning, core.IntentStartQuiz},
		{"show me my progress report", core.StageLearning, core.IntentGetReport},
		{"hello there", core.StageLearning, core.IntentChitchat},
	}
	for _, tt := range tests {
		got := r.Classify(ctx, tt.input, tt.stage, nil)
		assert.Equal(t, tt.want, got, "input %q in stage %s", tt.input, tt.stage)
	}
}

func TestClassifyStageNarrowsCandidates(t *testing.T) {
	r := New(nil)
	ctx := context.Background()

	// start_quiz is not offered from idle; the question keyword still matches.
	got := r.Classify(ctx, "can you quiz me on what we covered?", core.StageIdle, nil)
	assert.NotEqual(t, core.IntentStartQuiz, got)

	// From learning the same input classifies as start_quiz.
	got = r.Classify(ctx, "can you quiz me on what we covered?", core.StageLearning, nil)
	assert.Equal(t, core.IntentStartQuiz, got)
}

func TestClassifyPrimaryIntentTieBreak(t *testing.T) {
	r := New(nil)
	ctx := context.Background()

	// Matches both the quiz rule and the report rule; the stage's primary
	// expected intent decides.
	input := "give me a report on my quiz results"
	assert.Equal(t, core.IntentStartQuiz, r.Classify(ctx, input, core.StageValidating, nil))
	assert.Equal(t, core.IntentGetReport, r.Classify(ctx, input, core.StageReporting, nil))
}

func TestClassifyModelFallback(t *testing.T) {
	m := model.NewMockModel("mock")
	m.AddResponse("tell me about yourself", "ask_question")
	r := New(m)

	got := r.Classify(context.Background(), "tell me about yourself", core.StageLearning, nil)
	assert.Equal(t, core.IntentAskQuestion, got)
}

func TestClassifyModelFallbackInvalidLabel(t *testing.T) {
	m := model.NewMockModel("mock")
	m.AddResponse("ramble", "I think this might be a planning request")
	r := New(m)

	got := r.Classify(context.Background(), "ramble ramble", core.StageLearning, nil)
	assert.Equal(t, core.IntentChitchat, got)
}

func TestClassifyModelFallbackError(t *testing.T) {
	m := model.NewMockModel("mock")
	m.FailWith(errors.New("model down"))
	r := New(m)

	got := r.Classify(context.Background(), "mmm", core.StageLearning, nil)
	assert.Equal(t, core.IntentChitchat, got)
}

// recordingModel answers with a fixed label and remembers the last request so
// tests can inspect what the fallback call carried.
type recordingModel struct {
	label string
	last  model.Request
}

func (m *recordingModel) Generate(_ context.Context, req model.Request) (*model.Response, error) {
	m.last = req
	return &model.Response{Text: m.label, FinishReason: "stop"}, nil
}

func (m *recordingModel) Info() model.Info {
	return model.Info{Name: "recording", Provider: "mock"}
}

func TestClassifyFallbackCarriesModelOptions(t *testing.T) {
	m := &recordingModel{label: "ask_question"}
	opts := model.Options{MaxTokens: 64, Temperature: 0.1, Timeout: 5 * time.Second}
	r := New(m, func(o *Options) { o.ModelOptions = opts })

	got := r.Classify(context.Background(), "mmm", core.StageLearning, nil)
	assert.Equal(t, core.IntentAskQuestion, got)
	assert.Equal(t, opts, m.last.Options, "fallback call must be bounded like any other generative call")
}

func TestClassifyCache(t *testing.T) {
	m := model.NewMockModel("mock")
	m.AddResponse("greetings", "chitchat")
	r := New(m, func(o *Options) { o.CacheEnabled = true })
	ctx := context.Background()

	r.Classify(ctx, "greetings friend", core.StageLearning, nil)
	r.Classify(ctx, "greetings friend", core.StageLearning, nil)
	assert.Equal(t, 1, m.Calls(), "second classification must hit the cache")

	// Different stage is a different cache key.
	r.Classify(ctx, "greetings friend", core.StageIdle, nil)
	assert.Equal(t, 2, m.Calls())
}

func TestClassifyCacheSkipsDegradedFallback(t *testing.T) {
	m := model.NewMockModel("mock")
	m.AddResponse("greetings", "ask_question")
	m.FailWith(errors.New("model down"))
	r := New(m, func(o *Options) { o.CacheEnabled = true })
	ctx := context.Background()

	got := r.Classify(ctx, "greetings friend", core.StageLearning, nil)
	assert.Equal(t, core.IntentChitchat, got)

	// Once the model recovers, the same input must classify fresh instead
	// of replaying the degraded chitchat from the cache.
	m.FailWith(nil)
	got = r.Classify(ctx, "greetings friend", core.StageLearning, nil)
	assert.Equal(t, core.IntentAskQuestion, got)
	assert.Equal(t, 2, m.Calls())

	// The recovered classification is cached normally.
	r.Classify(ctx, "greetings friend", core.StageLearning, nil)
	assert.Equal(t, 2, m.Calls())
}
