package session

import (
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/tutormesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Interface compliance (compile-time assertion)
var _ Store = (*InMemoryStore)(nil)

func sampleSession(t *testing.T) *Session {
	t.Helper()

	s := New("sess-1", 10)
	s.Domain = "raft"
	s.Stage = core.StageValidating
	s.Turn = 7
	// Explicit UTC timestamps so snapshot comparisons are exact; local zone
	// and monotonic clock readings do not survive JSON.
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.Window.Append(
		core.Message{Role: core.RoleUser, Content: "teach me raft", Timestamp: ts},
		core.Message{Role: core.RoleAssistant, Content: "Here is your plan.", Timestamp: ts.Add(time.Second)},
	)
	s.Plan = &core.Plan{
		Domain:  "raft",
		Goal:    "understand consensus",
		Stages:  []core.PlanStage{{Title: "Basics", Objectives: []string{"define consensus"}}},
		Created: ts,
	}
	score := 0.5
	s.Quiz = &core.Quiz{
		Topic:            "raft",
		Questions:        []core.Question{{Prompt: "q1", CorrectAnswer: "a"}, {Prompt: "q2", CorrectAnswer: "b"}},
		SubmittedAnswers: []string{"a", "x"},
		Score:            &score,
		Created:          ts.Add(time.Minute),
	}
	return s
}

func TestNewSessionDefaults(t *testing.T) {
	s := New("sess-1", 4)
	assert.Equal(t, core.StageIdle, s.Stage)
	assert.Equal(t, "sess-1", s.CorpusID)
	assert.Equal(t, 4, s.Window.Capacity())
	assert.Zero(t, s.Turn)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := sampleSession(t)

	data, err := TakeSnapshot(s).Marshal()
	require.NoError(t, err)

	snap, err := UnmarshalSnapshot(data)
	require.NoError(t, err)
	restored := Restore(snap)

	assert.Equal(t, s.ID, restored.ID)
	assert.Equal(t, s.Stage, restored.Stage)
	assert.Equal(t, s.Domain, restored.Domain)
	assert.Equal(t, s.Turn, restored.Turn)
	assert.Equal(t, s.Window.Capacity(), restored.Window.Capacity())
	assert.Equal(t, s.Window.Messages(), restored.Window.Messages())
	assert.Equal(t, s.Plan, restored.Plan)
	assert.Equal(t, s.Quiz, restored.Quiz)
	assert.True(t, restored.Quiz.Graded())
}

func TestStoreSaveLoad(t *testing.T) {
	store := NewInMemoryStore()
	s := sampleSession(t)

	require.NoError(t, store.Save(TakeSnapshot(s)))

	snap, err := store.Load("sess-1")
	require.NoError(t, err)
	assert.Equal(t, core.StageValidating, snap.Stage)

	ids, err := store.IDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"sess-1"}, ids)
}

func TestStoreLoadMissing(t *testing.T) {
	store := NewInMemoryStore()
	_, err := store.Load("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrSessionNotFound))
}

func TestStoreSaveReplaces(t *testing.T) {
	store := NewInMemoryStore()
	s := sampleSession(t)
	require.NoError(t, store.Save(TakeSnapshot(s)))

	s.Stage = core.StageReporting
	require.NoError(t, store.Save(TakeSnapshot(s)))

	snap, err := store.Load("sess-1")
	require.NoError(t, err)
	assert.Equal(t, core.StageReporting, snap.Stage)
}
