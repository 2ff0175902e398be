// Package session defines the session entity owned by the orchestrator and
// the persistence contract for session snapshots. A session is mutated only
// through the orchestrator's transition application; everything here is
// plumbing for holding and round-tripping that state.
package session

import (
	"time"

	"github.com/hupe1980/tutormesh/core"
	"github.com/hupe1980/tutormesh/memory"
)

// Session holds all per-learner workflow state. It is owned by exactly one
// orchestrator turn at a time; completed sessions are archived, never
// deleted.
type Session struct {
	ID     string
	Stage  core.Stage
	Domain string
	// CorpusID names the document store partition this session retrieves
	// from. Defaults to the session ID.
	CorpusID string
	Window   *memory.Window
	Plan     *core.Plan
	Quiz     *core.Quiz
	Report   *core.Report
	Created  time.Time
	Updated  time.Time
	// Turn is the sequence token incremented at the start of every accepted
	// turn. A capability result carrying a stale token is discarded.
	Turn uint64
}

// New creates a session in the idle stage with the given window capacity.
func New(id string, windowCapacity int) *Session {
	now := time.Now()
	return &Session{
		ID:       id,
		Stage:    core.StageIdle,
		CorpusID: id,
		Window:   memory.NewWindow(windowCapacity),
		Created:  now,
		Updated:  now,
	}
}
