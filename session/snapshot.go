package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/tutormesh/core"
	"github.com/hupe1980/tutormesh/memory"
)

// Snapshot is the serialized form of a Session. It mirrors the session shape
// as a plain record; the only format guarantee is that Restore(Snapshot(s))
// reproduces s exactly.
type Snapshot struct {
	ID       string         `json:"id"`
	Stage    core.Stage     `json:"stage"`
	Domain   string         `json:"domain,omitempty"`
	CorpusID string         `json:"corpus_id"`
	Capacity int            `json:"window_capacity"`
	History  []core.Message `json:"history"`
	Plan     *core.Plan     `json:"plan,omitempty"`
	Quiz     *core.Quiz     `json:"quiz,omitempty"`
	Report   *core.Report   `json:"report,omitempty"`
	Created  time.Time      `json:"created"`
	Updated  time.Time      `json:"updated"`
	Turn     uint64         `json:"turn"`
}

// TakeSnapshot captures the session's current state as a plain record.
func TakeSnapshot(s *Session) Snapshot {
	return Snapshot{
		ID:       s.ID,
		Stage:    s.Stage,
		Domain:   s.Domain,
		CorpusID: s.CorpusID,
		Capacity: s.Window.Capacity(),
		History:  s.Window.Messages(),
		Plan:     s.Plan,
		Quiz:     s.Quiz,
		Report:   s.Report,
		Created:  s.Created,
		Updated:  s.Updated,
		Turn:     s.Turn,
	}
}

// Restore reconstructs a live session from a snapshot.
func Restore(snap Snapshot) *Session {
	w := memory.NewWindow(snap.Capacity)
	w.Append(snap.History...)
	return &Session{
		ID:       snap.ID,
		Stage:    snap.Stage,
		Domain:   snap.Domain,
		CorpusID: snap.CorpusID,
		Window:   w,
		Plan:     snap.Plan,
		Quiz:     snap.Quiz,
		Report:   snap.Report,
		Created:  snap.Created,
		Updated:  snap.Updated,
		Turn:     snap.Turn,
	}
}

// Marshal encodes a snapshot as JSON.
func (s Snapshot) Marshal() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal session snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot decodes a JSON snapshot.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal session snapshot: %w", err)
	}
	return snap, nil
}
