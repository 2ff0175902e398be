// Package tutormesh provides a high-level façade over the orchestration core
// for building conversational learning assistants. Most applications interact
// with this package by:
//  1. Creating a TutorMesh via New() with a generative model (optionally
//     overriding default in-memory services and the hash embedder)
//  2. Ingesting source material into a session's corpus
//  3. Submitting user turns and rendering the returned results
//
// The façade delegates turn processing to orchestrator.Orchestrator while
// keeping setup ergonomics concise. All defaults are safe for local
// development and testing; production deployments typically supply an API
// backed embedder, a durable session store, and a structured logger.
package tutormesh

import (
	"context"

	"github.com/hupe1980/tutormesh/config"
	"github.com/hupe1980/tutormesh/core"
	"github.com/hupe1980/tutormesh/embedding"
	"github.com/hupe1980/tutormesh/logging"
	"github.com/hupe1980/tutormesh/model"
	"github.com/hupe1980/tutormesh/orchestrator"
	"github.com/hupe1980/tutormesh/retrieval"
	"github.com/hupe1980/tutormesh/session"
)

// Options configures the TutorMesh instance.
type Options struct {
	// Config tunes retrieval, memory, model, and router behavior.
	Config config.Config

	// Embedder computes chunk and query vectors (defaults to the local hash
	// embedder if nil).
	Embedder embedding.Embedder

	// ChunkStore holds ingested document chunks (defaults to in-memory).
	ChunkStore retrieval.Store

	// SessionStore persists session snapshots (defaults to in-memory).
	SessionStore session.Store

	// Sink receives trace events (defaults to discarding them).
	Sink core.TraceSink

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// TutorMesh is the high-level façade aggregating the orchestrator and its
// collaborators.
type TutorMesh struct {
	opts   Options
	engine *retrieval.Engine
	orch   *orchestrator.Orchestrator
}

// New creates a TutorMesh around a generative model. Any unset service is
// initialized with an in-memory implementation.
func New(m model.Model, optFns ...func(o *Options)) *TutorMesh {
	opts := Options{
		Config:       config.Default(),
		Embedder:     embedding.NewHashEmbedder(0),
		ChunkStore:   retrieval.NewInMemoryStore(),
		SessionStore: session.NewInMemoryStore(),
		Sink:         core.NoOpSink{},
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	engine := retrieval.NewEngine(opts.ChunkStore, opts.Embedder, func(o *retrieval.Options) {
		o.ChunkSize = opts.Config.Retrieval.ChunkSize
		o.ChunkOverlap = opts.Config.Retrieval.ChunkOverlap
		o.ContextBudget = opts.Config.Retrieval.ContextBudget
		o.Logger = opts.Logger
	})

	orch := orchestrator.New(m, engine, func(o *orchestrator.Options) {
		o.Config = opts.Config
		o.Logger = opts.Logger
		o.Sink = opts.Sink
		o.Store = opts.SessionStore
	})

	return &TutorMesh{opts: opts, engine: engine, orch: orch}
}

// Ingest adds source material to the given corpus and returns the number of
// chunks stored. Sessions retrieve from the corpus named by their session ID
// unless configured otherwise.
func (t *TutorMesh) Ingest(ctx context.Context, corpus, text string, metadata map[string]string) (int, error) {
	return t.orch.Ingest(ctx, corpus, text, metadata)
}

// SubmitTurn processes one user turn against the named session, creating the
// session on first use.
func (t *TutorMesh) SubmitTurn(ctx context.Context, sessionID, input string) (*orchestrator.TurnResult, error) {
	return t.orch.SubmitTurn(ctx, sessionID, input)
}

// GetSession returns a snapshot of the session's current state.
func (t *TutorMesh) GetSession(id string) (session.Snapshot, error) {
	return t.orch.GetSession(id)
}
