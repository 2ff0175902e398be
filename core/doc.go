// Package core contains the shared domain vocabulary of TutorMesh: session
// stages and intents, conversation messages, the structured artifacts produced
// by capabilities (plans, quizzes, reports), document chunks for retrieval,
// trace events for observability, and the error taxonomy used across the
// orchestration core.
//
// Types here are deliberately free of behavior beyond small invariant-keeping
// helpers so that every other package can depend on core without cycles.
package core
