package core

import "time"

// TraceEventType enumerates the observable milestones of a turn.
type TraceEventType string

const (
	// TraceIntentClassified records the router's decision for a turn.
	TraceIntentClassified TraceEventType = "intent_classified"
	// TraceStageTransition records an applied stage transition.
	TraceStageTransition TraceEventType = "stage_transition"
	// TraceCapabilityInvoked records a capability call.
	TraceCapabilityInvoked TraceEventType = "capability_invoked"
	// TraceRetrievalPerformed records a retrieval query and hit count.
	TraceRetrievalPerformed TraceEventType = "retrieval_performed"
	// TraceParseFallback records which recovery chain level produced a result.
	TraceParseFallback TraceEventType = "parse_fallback"
	// TraceIngestionCompleted records a successful document ingestion.
	TraceIngestionCompleted TraceEventType = "ingestion_completed"
	// TracePersistenceFailed records a snapshot write failure.
	TracePersistenceFailed TraceEventType = "persistence_failed"
)

// TraceEvent is a structured observability record. Delivery to a TraceSink is
// best-effort and must never block or fail the turn that produced it.
type TraceEvent struct {
	ID        string            `json:"id"`
	Type      TraceEventType    `json:"event_type"`
	SessionID string            `json:"session_id"`
	Stage     Stage             `json:"stage"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   map[string]string `json:"payload,omitempty"`
}

// NewTraceEvent creates an event stamped with a fresh ID and the current UTC time.
func NewTraceEvent(t TraceEventType, sessionID string, stage Stage, payload map[string]string) TraceEvent {
	return TraceEvent{
		ID:        NewID(),
		Type:      t,
		SessionID: sessionID,
		Stage:     stage,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// TraceSink receives trace events. Implementations must return quickly;
// emitters drop events rather than block.
type TraceSink interface {
	Emit(ev TraceEvent)
}

// NoOpSink discards all trace events.
type NoOpSink struct{}

// Emit implements TraceSink.
func (NoOpSink) Emit(TraceEvent) {}

// ChannelSink forwards events to a buffered channel, dropping events when the
// buffer is full so that observability can never stall a turn.
type ChannelSink struct {
	ch chan TraceEvent
}

// NewChannelSink creates a sink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 64
	}
	return &ChannelSink{ch: make(chan TraceEvent, buffer)}
}

// Emit implements TraceSink with non-blocking send semantics.
func (s *ChannelSink) Emit(ev TraceEvent) {
	select {
	case s.ch <- ev:
	default:
	}
}

// Events exposes the receive side of the sink for consumers.
func (s *ChannelSink) Events() <-chan TraceEvent { return s.ch }
