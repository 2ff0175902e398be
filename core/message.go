package core

import (
	"time"

	"github.com/google/uuid"
)

// Conversation roles. The set is closed: the orchestration core only ever
// appends user and assistant turns to a session's window.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation turn. Messages are immutable once appended
// to a window; insertion order defines conversational causality.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewUserMessage creates a user turn stamped with the current UTC time.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: time.Now().UTC()}
}

// NewAssistantMessage creates an assistant turn stamped with the current UTC time.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content, Timestamp: time.Now().UTC()}
}

// NewID generates a unique identifier used for sessions, trace events and
// chunk sources throughout the module.
func NewID() string { return uuid.NewString() }
