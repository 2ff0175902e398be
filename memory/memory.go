// Package memory provides the bounded conversation window that backs a
// session's short-term context. The window is a FIFO over full turns: when
// capacity is exceeded the oldest messages are evicted, never the newest.
package memory

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/tutormesh/core"
)

// DefaultCapacity is the window size used when none is configured.
const DefaultCapacity = 20

// Window is a bounded, append-only view over recent conversation messages.
// It is safe for concurrent use.
type Window struct {
	mu       sync.RWMutex
	capacity int
	messages []core.Message
}

// NewWindow creates a window holding at most capacity messages. Non-positive
// capacities fall back to DefaultCapacity.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Window{capacity: capacity}
}

// Append adds messages in order, evicting the oldest entries once the
// capacity is exceeded.
func (w *Window) Append(msgs ...core.Message) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.messages = append(w.messages, msgs...)
	if excess := len(w.messages) - w.capacity; excess > 0 {
		w.messages = append([]core.Message(nil), w.messages[excess:]...)
	}
}

// Len returns the number of retained messages.
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.messages)
}

// Capacity returns the configured maximum message count.
func (w *Window) Capacity() int {
	return w.capacity
}

// Messages returns a copy of the retained messages, oldest first.
func (w *Window) Messages() []core.Message {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]core.Message(nil), w.messages...)
}

// Last returns up to n of the most recent messages, oldest first. A request
// beyond the retained count returns everything retained.
func (w *Window) Last(n int) []core.Message {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if n <= 0 {
		return nil
	}
	if n > len(w.messages) {
		n = len(w.messages)
	}
	return append([]core.Message(nil), w.messages[len(w.messages)-n:]...)
}

// LastAssistant returns the most recent assistant message, or false when the
// window holds none.
func (w *Window) LastAssistant() (core.Message, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for i := len(w.messages) - 1; i >= 0; i-- {
		if w.messages[i].Role == core.RoleAssistant {
			return w.messages[i], true
		}
	}
	return core.Message{}, false
}

// Render formats up to n recent messages as a plain transcript for prompt
// assembly. Requests beyond the retained count render only what is held.
func (w *Window) Render(n int) string {
	msgs := w.Last(n)
	if len(msgs) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, m := range msgs {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%s: %s", m.Role, m.Content)
	}
	return sb.String()
}

// Reset discards all retained messages.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = nil
}
