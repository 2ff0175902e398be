package memory

import (
	"fmt"
	"strings"
	"testing"

	"github.com/hupe1980/tutormesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowEvictsOldest(t *testing.T) {
	w := NewWindow(6)
	for i := 0; i < 8; i++ {
		w.Append(core.NewUserMessage(fmt.Sprintf("turn %d", i)))
	}

	require.Equal(t, 6, w.Len())
	msgs := w.Messages()
	assert.Equal(t, "turn 2", msgs[0].Content, "oldest two must be evicted")
	assert.Equal(t, "turn 7", msgs[5].Content, "newest is always retained")
}

func TestWindowRenderCapped(t *testing.T) {
	w := NewWindow(6)
	for i := 0; i < 8; i++ {
		w.Append(core.NewUserMessage(fmt.Sprintf("turn %d", i)))
	}

	rendered := w.Render(10)
	lines := strings.Split(rendered, "\n")
	assert.Len(t, lines, 6, "render beyond retention yields only retained messages")
	assert.Contains(t, lines[0], "turn 2")
}

func TestWindowLastAssistant(t *testing.T) {
	w := NewWindow(10)
	_, ok := w.LastAssistant()
	assert.False(t, ok)

	w.Append(
		core.NewUserMessage("what is raft?"),
		core.NewAssistantMessage("Raft is a consensus algorithm."),
		core.NewUserMessage("thanks"),
	)

	last, ok := w.LastAssistant()
	require.True(t, ok)
	assert.Equal(t, "Raft is a consensus algorithm.", last.Content)
}

func TestWindowLast(t *testing.T) {
	w := NewWindow(10)
	w.Append(
		core.NewUserMessage("a"),
		core.NewUserMessage("b"),
		core.NewUserMessage("c"),
	)

	last := w.Last(2)
	require.Len(t, last, 2)
	assert.Equal(t, "b", last[0].Content)
	assert.Equal(t, "c", last[1].Content)
	assert.Nil(t, w.Last(0))
}

func TestWindowDefaultCapacity(t *testing.T) {
	w := NewWindow(0)
	assert.Equal(t, DefaultCapacity, w.Capacity())
}

func TestWindowReset(t *testing.T) {
	w := NewWindow(4)
	w.Append(core.NewUserMessage("a"))
	w.Reset()
	assert.Zero(t, w.Len())
	assert.Empty(t, w.Render(4))
}
