package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hupe1980/tutormesh/core"
	"github.com/hupe1980/tutormesh/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Interface compliance (compile-time assertion)
var _ Store = (*InMemoryStore)(nil)

func newTestEngine(optFns ...func(o *Options)) *Engine {
	return NewEngine(NewInMemoryStore(), embedding.NewHashEmbedder(128), optFns...)
}

func TestIngestRejectsEmptySource(t *testing.T) {
	e := newTestEngine()
	_, err := e.Ingest(context.Background(), "c1", "   \n\t ", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrIngestion))
}

func TestIngestCountsChunks(t *testing.T) {
	e := newTestEngine(func(o *Options) {
		o.ChunkSize = 50
		o.ChunkOverlap = 10
	})
	text := strings.Repeat("all work and no play makes a dull module. ", 10)
	n, err := e.Ingest(context.Background(), "c1", text, map[string]string{"source": "proverbs.txt"})
	require.NoError(t, err)
	assert.Greater(t, n, 1)
}

func TestRetrieveRanksRelevantChunkFirst(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	_, err := e.Ingest(ctx, "c1", "Bananas are yellow and grow in warm climates.", map[string]string{"source": "fruit.txt"})
	require.NoError(t, err)
	_, err = e.Ingest(ctx, "c1", "The system's core is the Orchestrator.", map[string]string{"source": "arch.txt"})
	require.NoError(t, err)
	_, err = e.Ingest(ctx, "c1", "Penguins live in the southern hemisphere.", map[string]string{"source": "birds.txt"})
	require.NoError(t, err)

	results, err := e.Retrieve(ctx, "c1", "What is the core?", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Chunk.Text, "Orchestrator")
}

func TestRetrieveDeterministic(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	for _, doc := range []string{
		"Goroutines are lightweight threads managed by the Go runtime.",
		"Channels provide communication between goroutines.",
		"The select statement waits on multiple channel operations.",
	} {
		_, err := e.Ingest(ctx, "c1", doc, nil)
		require.NoError(t, err)
	}

	first, err := e.Retrieve(ctx, "c1", "goroutines and channels", 3)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := e.Retrieve(ctx, "c1", "goroutines and channels", 3)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRetrieveEmptyCorpus(t *testing.T) {
	e := newTestEngine()
	results, err := e.Retrieve(context.Background(), "missing", "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBuildContextTruncatesToBudget(t *testing.T) {
	e := newTestEngine(func(o *Options) {
		o.ContextBudget = 80
	})
	ctx := context.Background()
	_, err := e.Ingest(ctx, "c1", strings.Repeat("context assembly must respect the budget. ", 20), nil)
	require.NoError(t, err)

	out, err := e.BuildContext(ctx, "c1", "budget", 3)
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(out)), 80)
	assert.Contains(t, out, "[source 1:")
}

func TestBuildContextEmptyCorpus(t *testing.T) {
	e := newTestEngine()
	out, err := e.BuildContext(context.Background(), "missing", "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestExpandQueryAppendsTopicKeywords(t *testing.T) {
	e := newTestEngine()
	history := []core.Message{
		core.NewUserMessage("What is X?"),
		core.NewAssistantMessage("X is a distributed consensus protocol based on quorum voting."),
	}

	expanded := e.ExpandQuery("How does it compare to Y?", history)
	assert.NotEqual(t, "How does it compare to Y?", expanded)

	lowered := strings.ToLower(expanded)
	found := false
	for _, kw := range []string{"distributed", "consensus", "protocol", "quorum", "voting"} {
		if strings.Contains(lowered, kw) {
			found = true
			break
		}
	}
	assert.True(t, found, "expanded query %q should carry a keyword from the last assistant turn", expanded)
}

func TestExpandQueryCJKMarker(t *testing.T) {
	e := newTestEngine()
	history := []core.Message{
		core.NewAssistantMessage("Raft is a consensus algorithm built around leader election."),
	}

	// CJK markers carry no word separators, so they must match without
	// relying on tokenization.
	expanded := e.ExpandQuery("它是什么", history)
	assert.NotEqual(t, "它是什么", expanded)
	assert.Contains(t, strings.ToLower(expanded), "consensus")
}

func TestExpandQueryPassThrough(t *testing.T) {
	e := newTestEngine()
	history := []core.Message{core.NewAssistantMessage("Channels provide communication.")}

	// No deictic marker: unchanged.
	assert.Equal(t, "explain channels", e.ExpandQuery("explain channels", history))
	// Deictic marker but no assistant history: unchanged.
	assert.Equal(t, "what is it", e.ExpandQuery("what is it", nil))
}

func TestSplitterOverlap(t *testing.T) {
	s := NewSplitter(10, 4)
	chunks := s.Split("abcdefghijklmnopqrstuvwxyz")
	require.NotEmpty(t, chunks)
	assert.Equal(t, "abcdefghij", chunks[0])
	// Second chunk starts chunkSize-overlap = 6 runes in.
	assert.True(t, strings.HasPrefix(chunks[1], "ghij"))
}

func TestSplitterShortInput(t *testing.T) {
	s := NewSplitter(1000, 200)
	assert.Equal(t, []string{"short"}, s.Split("  short  "))
	assert.Nil(t, s.Split(""))
}

func TestStoreAppendOnlyOrdering(t *testing.T) {
	store := NewInMemoryStore()
	require.NoError(t, store.Append("c1", []core.Chunk{{SourceID: "a", SequenceIndex: 0, Text: "one"}}))
	require.NoError(t, store.Append("c1", []core.Chunk{{SourceID: "b", SequenceIndex: 0, Text: "two"}}))

	chunks, err := store.Chunks("c1")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "one", chunks[0].Text)
	assert.Equal(t, "two", chunks[1].Text)

	n, err := store.Count("c1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestTopicKeywordsDeterministic(t *testing.T) {
	text := "Consensus protocols use quorum voting. Consensus requires a quorum."
	a := TopicKeywords(text, 3)
	b := TopicKeywords(text, 3)
	assert.Equal(t, a, b)
	assert.Equal(t, "consensus", a[0], "most frequent token first")
}
