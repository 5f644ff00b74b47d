package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novapay/rag-chat-backend/internal/analysis"
)

type stubAnalyzer struct {
	result *analysis.Result
	err    error
}

func (s *stubAnalyzer) Analyze(ctx context.Context, question, answer string) (*analysis.Result, error) {
	return s.result, s.err
}

type captureLogger struct {
	mu      sync.Mutex
	entries []*InteractionEntry
	err     error
	logged  chan struct{}
}

func newCaptureLogger() *captureLogger {
	return &captureLogger{logged: make(chan struct{}, 8)}
}

func (c *captureLogger) LogInteraction(ctx context.Context, entry *InteractionEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
	c.logged <- struct{}{}
	return c.err
}

func (c *captureLogger) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func goodResult() *analysis.Result {
	return &analysis.Result{
		QualityScore:       0.8,
		QualityLabel:       analysis.LabelGood,
		Category:           "Transfers",
		Topics:             []string{"wire transfer"},
		QuestionType:       "factual",
		QuestionComplexity: "simple",
	}
}

func TestRecordLogsEntry(t *testing.T) {
	store := newCaptureLogger()
	rec := NewRecorder(&stubAnalyzer{result: goodResult()}, store, "gpt-4o-mini", "flow-1")

	rec.Record(Turn{
		InteractionID: "int-1",
		SessionID:     "sess-1",
		Question:      "How long does a wire take?",
		Answer:        "Domestic wires settle same day.",
		LatencyMS:     950,
	})

	select {
	case <-store.logged:
	case <-time.After(2 * time.Second):
		t.Fatal("background task never logged")
	}

	require.Equal(t, 1, store.count())
	entry := store.entries[0]
	assert.Equal(t, "int-1", entry.ID)
	assert.Equal(t, "sess-1", entry.SessionID)
	assert.Equal(t, 0.8, entry.QualityScore)
	assert.Equal(t, "gpt-4o-mini", entry.ModelUsed)
	assert.Equal(t, "flow-1", entry.FlowID)
}

func TestRecordDropsEntryWhenAnalysisFails(t *testing.T) {
	store := newCaptureLogger()
	rec := NewRecorder(&stubAnalyzer{err: analysis.ErrAnalysisUnavailable}, store, "m", "f")

	rec.record(context.Background(), Turn{InteractionID: "int-1", Question: "q", Answer: "a"})

	assert.Zero(t, store.count(), "entry must not be written without a judgment")
}

func TestRecordSwallowsStoreFailure(t *testing.T) {
	store := newCaptureLogger()
	store.err = errors.New("index unavailable")
	rec := NewRecorder(&stubAnalyzer{result: goodResult()}, store, "m", "f")

	// Must not panic or propagate anything.
	rec.record(context.Background(), Turn{InteractionID: "int-1", Question: "q", Answer: "a"})

	assert.Equal(t, 1, store.count())
}

func TestBuildEntry(t *testing.T) {
	turn := Turn{
		InteractionID: "int-9",
		SessionID:     "sess-9",
		Question:      "fees?",
		Answer:        "Fünf €", // rune count, not byte count
		LatencyMS:     120,
		Sources: []Source{
			{Filename: "fees.pdf", RelevanceScore: 0.9},
		},
	}

	entry := buildEntry(turn, goodResult(), "model-x", "flow-x")

	assert.Equal(t, 6, entry.AnswerLength)
	assert.Equal(t, 1, entry.SourcesCount)
	assert.Equal(t, "model-x", entry.ModelUsed)
	assert.Equal(t, "flow-x", entry.FlowID)
	assert.WithinDuration(t, time.Now().UTC(), entry.Timestamp, 5*time.Second)
}

func TestBuildEntryNilSources(t *testing.T) {
	entry := buildEntry(Turn{InteractionID: "i", Answer: "a"}, goodResult(), "m", "f")

	assert.NotNil(t, entry.Sources)
	assert.Zero(t, entry.SourcesCount)
}
