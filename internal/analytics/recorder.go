package analytics

import (
	"context"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/novapay/rag-chat-backend/internal/analysis"
	"github.com/novapay/rag-chat-backend/internal/metrics"
	"github.com/novapay/rag-chat-backend/pkg/logger"
)

// analyzer is the judgment step; interactionLogger is the persistence step.
// Both are satisfied by the real implementations and by test fakes.
type analyzer interface {
	Analyze(ctx context.Context, question, answer string) (*analysis.Result, error)
}

type interactionLogger interface {
	LogInteraction(ctx context.Context, entry *InteractionEntry) error
}

// Recorder runs the analyze-then-log step for each chat turn without the
// request handler waiting on it. Failures anywhere in the pipeline are logged
// and swallowed; no entry is partially written.
type Recorder struct {
	analyzer analyzer
	store    interactionLogger
	model    string
	flowID   string
	timeout  time.Duration
}

func NewRecorder(a analyzer, store interactionLogger, model, flowID string) *Recorder {
	return &Recorder{
		analyzer: a,
		store:    store,
		model:    model,
		flowID:   flowID,
		timeout:  60 * time.Second,
	}
}

// Turn is everything the chat gateway knows about a completed exchange.
type Turn struct {
	InteractionID string
	SessionID     string
	Question      string
	Answer        string
	LatencyMS     int
	Sources       []Source
}

// Record dispatches the background task and returns immediately. The task
// gets a fresh context: the request context is gone by the time it runs.
func (r *Recorder) Record(turn Turn) {
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("Panic in background analysis", zap.Any("panic", rec))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		r.record(ctx, turn)
	}()
}

func (r *Recorder) record(ctx context.Context, turn Turn) {
	start := time.Now()

	result, err := r.analyzer.Analyze(ctx, turn.Question, turn.Answer)
	if err != nil {
		// Accepted data loss: the chat turn already succeeded.
		metrics.AnalysisFailures.Inc()
		logger.Error("Analysis failed, dropping analytics entry",
			zap.String("interaction_id", turn.InteractionID),
			zap.Error(err),
		)
		return
	}
	metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	metrics.QualityScore.Observe(result.QualityScore)

	entry := buildEntry(turn, result, r.model, r.flowID)

	if err := r.store.LogInteraction(ctx, entry); err != nil {
		logger.Error("Failed to log interaction",
			zap.String("interaction_id", turn.InteractionID),
			zap.Error(err),
		)
	}
}

func buildEntry(turn Turn, result *analysis.Result, model, flowID string) *InteractionEntry {
	sources := turn.Sources
	if sources == nil {
		sources = []Source{}
	}

	return &InteractionEntry{
		ID:                  turn.InteractionID,
		SessionID:           turn.SessionID,
		Question:            turn.Question,
		Answer:              turn.Answer,
		Timestamp:           time.Now().UTC(),
		LatencyMS:           turn.LatencyMS,
		QualityScore:        result.QualityScore,
		QualityLabel:        result.QualityLabel,
		NeedsImprovement:    result.NeedsImprovement,
		ImprovementReason:   result.ImprovementReason,
		Category:            result.Category,
		Subcategory:         result.Subcategory,
		Topics:              result.Topics,
		QuestionType:        result.QuestionType,
		QuestionComplexity:  result.QuestionComplexity,
		AnswerLength:        utf8.RuneCountInString(turn.Answer),
		HasCitations:        result.HasCitations,
		ConfidenceExpressed: result.ConfidenceExpressed,
		SourcesCount:        len(sources),
		Sources:             sources,
		ModelUsed:           model,
		FlowID:              flowID,
	}
}
