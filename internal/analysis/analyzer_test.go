package analysis

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novapay/rag-chat-backend/internal/llm"
)

type stubCompleter struct {
	content string
	err     error
}

func (s *stubCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Content: s.content}, nil
}

func analyze(t *testing.T, content string) (*Result, error) {
	t.Helper()
	a := NewAnalyzer(&stubCompleter{content: content})
	return a.Analyze(context.Background(), "What are the card fees?", "The annual fee is $25.")
}

func TestAnalyzeWellFormedJudgment(t *testing.T) {
	result, err := analyze(t, `{
		"quality_score": 0.85,
		"needs_improvement": false,
		"category": "Card Services",
		"subcategory": "Fees",
		"topics": ["card fees"],
		"question_type": "factual",
		"question_complexity": "simple",
		"has_citations": true,
		"confidence_expressed": true
	}`)
	require.NoError(t, err)

	assert.Equal(t, 0.85, result.QualityScore)
	assert.Equal(t, LabelGood, result.QualityLabel)
	assert.False(t, result.NeedsImprovement)
	assert.Equal(t, "Card Services", result.Category)
	assert.Equal(t, "Fees", result.Subcategory)
	assert.Equal(t, []string{"card fees"}, result.Topics)
	assert.True(t, result.HasCitations)
	assert.True(t, result.ConfidenceExpressed)
}

func TestAnalyzeLabelThresholds(t *testing.T) {
	tests := []struct {
		score     float64
		wantLabel string
		wantFlag  bool
	}{
		{0.95, LabelGood, false},
		{0.7, LabelGood, false},
		{0.69, LabelFair, true},
		{0.5, LabelFair, true},
		{0.4, LabelFair, true},
		{0.39, LabelPoor, true},
		{0.0, LabelPoor, true},
	}

	for _, tt := range tests {
		judgment := fmt.Sprintf(`{"quality_score": %v, "category": "General", "topics": ["t"]}`, tt.score)
		result, err := parseResult(judgment, "q")
		require.NoError(t, err, "score %v", tt.score)
		assert.Equal(t, tt.wantLabel, result.QualityLabel, "score %v", tt.score)
		assert.Equal(t, tt.wantFlag, result.NeedsImprovement, "score %v", tt.score)
	}
}

func TestAnalyzeScoreClamped(t *testing.T) {
	result, err := parseResult(`{"quality_score": 1.4, "topics": ["t"]}`, "q")
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.QualityScore)

	result, err = parseResult(`{"quality_score": -0.2, "topics": ["t"]}`, "q")
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.QualityScore)
	assert.Equal(t, LabelPoor, result.QualityLabel)
}

func TestAnalyzeCodeFencedJudgment(t *testing.T) {
	result, err := analyze(t, "```json\n{\"quality_score\": 0.8, \"topics\": [\"fees\"]}\n```")
	require.NoError(t, err)
	assert.Equal(t, 0.8, result.QualityScore)
}

func TestAnalyzeExplicitFlagOverridesGoodLabel(t *testing.T) {
	result, err := parseResult(
		`{"quality_score": 0.9, "needs_improvement": true, "improvement_reason": "outdated fee", "topics": ["t"]}`, "q")
	require.NoError(t, err)

	assert.Equal(t, LabelGood, result.QualityLabel)
	assert.True(t, result.NeedsImprovement)
	assert.Equal(t, "outdated fee", result.ImprovementReason)
}

func TestAnalyzeReasonClearedWhenNotFlagged(t *testing.T) {
	result, err := parseResult(
		`{"quality_score": 0.9, "improvement_reason": "stale text", "topics": ["t"]}`, "q")
	require.NoError(t, err)

	assert.False(t, result.NeedsImprovement)
	assert.Empty(t, result.ImprovementReason)
}

func TestAnalyzeDefaults(t *testing.T) {
	result, err := parseResult(`{"quality_score": 0.5}`, "How do I reset my online banking password?")
	require.NoError(t, err)

	assert.Equal(t, defaultCategory, result.Category)
	assert.Equal(t, defaultType, result.QuestionType)
	assert.Equal(t, defaultComplexity, result.QuestionComplexity)
	assert.NotEmpty(t, result.Topics, "topics derived from the question when absent")
}

func TestAnalyzeEnumNormalization(t *testing.T) {
	result, err := parseResult(
		`{"quality_score": 0.5, "question_type": " Procedural ", "question_complexity": "MODERATE", "topics": ["t"]}`, "q")
	require.NoError(t, err)

	assert.Equal(t, "procedural", result.QuestionType)
	assert.Equal(t, "moderate", result.QuestionComplexity)

	result, err = parseResult(
		`{"quality_score": 0.5, "question_type": "riddle", "question_complexity": "extreme", "topics": ["t"]}`, "q")
	require.NoError(t, err)

	assert.Equal(t, defaultType, result.QuestionType)
	assert.Equal(t, defaultComplexity, result.QuestionComplexity)
}

func TestAnalyzeMissingScore(t *testing.T) {
	_, err := analyze(t, `{"category": "General"}`)
	assert.ErrorIs(t, err, ErrAnalysisUnavailable)
}

func TestAnalyzeMalformedJSON(t *testing.T) {
	_, err := analyze(t, "the answer looks fine to me")
	assert.ErrorIs(t, err, ErrAnalysisUnavailable)
}

func TestAnalyzeCompleterFailure(t *testing.T) {
	a := NewAnalyzer(&stubCompleter{err: errors.New("rate limited")})
	_, err := a.Analyze(context.Background(), "q", "a")
	assert.ErrorIs(t, err, ErrAnalysisUnavailable)
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences(`{"a":1}`))
}
