package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/zap"

	"github.com/novapay/rag-chat-backend/internal/llm"
	"github.com/novapay/rag-chat-backend/pkg/logger"
)

// ErrAnalysisUnavailable marks an analyzer failure. The background recorder
// logs it and drops the entry; the chat path is never affected.
var ErrAnalysisUnavailable = errors.New("analysis unavailable")

// Quality labels derived from the score thresholds.
const (
	LabelGood = "good"
	LabelFair = "fair"
	LabelPoor = "poor"
)

const (
	goodThreshold = 0.7
	fairThreshold = 0.4
)

const (
	defaultCategory   = "General"
	defaultType       = "factual"
	defaultComplexity = "simple"
)

// Result is the structured judgment for one question/answer pair. All fields
// are populated: malformed or absent analyzer output is coerced to safe
// defaults before the result leaves this package.
type Result struct {
	QualityScore        float64
	QualityLabel        string
	NeedsImprovement    bool
	ImprovementReason   string
	Category            string
	Subcategory         string
	Topics              []string
	QuestionType        string
	QuestionComplexity  string
	HasCitations        bool
	ConfidenceExpressed bool
}

// Completer is the slice of the LLM client the analyzer needs.
type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

type Analyzer struct {
	llm Completer
}

func NewAnalyzer(client Completer) *Analyzer {
	return &Analyzer{llm: client}
}

const systemPrompt = `You are a quality evaluator for a banking support RAG chatbot.
Given a user question and the system's answer, return ONLY a JSON object:

{
  "quality_score": 0.0-1.0,
  "needs_improvement": false,
  "improvement_reason": "short reason, only when needs_improvement is true",
  "category": "short category such as Card Services, Transfers, ATM Services",
  "subcategory": "optional short subcategory",
  "topics": ["short", "topic", "strings"],
  "question_type": "factual|procedural|analytical|conversational",
  "question_complexity": "simple|moderate|complex",
  "has_citations": false,
  "confidence_expressed": false
}

Score 1.0 for a complete, specific, correct-looking answer; score low when
the answer is vague, evasive, or says the information was not found.
Return JSON only, no prose, no markdown.`

// Analyze scores one question/answer pair. Any failure of the external call
// or an unparseable reply yields ErrAnalysisUnavailable.
func (a *Analyzer) Analyze(ctx context.Context, question, answer string) (*Result, error) {
	userPrompt := fmt.Sprintf("Question: %s\n\nAnswer: %s\n\nEvaluate the answer.", question, answer)

	resp, err := a.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  0.1,
		MaxTokens:    500,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysisUnavailable, err)
	}

	result, err := parseResult(resp.Content, question)
	if err != nil {
		logger.Warn("Analyzer returned unparseable judgment",
			zap.Error(err),
			zap.String("content_prefix", prefix(resp.Content, 200)),
		)
		return nil, fmt.Errorf("%w: %v", ErrAnalysisUnavailable, err)
	}

	return result, nil
}

// rawJudgment mirrors the prompt schema with loose typing so a partially
// broken reply still decodes where it can.
type rawJudgment struct {
	QualityScore        *float64 `json:"quality_score"`
	NeedsImprovement    bool     `json:"needs_improvement"`
	ImprovementReason   string   `json:"improvement_reason"`
	Category            string   `json:"category"`
	Subcategory         string   `json:"subcategory"`
	Topics              []string `json:"topics"`
	QuestionType        string   `json:"question_type"`
	QuestionComplexity  string   `json:"question_complexity"`
	HasCitations        bool     `json:"has_citations"`
	ConfidenceExpressed bool     `json:"confidence_expressed"`
}

func parseResult(content, question string) (*Result, error) {
	payload := stripCodeFences(content)

	var raw rawJudgment
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode judgment: %w", err)
	}
	if raw.QualityScore == nil {
		return nil, fmt.Errorf("judgment missing quality_score")
	}

	score := clamp(*raw.QualityScore, 0, 1)
	label := labelForScore(score)

	result := &Result{
		QualityScore: score,
		QualityLabel: label,
		// Flagged when the label says so or the analyzer flags explicitly.
		NeedsImprovement:    label != LabelGood || raw.NeedsImprovement,
		ImprovementReason:   raw.ImprovementReason,
		Category:            raw.Category,
		Subcategory:         raw.Subcategory,
		Topics:              raw.Topics,
		QuestionType:        normalizeEnum(raw.QuestionType, questionTypes),
		QuestionComplexity:  normalizeEnum(raw.QuestionComplexity, complexities),
		HasCitations:        raw.HasCitations,
		ConfidenceExpressed: raw.ConfidenceExpressed,
	}

	if result.Category == "" {
		result.Category = defaultCategory
	}
	if !result.NeedsImprovement {
		result.ImprovementReason = ""
	}
	if len(result.Topics) == 0 {
		result.Topics = deriveTopics(question)
	}

	return result, nil
}

func labelForScore(score float64) string {
	switch {
	case score >= goodThreshold:
		return LabelGood
	case score >= fairThreshold:
		return LabelFair
	default:
		return LabelPoor
	}
}

var (
	questionTypes = map[string]bool{
		"factual": true, "procedural": true, "analytical": true, "conversational": true,
	}
	complexities = map[string]bool{
		"simple": true, "moderate": true, "complex": true,
	}
)

func normalizeEnum(value string, allowed map[string]bool) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if allowed[value] {
		return value
	}
	if reflect.ValueOf(allowed).Pointer() == reflect.ValueOf(questionTypes).Pointer() {
		return defaultType
	}
	return defaultComplexity
}

// stripCodeFences removes a leading/trailing markdown fence the model
// sometimes wraps around the JSON despite the prompt.
func stripCodeFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
