package analytics

import "time"

// InteractionEntry is one logged Q&A exchange. Entries are written once by
// the background analysis step and never updated or deleted.
type InteractionEntry struct {
	ID                  string    `json:"id"`
	SessionID           string    `json:"session_id"`
	Question            string    `json:"question"`
	Answer              string    `json:"answer"`
	Timestamp           time.Time `json:"timestamp"`
	LatencyMS           int       `json:"latency_ms"`
	QualityScore        float64   `json:"quality_score"`
	QualityLabel        string    `json:"quality_label"`
	NeedsImprovement    bool      `json:"needs_improvement"`
	ImprovementReason   string    `json:"improvement_reason,omitempty"`
	Category            string    `json:"category"`
	Subcategory         string    `json:"subcategory,omitempty"`
	Topics              []string  `json:"topics"`
	QuestionType        string    `json:"question_type"`
	QuestionComplexity  string    `json:"question_complexity"`
	AnswerLength        int       `json:"answer_length"`
	HasCitations        bool      `json:"has_citations"`
	ConfidenceExpressed bool      `json:"confidence_expressed"`
	SourcesCount        int       `json:"sources_count"`
	Sources             []Source  `json:"sources,omitempty"`
	ModelUsed           string    `json:"model_used,omitempty"`
	FlowID              string    `json:"flow_id,omitempty"`
}

type Source struct {
	Filename       string  `json:"filename"`
	RelevanceScore float64 `json:"relevance_score"`
}

// AggregateStats is computed on demand from the index; nothing is cached.
type AggregateStats struct {
	TotalQueries        int             `json:"total_queries"`
	AvgLatency          float64         `json:"avg_latency"`
	QualityDistribution map[string]int  `json:"quality_distribution"`
	TopCategories       []CategoryCount `json:"top_categories"`
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}
