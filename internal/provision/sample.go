package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go/opensearchapi"
	"go.uber.org/zap"

	"github.com/novapay/rag-chat-backend/internal/analytics"
	"github.com/novapay/rag-chat-backend/pkg/logger"
)

// LoadSampleData bulk-indexes a handful of synthetic interactions so the
// dashboard has something to render before real traffic arrives.
func (p *Provisioner) LoadSampleData(ctx context.Context) error {
	entries := sampleEntries()

	var buf bytes.Buffer
	for _, entry := range entries {
		meta := map[string]interface{}{
			"index": map[string]interface{}{"_index": p.index, "_id": entry.ID},
		}
		metaLine, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		docLine, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		buf.Write(metaLine)
		buf.WriteByte('\n')
		buf.Write(docLine)
		buf.WriteByte('\n')
	}

	req := opensearchapi.BulkRequest{
		Body:    bytes.NewReader(buf.Bytes()),
		Refresh: "true",
	}
	res, err := req.Do(ctx, p.client)
	if err != nil {
		return fmt.Errorf("bulk index failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk index response error: %s", res.String())
	}

	logger.Info("Loaded sample data", zap.Int("count", len(entries)))
	return nil
}

type sample struct {
	question   string
	answer     string
	score      float64
	label      string
	needsWork  bool
	reason     string
	category   string
	qType      string
	complexity string
	topics     []string
	latency    int
}

func sampleEntries() []analytics.InteractionEntry {
	now := time.Now().UTC()
	samples := []sample{
		{
			question:   "What is the minimum balance for a savings account?",
			answer:     "The minimum balance for a standard savings account is $300. Falling below it incurs a $5 monthly fee.",
			score:      0.9, label: "good",
			category: "Accounts", qType: "factual", complexity: "simple",
			topics: []string{"savings account", "minimum balance"}, latency: 820,
		},
		{
			question:   "How do I dispute a credit card charge?",
			answer:     "You can dispute a charge through online banking under Cards > Dispute, or by calling support within 60 days of the statement date.",
			score:      0.85, label: "good",
			category: "Cards", qType: "procedural", complexity: "moderate",
			topics: []string{"credit card", "dispute"}, latency: 1140,
		},
		{
			question:   "Compare fixed and variable mortgage rates",
			answer:     "Fixed rates stay constant for the term while variable rates track the prime rate.",
			score:      0.55, label: "fair", needsWork: true,
			reason:   "Answer omits current rate figures and term options",
			category: "Loans", qType: "comparative", complexity: "complex",
			topics: []string{"mortgage", "interest rates"}, latency: 2310,
		},
		{
			question:   "What are the wire transfer cutoff times?",
			answer:     "I could not find specific cutoff times in the available documents.",
			score:      0.2, label: "poor", needsWork: true,
			reason:   "No answer retrieved for a documented policy",
			category: "Payments", qType: "factual", complexity: "simple",
			topics: []string{"wire transfer"}, latency: 1760,
		},
	}

	entries := make([]analytics.InteractionEntry, 0, len(samples))
	for i, s := range samples {
		entries = append(entries, analytics.InteractionEntry{
			ID:                  uuid.New().String(),
			SessionID:           "sample-session",
			Question:            s.question,
			Answer:              s.answer,
			Timestamp:           now.Add(-time.Duration(i) * time.Hour),
			LatencyMS:           s.latency,
			QualityScore:        s.score,
			QualityLabel:        s.label,
			NeedsImprovement:    s.needsWork,
			ImprovementReason:   s.reason,
			Category:            s.category,
			Topics:              s.topics,
			QuestionType:        s.qType,
			QuestionComplexity:  s.complexity,
			AnswerLength:        len([]rune(s.answer)),
			SourcesCount:        0,
			HasCitations:        false,
			ConfidenceExpressed: false,
		})
	}
	return entries
}
