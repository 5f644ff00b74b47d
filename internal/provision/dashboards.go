package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/novapay/rag-chat-backend/pkg/logger"
)

const indexPatternID = "rag-analytics-pattern"

type savedObject struct {
	objectType string
	id         string
	attributes map[string]interface{}
	references []objectReference
}

type objectReference struct {
	Name string `json:"name"`
	Type string `json:"type"`
	ID   string `json:"id"`
}

// EnsureDashboards creates the index pattern, visualizations and the
// analytics dashboard in OpenSearch Dashboards. Objects that already exist
// are left untouched.
func (p *Provisioner) EnsureDashboards(ctx context.Context) error {
	if p.dashboardsURL == "" {
		logger.Warn("Dashboards URL not configured, skipping saved objects")
		return nil
	}

	objects := append([]savedObject{indexPattern(p.index)}, visualizations()...)
	objects = append(objects, analyticsDashboard())

	for _, obj := range objects {
		if err := p.createSavedObject(ctx, obj); err != nil {
			return fmt.Errorf("failed to create %s/%s: %w", obj.objectType, obj.id, err)
		}
	}
	return nil
}

func (p *Provisioner) createSavedObject(ctx context.Context, obj savedObject) error {
	payload := map[string]interface{}{"attributes": obj.attributes}
	if len(obj.references) > 0 {
		payload["references"] = obj.references
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/saved_objects/%s/%s", p.dashboardsURL, obj.objectType, obj.id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	// Dashboards rejects state-changing requests without this header.
	req.Header.Set("osd-xsrf", "true")

	res, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusConflict:
		logger.Info("Saved object already exists",
			zap.String("type", obj.objectType), zap.String("id", obj.id))
		return nil
	case res.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return fmt.Errorf("dashboards returned %d: %s", res.StatusCode, string(msg))
	}

	logger.Info("Created saved object",
		zap.String("type", obj.objectType), zap.String("id", obj.id))
	return nil
}

func indexPattern(index string) savedObject {
	return savedObject{
		objectType: "index-pattern",
		id:         indexPatternID,
		attributes: map[string]interface{}{
			"title":         index,
			"timeFieldName": "timestamp",
		},
	}
}

func patternReference() []objectReference {
	return []objectReference{{
		Name: "kibanaSavedObjectMeta.searchSourceJSON.index",
		Type: "index-pattern",
		ID:   indexPatternID,
	}}
}

func visualization(id, title, visState string) savedObject {
	return savedObject{
		objectType: "visualization",
		id:         id,
		attributes: map[string]interface{}{
			"title":       title,
			"visState":    visState,
			"uiStateJSON": "{}",
			"kibanaSavedObjectMeta": map[string]interface{}{
				"searchSourceJSON": `{"query":{"query":"","language":"kuery"},"filter":[]}`,
			},
		},
		references: patternReference(),
	}
}

func visualizations() []savedObject {
	return []savedObject{
		visualization("rag-quality-pie", "Answer Quality Distribution",
			`{"title":"Answer Quality Distribution","type":"pie","params":{"type":"pie","addTooltip":true,"addLegend":true,"isDonut":true},"aggs":[{"id":"1","enabled":true,"type":"count","schema":"metric","params":{}},{"id":"2","enabled":true,"type":"terms","schema":"segment","params":{"field":"quality_label","size":5,"order":"desc","orderBy":"1"}}]}`),
		visualization("rag-categories-bar", "Questions by Category",
			`{"title":"Questions by Category","type":"histogram","params":{"type":"histogram","addTooltip":true,"addLegend":true},"aggs":[{"id":"1","enabled":true,"type":"count","schema":"metric","params":{}},{"id":"2","enabled":true,"type":"terms","schema":"segment","params":{"field":"category","size":10,"order":"desc","orderBy":"1"}}]}`),
		visualization("rag-latency-line", "Average Latency Over Time",
			`{"title":"Average Latency Over Time","type":"line","params":{"type":"line","addTooltip":true,"addLegend":true},"aggs":[{"id":"1","enabled":true,"type":"avg","schema":"metric","params":{"field":"latency_ms"}},{"id":"2","enabled":true,"type":"date_histogram","schema":"segment","params":{"field":"timestamp","interval":"auto","min_doc_count":1}}]}`),
		visualization("rag-quality-timeline", "Quality Score Over Time",
			`{"title":"Quality Score Over Time","type":"line","params":{"type":"line","addTooltip":true,"addLegend":true},"aggs":[{"id":"1","enabled":true,"type":"avg","schema":"metric","params":{"field":"quality_score"}},{"id":"2","enabled":true,"type":"date_histogram","schema":"segment","params":{"field":"timestamp","interval":"auto","min_doc_count":1}}]}`),
		visualization("rag-needs-improvement", "Needs Improvement Count",
			`{"title":"Needs Improvement Count","type":"metric","params":{"addTooltip":true,"metric":{"percentageMode":false,"style":{"fontSize":48}}},"aggs":[{"id":"1","enabled":true,"type":"count","schema":"metric","params":{}}]}`),
		visualization("rag-question-types", "Question Types",
			`{"title":"Question Types","type":"pie","params":{"type":"pie","addTooltip":true,"addLegend":true,"isDonut":false},"aggs":[{"id":"1","enabled":true,"type":"count","schema":"metric","params":{}},{"id":"2","enabled":true,"type":"terms","schema":"segment","params":{"field":"question_type","size":6,"order":"desc","orderBy":"1"}}]}`),
		visualization("rag-complexity-quality", "Quality by Complexity",
			`{"title":"Quality by Complexity","type":"histogram","params":{"type":"histogram","addTooltip":true,"addLegend":true},"aggs":[{"id":"1","enabled":true,"type":"avg","schema":"metric","params":{"field":"quality_score"}},{"id":"2","enabled":true,"type":"terms","schema":"segment","params":{"field":"question_complexity","size":3,"order":"desc","orderBy":"1"}}]}`),
		visualization("rag-improvement-table", "Questions Needing Improvement",
			`{"title":"Questions Needing Improvement","type":"table","params":{"perPage":10,"showPartialRows":false,"showMetricsAtAllLevels":false},"aggs":[{"id":"1","enabled":true,"type":"count","schema":"metric","params":{}},{"id":"2","enabled":true,"type":"terms","schema":"bucket","params":{"field":"question.keyword","size":20,"order":"desc","orderBy":"1"}},{"id":"3","enabled":true,"type":"terms","schema":"bucket","params":{"field":"improvement_reason.keyword","size":20,"order":"desc","orderBy":"1"}}]}`),
	}
}

func analyticsDashboard() savedObject {
	panels := []map[string]interface{}{
		panel(1, 0, 0, 24, 12),
		panel(2, 24, 0, 24, 12),
		panel(3, 0, 12, 24, 12),
		panel(4, 24, 12, 24, 12),
		panel(5, 0, 24, 12, 8),
		panel(6, 12, 24, 12, 8),
		panel(7, 24, 24, 24, 8),
		panel(8, 0, 32, 48, 14),
	}
	panelsJSON, _ := json.Marshal(panels)

	refs := make([]objectReference, 0, len(panels))
	for i, p := range panels {
		refs = append(refs, objectReference{
			Name: p["panelRefName"].(string),
			Type: "visualization",
			ID:   panelVisIDs[i],
		})
	}

	return savedObject{
		objectType: "dashboard",
		id:         "rag-analytics-dashboard",
		attributes: map[string]interface{}{
			"title":       "RAG Analytics Dashboard",
			"description": "Quality, latency and topic analytics for the RAG chat service",
			"panelsJSON":  string(panelsJSON),
			"optionsJSON": `{"hidePanelTitles":false,"useMargins":true}`,
			"timeRestore": false,
			"kibanaSavedObjectMeta": map[string]interface{}{
				"searchSourceJSON": `{"query":{"query":"","language":"kuery"},"filter":[]}`,
			},
		},
		references: refs,
	}
}

var panelVisIDs = []string{
	"rag-quality-pie",
	"rag-categories-bar",
	"rag-latency-line",
	"rag-quality-timeline",
	"rag-needs-improvement",
	"rag-question-types",
	"rag-complexity-quality",
	"rag-improvement-table",
}

func panel(index, x, y, w, h int) map[string]interface{} {
	return map[string]interface{}{
		"version":      "2.11.0",
		"panelIndex":   fmt.Sprintf("%d", index),
		"gridData":     map[string]interface{}{"x": x, "y": y, "w": w, "h": h, "i": fmt.Sprintf("%d", index)},
		"panelRefName": fmt.Sprintf("panel_%d", index),
		"embeddableConfig": map[string]interface{}{},
	}
}
