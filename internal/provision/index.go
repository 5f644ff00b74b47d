package provision

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/opensearch-project/opensearch-go"
	"github.com/opensearch-project/opensearch-go/opensearchapi"
	"go.uber.org/zap"

	"github.com/novapay/rag-chat-backend/pkg/logger"
)

// indexSchema is the full mapping for the analytics index. Field names and
// types must match what the store adapter writes; changing one means
// reindexing.
const indexSchema = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0
  },
  "mappings": {
    "properties": {
      "id": {"type": "keyword"},
      "session_id": {"type": "keyword"},
      "question": {
        "type": "text",
        "fields": {"keyword": {"type": "keyword", "ignore_above": 512}}
      },
      "answer": {
        "type": "text",
        "fields": {"keyword": {"type": "keyword", "ignore_above": 2048}}
      },
      "timestamp": {"type": "date"},
      "latency_ms": {"type": "integer"},
      "quality_score": {"type": "float"},
      "quality_label": {"type": "keyword"},
      "needs_improvement": {"type": "boolean"},
      "improvement_reason": {"type": "text"},
      "category": {"type": "keyword"},
      "subcategory": {"type": "keyword"},
      "topics": {"type": "keyword"},
      "question_type": {"type": "keyword"},
      "question_complexity": {"type": "keyword"},
      "answer_length": {"type": "integer"},
      "has_citations": {"type": "boolean"},
      "confidence_expressed": {"type": "boolean"},
      "sources_count": {"type": "integer"},
      "sources": {
        "type": "nested",
        "properties": {
          "filename": {"type": "keyword"},
          "relevance_score": {"type": "float"}
        }
      },
      "user_rating": {"type": "integer"},
      "user_feedback": {"type": "text"},
      "model_used": {"type": "keyword"},
      "flow_id": {"type": "keyword"}
    }
  }
}`

// Provisioner performs the one-time setup of the analytics index and the
// Dashboards saved objects. Safe to re-run: everything is create-if-absent.
type Provisioner struct {
	client        *opensearch.Client
	index         string
	dashboardsURL string
	httpClient    *http.Client
}

func NewProvisioner(client *opensearch.Client, index, dashboardsURL string) *Provisioner {
	return &Provisioner{
		client:        client,
		index:         index,
		dashboardsURL: strings.TrimRight(dashboardsURL, "/"),
		httpClient:    &http.Client{},
	}
}

// EnsureIndex creates the analytics index unless it already exists.
func (p *Provisioner) EnsureIndex(ctx context.Context) error {
	existsReq := opensearchapi.IndicesExistsRequest{Index: []string{p.index}}
	res, err := existsReq.Do(ctx, p.client)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusOK {
		logger.Info("Index already exists", zap.String("index", p.index))
		return nil
	}

	createReq := opensearchapi.IndicesCreateRequest{
		Index: p.index,
		Body:  strings.NewReader(indexSchema),
	}
	res, err = createReq.Do(ctx, p.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("create index response error: %s", res.String())
	}

	logger.Info("Created index", zap.String("index", p.index))
	return nil
}
