package analytics

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/opensearch-project/opensearch-go"
	"github.com/opensearch-project/opensearch-go/opensearchapi"
	"go.uber.org/zap"

	"github.com/novapay/rag-chat-backend/internal/metrics"
	"github.com/novapay/rag-chat-backend/pkg/logger"
)

// ErrStoreUnavailable marks a failed call to the search engine. Writers log
// and drop; readers return it so handlers can report a service error.
var ErrStoreUnavailable = errors.New("analytics store unavailable")

type StoreConfig struct {
	Endpoint    string
	Username    string
	Password    string
	Index       string
	InsecureTLS bool
}

// Store owns the analytics index schema and query shapes. All aggregation
// work happens inside OpenSearch, never client-side.
type Store struct {
	client *opensearch.Client
	index  string
}

func NewStore(cfg StoreConfig) (*Store, error) {
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{cfg.Endpoint},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureTLS,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize opensearch client: %w", err)
	}

	logger.Info("Analytics store initialized",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("index", cfg.Index),
	)

	return &Store{client: client, index: cfg.Index}, nil
}

// NewStoreWithClient is used by tests and the provisioner to share a client.
func NewStoreWithClient(client *opensearch.Client, index string) *Store {
	return &Store{client: client, index: index}
}

// LogInteraction writes one entry keyed by its ID. Re-logging the same ID
// replaces the document, so the write is an idempotent upsert.
func (s *Store) LogInteraction(ctx context.Context, entry *InteractionEntry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index:      s.index,
		DocumentID: entry.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("index").Inc()
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		metrics.StoreErrors.WithLabelValues("index").Inc()
		return fmt.Errorf("%w: index response: %s", ErrStoreUnavailable, res.String())
	}

	metrics.InteractionsLogged.WithLabelValues(entry.QualityLabel).Inc()

	logger.Info("Interaction logged",
		zap.String("id", entry.ID),
		zap.String("quality_label", entry.QualityLabel),
		zap.String("category", entry.Category),
	)

	return nil
}

// QueryNeedsImprovement returns up to limit flagged entries, most recent
// first. A missing index reads as an empty result, not an error.
func (s *Store) QueryNeedsImprovement(ctx context.Context, limit int) ([]InteractionEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"needs_improvement": true,
			},
		},
		"sort": []map[string]interface{}{
			{"timestamp": map[string]interface{}{"order": "desc"}},
		},
		"size": limit,
	}

	result, err := s.search(ctx, query)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return []InteractionEntry{}, nil
	}

	entries := make([]InteractionEntry, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		var entry InteractionEntry
		if err := json.Unmarshal(hit.Source, &entry); err != nil {
			logger.Warn("Skipping undecodable analytics document", zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// AggregateStats computes totals, mean latency, the per-label distribution
// and the top categories with a single size-0 aggregation search.
func (s *Store) AggregateStats(ctx context.Context) (*AggregateStats, error) {
	query := map[string]interface{}{
		"size":             0,
		"track_total_hits": true,
		"aggs": map[string]interface{}{
			"avg_latency": map[string]interface{}{
				"avg": map[string]interface{}{"field": "latency_ms"},
			},
			"quality": map[string]interface{}{
				"terms": map[string]interface{}{"field": "quality_label", "size": 10},
			},
			"categories": map[string]interface{}{
				"terms": map[string]interface{}{
					"field": "category",
					"size":  10,
					// Count ties resolve by name so the ordering is stable.
					"order": []map[string]string{
						{"_count": "desc"},
						{"_key": "asc"},
					},
				},
			},
		},
	}

	stats := &AggregateStats{
		QualityDistribution: map[string]int{
			"good": 0,
			"fair": 0,
			"poor": 0,
		},
		TopCategories: []CategoryCount{},
	}

	result, err := s.search(ctx, query)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return stats, nil
	}

	stats.TotalQueries = result.Hits.Total.Value
	if result.Aggregations.AvgLatency.Value != nil {
		stats.AvgLatency = *result.Aggregations.AvgLatency.Value
	}
	for _, bucket := range result.Aggregations.Quality.Buckets {
		stats.QualityDistribution[bucket.Key] = bucket.DocCount
	}
	for _, bucket := range result.Aggregations.Categories.Buckets {
		stats.TopCategories = append(stats.TopCategories, CategoryCount{
			Category: bucket.Key,
			Count:    bucket.DocCount,
		})
	}

	return stats, nil
}

type searchResult struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations struct {
		AvgLatency struct {
			Value *float64 `json:"value"`
		} `json:"avg_latency"`
		Quality struct {
			Buckets []termsBucket `json:"buckets"`
		} `json:"quality"`
		Categories struct {
			Buckets []termsBucket `json:"buckets"`
		} `json:"categories"`
	} `json:"aggregations"`
}

type termsBucket struct {
	Key      string `json:"key"`
	DocCount int    `json:"doc_count"`
}

// search runs one query against the analytics index. Returns (nil, nil) when
// the index does not exist yet.
func (s *Store) search(ctx context.Context, query map[string]interface{}) (*searchResult, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("search").Inc()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		metrics.StoreErrors.WithLabelValues("search").Inc()
		return nil, fmt.Errorf("%w: search response: %s", ErrStoreUnavailable, res.String())
	}

	var result searchResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	return &result, nil
}
