package flow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/novapay/rag-chat-backend/internal/metrics"
	"github.com/novapay/rag-chat-backend/pkg/logger"
	"github.com/novapay/rag-chat-backend/pkg/retry"
)

// Client calls the external flow-execution service that runs the configured
// RAG pipeline and returns a generated answer.
type Client struct {
	baseURL     string
	flowID      string
	apiKey      string
	httpClient  *http.Client
	retryConfig retry.Config
}

type runPayload struct {
	OutputType string `json:"output_type"`
	InputType  string `json:"input_type"`
	InputValue string `json:"input_value"`
	SessionID  string `json:"session_id"`
}

// RunResult carries the extracted answer plus any document sources the flow
// reported for the turn.
type RunResult struct {
	Answer  string
	Sources []Source
}

type Source struct {
	Filename       string  `json:"filename"`
	RelevanceScore float64 `json:"relevance_score"`
}

func NewClient(baseURL, flowID, apiKey string, timeout time.Duration, maxRetries int) *Client {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if maxRetries == 0 {
		maxRetries = 1
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		flowID:  flowID,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retryConfig: retry.Config{
			MaxAttempts:    maxRetries + 1,
			InitialDelay:   300 * time.Millisecond,
			MaxDelay:       3 * time.Second,
			Multiplier:     2.0,
			JitterFraction: 0.1,
			Logger:         logger.GetLogger(),
		},
	}
}

// Run sends one chat turn to the flow engine and extracts the answer text.
// Transport failures are retried with backoff; HTTP error statuses and
// malformed bodies are not, since the engine already received the turn.
func (c *Client) Run(ctx context.Context, message, sessionID string) (*RunResult, error) {
	payload, err := json.Marshal(runPayload{
		OutputType: "chat",
		InputType:  "chat",
		InputValue: message,
		SessionID:  sessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal flow payload: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/run/%s", c.baseURL, c.flowID)

	var resp *http.Response
	err = retry.Do(ctx, c.retryConfig, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to create flow request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("x-api-key", c.apiKey)
		}

		resp, err = c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("flow request failed: %w", err)
		}
		return nil
	})
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("transport").Inc()
		return nil, &UpstreamError{
			StatusCode: http.StatusBadGateway,
			Message:    fmt.Sprintf("flow service unreachable: %v", err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("transport").Inc()
		return nil, &UpstreamError{
			StatusCode: http.StatusBadGateway,
			Message:    fmt.Sprintf("failed to read flow response: %v", err),
		}
	}

	// HTML means we hit an error page (wrong flow id, proxy, engine down).
	// Never feed that to the JSON parser.
	if isHTML(body) {
		title := htmlTitle(body)
		logger.Error("Flow service returned HTML",
			zap.String("title", title),
			zap.Int("status", resp.StatusCode),
		)
		metrics.UpstreamErrors.WithLabelValues("html_page").Inc()
		return nil, &UpstreamError{
			StatusCode: http.StatusBadGateway,
			Message:    "flow service returned an error page; check the flow ID and engine configuration",
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.UpstreamErrors.WithLabelValues("status").Inc()
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    upstreamErrorMessage(body, resp.StatusCode),
		}
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		logger.Error("Failed to parse flow response",
			zap.Error(err),
			zap.String("body_prefix", truncate(string(body), 500)),
		)
		metrics.UpstreamErrors.WithLabelValues("bad_json").Inc()
		return nil, &UpstreamError{
			StatusCode: http.StatusBadGateway,
			Message:    "invalid JSON response from flow service",
		}
	}

	return &RunResult{
		Answer:  ExtractAnswer(doc),
		Sources: []Source{},
	}, nil
}

func isHTML(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	return strings.HasPrefix(trimmed, "<!DOCTYPE") || strings.HasPrefix(trimmed, "<html")
}

// htmlTitle pulls the <title> out of an upstream error page for diagnostics.
func htmlTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// upstreamErrorMessage digs a human-readable message out of a JSON error
// body, falling back to the raw status code.
func upstreamErrorMessage(body []byte, statusCode int) string {
	var errBody struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
		Err     string `json:"error"`
	}
	if err := json.Unmarshal(body, &errBody); err == nil {
		for _, msg := range []string{errBody.Detail, errBody.Message, errBody.Err} {
			if msg != "" {
				return msg
			}
		}
	}
	return fmt.Sprintf("flow API error: %d", statusCode)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
