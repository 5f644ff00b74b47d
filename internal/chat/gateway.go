package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/novapay/rag-chat-backend/internal/analytics"
	"github.com/novapay/rag-chat-backend/internal/flow"
	"github.com/novapay/rag-chat-backend/internal/metrics"
	"github.com/novapay/rag-chat-backend/internal/storage/models"
	"github.com/novapay/rag-chat-backend/pkg/logger"
)

// ErrEmptyMessage marks a chat request with no usable message text. Rejected
// before any upstream call happens.
var ErrEmptyMessage = errors.New("message is required")

// flowRunner is the outbound half of the gateway.
type flowRunner interface {
	Run(ctx context.Context, message, sessionID string) (*flow.RunResult, error)
}

// history persists turns for the session history endpoint; failures there
// never fail a chat turn.
type history interface {
	InsertChatTurn(ctx context.Context, turn *models.ChatTurn) error
	ListChatTurns(ctx context.Context, sessionID string, limit int) ([]models.ChatTurn, error)
}

type recorder interface {
	Record(turn analytics.Turn)
}

// Gateway handles one chat turn: forward to the flow engine, answer the
// caller immediately, then enrich in the background.
type Gateway struct {
	flow     flowRunner
	history  history
	recorder recorder
	flowID   string
}

type Response struct {
	Answer        string `json:"answer"`
	SessionID     string `json:"session_id"`
	LatencyMS     int    `json:"latency_ms"`
	InteractionID string `json:"interaction_id"`
}

func NewGateway(flowClient flowRunner, historyStore history, rec recorder, flowID string) *Gateway {
	return &Gateway{
		flow:     flowClient,
		history:  historyStore,
		recorder: rec,
		flowID:   flowID,
	}
}

// Handle runs one chat turn. The returned latency is wall clock from entry
// to the flow engine's reply. Exactly one background analysis task is
// dispatched per successful turn.
func (g *Gateway) Handle(ctx context.Context, message, sessionID string) (*Response, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}

	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	start := time.Now()

	result, err := g.flow.Run(ctx, message, sessionID)
	if err != nil {
		metrics.ChatRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	latency := int(time.Since(start).Milliseconds())
	interactionID := uuid.New().String()

	metrics.ChatRequestsTotal.WithLabelValues("ok").Inc()
	metrics.ChatLatency.Observe(time.Since(start).Seconds())

	if g.history != nil {
		turn := &models.ChatTurn{
			ID:        interactionID,
			SessionID: sessionID,
			Question:  message,
			Answer:    result.Answer,
			LatencyMS: latency,
			FlowID:    g.flowID,
			CreatedAt: time.Now(),
		}
		if err := g.history.InsertChatTurn(ctx, turn); err != nil {
			logger.Warn("Failed to persist chat turn", zap.Error(err))
		}
	}

	g.recorder.Record(analytics.Turn{
		InteractionID: interactionID,
		SessionID:     sessionID,
		Question:      message,
		Answer:        result.Answer,
		LatencyMS:     latency,
		Sources:       convertSources(result.Sources),
	})

	logger.Info("Chat turn completed",
		zap.String("interaction_id", interactionID),
		zap.String("session_id", sessionID),
		zap.Int("latency_ms", latency),
	)

	return &Response{
		Answer:        result.Answer,
		SessionID:     sessionID,
		LatencyMS:     latency,
		InteractionID: interactionID,
	}, nil
}

// History returns the most recent turns for a session.
func (g *Gateway) History(ctx context.Context, sessionID string, limit int) ([]models.ChatTurn, error) {
	if g.history == nil {
		return []models.ChatTurn{}, nil
	}
	return g.history.ListChatTurns(ctx, sessionID, limit)
}

func convertSources(sources []flow.Source) []analytics.Source {
	out := make([]analytics.Source, 0, len(sources))
	for _, s := range sources {
		out = append(out, analytics.Source{
			Filename:       s.Filename,
			RelevanceScore: s.RelevanceScore,
		})
	}
	return out
}
