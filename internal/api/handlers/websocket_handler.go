package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/novapay/rag-chat-backend/internal/chat"
	"github.com/novapay/rag-chat-backend/internal/flow"
	"github.com/novapay/rag-chat-backend/pkg/logger"
)

// WebSocketHandler serves chat turns over a persistent connection so the UI
// avoids a fresh HTTP round trip per message. Same gateway, same analytics
// side effects as POST /chat.
type WebSocketHandler struct {
	gateway     *chat.Gateway
	turnTimeout time.Duration
}

func NewWebSocketHandler(gateway *chat.Gateway) *WebSocketHandler {
	return &WebSocketHandler{
		gateway:     gateway,
		turnTimeout: 120 * time.Second,
	}
}

type wsRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type wsResponse struct {
	Type          string `json:"type"`
	Answer        string `json:"answer,omitempty"`
	SessionID     string `json:"session_id,omitempty"`
	LatencyMS     int    `json:"latency_ms,omitempty"`
	InteractionID string `json:"interaction_id,omitempty"`
	Error         string `json:"error,omitempty"`
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var req wsRequest
		if err := c.ReadJSON(&req); err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), h.turnTimeout)
		resp, err := h.gateway.Handle(ctx, req.Message, req.SessionID)
		cancel()

		if err != nil {
			h.writeError(c, err)
			continue
		}

		err = c.WriteJSON(wsResponse{
			Type:          "answer",
			Answer:        resp.Answer,
			SessionID:     resp.SessionID,
			LatencyMS:     resp.LatencyMS,
			InteractionID: resp.InteractionID,
		})
		if err != nil {
			logger.Error("Failed to write WebSocket response", zap.Error(err))
			return
		}
	}
}

func (h *WebSocketHandler) writeError(c *websocket.Conn, err error) {
	msg := "Internal server error"

	var upstream *flow.UpstreamError
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		msg = "Message is required"
	case errors.As(err, &upstream):
		msg = upstream.Message
	}

	if werr := c.WriteJSON(wsResponse{Type: "error", Error: msg}); werr != nil {
		logger.Error("Failed to write WebSocket error", zap.Error(werr))
	}
}
