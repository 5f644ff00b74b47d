package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/novapay/rag-chat-backend/internal/chat"
	"github.com/novapay/rag-chat-backend/internal/flow"
	"github.com/novapay/rag-chat-backend/pkg/logger"
)

type ChatHandler struct {
	gateway *chat.Gateway
}

func NewChatHandler(gateway *chat.Gateway) *ChatHandler {
	return &ChatHandler{gateway: gateway}
}

func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var req struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse chat request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	resp, err := h.gateway.Handle(c.Context(), req.Message, req.SessionID)
	if err != nil {
		return chatError(c, err)
	}

	return c.JSON(resp)
}

func (h *ChatHandler) GetHistory(c *fiber.Ctx) error {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session_id is required",
		})
	}

	limit := c.QueryInt("limit", 50)

	turns, err := h.gateway.History(c.Context(), sessionID, limit)
	if err != nil {
		logger.Error("Failed to load chat history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load chat history",
		})
	}

	history := make([]fiber.Map, 0, len(turns))
	for _, turn := range turns {
		history = append(history, fiber.Map{
			"interaction_id": turn.ID,
			"question":       turn.Question,
			"answer":         turn.Answer,
			"latency_ms":     turn.LatencyMS,
			"created_at":     turn.CreatedAt.UTC(),
		})
	}

	return c.JSON(fiber.Map{
		"session_id": sessionID,
		"history":    history,
	})
}

// chatError maps gateway failures onto the wire: bad input is 400, upstream
// failures carry the upstream's status, the rest is 500.
func chatError(c *fiber.Ctx, err error) error {
	if errors.Is(err, chat.ErrEmptyMessage) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message is required",
		})
	}

	var upstream *flow.UpstreamError
	if errors.As(err, &upstream) {
		logger.Error("Flow upstream error",
			zap.Int("status", upstream.StatusCode),
			zap.String("message", upstream.Message),
		)
		return c.Status(upstream.StatusCode).JSON(fiber.Map{
			"error": upstream.Message,
		})
	}

	logger.Error("Chat turn failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal server error",
	})
}
