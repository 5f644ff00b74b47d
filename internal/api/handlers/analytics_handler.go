package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/novapay/rag-chat-backend/internal/analytics"
	"github.com/novapay/rag-chat-backend/pkg/logger"
)

type AnalyticsHandler struct {
	store *analytics.Store
}

func NewAnalyticsHandler(store *analytics.Store) *AnalyticsHandler {
	return &AnalyticsHandler{store: store}
}

func (h *AnalyticsHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.store.AggregateStats(c.Context())
	if err != nil {
		logger.Error("Failed to fetch aggregate stats", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Failed to fetch analytics stats",
		})
	}

	return c.JSON(stats)
}

func (h *AnalyticsHandler) GetNeedsImprovement(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)

	questions, err := h.store.QueryNeedsImprovement(c.Context(), limit)
	if err != nil {
		logger.Error("Failed to fetch needs-improvement entries", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Failed to fetch questions needing improvement",
		})
	}

	return c.JSON(fiber.Map{
		"questions": questions,
	})
}
