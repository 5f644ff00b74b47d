package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/novapay/rag-chat-backend/internal/auth"
	"github.com/novapay/rag-chat-backend/internal/metrics"
	"github.com/novapay/rag-chat-backend/pkg/logger"
)

type AuthHandler struct {
	gate         *auth.Gate
	cookieName   string
	cookieSecure bool
}

func NewAuthHandler(gate *auth.Gate, cookieName string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		gate:         gate,
		cookieName:   cookieName,
		cookieSecure: cookieSecure,
	}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	session, err := h.gate.Login(c.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			metrics.AuthAttempts.WithLabelValues("failure").Inc()
			logger.Warn("Failed admin login", zap.String("ip", c.IP()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Invalid username or password",
			})
		}
		logger.Error("Login failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Login failed",
		})
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()

	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    session.Token,
		Expires:  session.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.cookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Login successful",
	})
}

func (h *AuthHandler) Check(c *fiber.Ctx) error {
	token := c.Cookies(h.cookieName)
	if !h.gate.Check(c.Context(), token) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"authenticated": false,
		})
	}

	return c.JSON(fiber.Map{
		"authenticated": true,
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	token := c.Cookies(h.cookieName)
	if err := h.gate.Logout(c.Context(), token); err != nil {
		logger.Warn("Failed to delete session", zap.Error(err))
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   h.cookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})

	return c.JSON(fiber.Map{
		"success": true,
	})
}

// RequireAdmin guards the analytics endpoints behind a live admin session.
func (h *AuthHandler) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(h.cookieName)
		if !h.gate.Check(c.Context(), token) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}
		return c.Next()
	}
}
