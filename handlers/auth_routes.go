// handlers/auth_routes.go
package handlers

import (
	"errors"
	"time"

	"tarot-miniapp-backend/middleware"
	"tarot-miniapp-backend/models"
	"tarot-miniapp-backend/services"

	"github.com/gofiber/fiber/v2"
)

type sessionRequest struct {
	InitData   string                   `json:"init_data"`
	Onboarding *services.OnboardingData `json:"onboarding,omitempty"`
}

// SetupAuthRoutes wires the session exchange and the profile endpoint.
func SetupAuthRoutes(app *fiber.App, cfg middleware.AuthConfig, authService *services.AuthService) {
	// POST /auth/session — exchange signed init data (+ optional onboarding
	// payload) for the user profile.
	app.Post("/auth/session", func(c *fiber.Ctx) error {
		var req sessionRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.InitData == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "init_data is required"})
		}

		tgUser, err := services.ParseAndVerifyInitData(req.InitData, cfg.BotToken)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid Telegram init data"})
		}
		if cfg.MaxInitDataAge > 0 {
			if err := services.VerifyInitDataAge(req.InitData, cfg.MaxInitDataAge, time.Now()); err != nil {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "init data expired"})
			}
		}

		user, err := authService.ResolveSession(tgUser, req.Onboarding)
		switch {
		case errors.Is(err, services.ErrOnboardingRequired):
			return c.JSON(fiber.Map{"status": "onboarding_required"})
		case errors.Is(err, services.ErrInvalidDeckTheme):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case err != nil:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to resolve session",
				"cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{"status": "ok", "user": user})
	})

	// GET /me — the authenticated user's profile.
	secured := app.Group("/", middleware.TelegramAuthMiddleware(cfg, authService.DB))
	secured.Get("/me", func(c *fiber.Ctx) error {
		user := c.Locals("user").(*models.User)
		return c.JSON(user)
	})
}
