// handlers/progression_routes.go
package handlers

import (
	"errors"
	"strings"

	"tarot-miniapp-backend/middleware"
	"tarot-miniapp-backend/models"
	"tarot-miniapp-backend/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupProgressionRoutes wires streaks, readings, achievements and gifts.
func SetupProgressionRoutes(
	app *fiber.App,
	cfg middleware.AuthConfig,
	db *gorm.DB,
	streakService *services.StreakService,
	achievementService *services.AchievementService,
	readingService *services.ReadingService,
	giftService *services.GiftService,
) {
	secured := app.Group("/", middleware.TelegramAuthMiddleware(cfg, db))

	secured.Get("/streak", func(c *fiber.Ctx) error {
		user := c.Locals("user").(*models.User)
		status, err := streakService.Status(user.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load streak",
				"cause": err.Error(),
			})
		}
		return c.JSON(status)
	})

	secured.Post("/streak/claim", func(c *fiber.Ctx) error {
		user := c.Locals("user").(*models.User)
		result, err := streakService.Claim(user.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "streak claim failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	})

	secured.Get("/achievements", func(c *fiber.Ctx) error {
		user := c.Locals("user").(*models.User)
		list, err := achievementService.ListWithProgress(user.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load achievements",
				"cause": err.Error(),
			})
		}
		return c.JSON(list)
	})

	secured.Post("/achievements/check", func(c *fiber.Ctx) error {
		user := c.Locals("user").(*models.User)
		unlocked, err := achievementService.CheckAndUnlock(user.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "achievement check failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"newly_unlocked": unlocked})
	})

	secured.Post("/readings", func(c *fiber.Ctx) error {
		user := c.Locals("user").(*models.User)
		var req struct {
			Spread  string `json:"spread"`
			CardIDs string `json:"card_ids"` // comma-separated
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		var cardIDs []string
		for _, id := range strings.Split(req.CardIDs, ",") {
			if id = strings.TrimSpace(id); id != "" {
				cardIDs = append(cardIDs, id)
			}
		}
		result, err := readingService.RecordReading(user.ID, models.ReadingSpread(req.Spread), cardIDs)
		switch {
		case errors.Is(err, services.ErrInvalidSpread), errors.Is(err, services.ErrUnknownCard):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case err != nil:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to record reading",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(result)
	})

	secured.Post("/readings/daily-card", func(c *fiber.Ctx) error {
		user := c.Locals("user").(*models.User)
		result, err := readingService.DrawDailyCard(user.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "daily card draw failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	})

	secured.Get("/gifts", giftService.GetUserGifts)
	secured.Post("/gifts/:id/use", giftService.UseGift)

	// EventSource cannot set headers, so the stream authenticates via query.
	app.Get("/gifts/stream", middleware.SSEAuthMiddleware(cfg, db), giftService.StreamUserGiftsSSE)
}
