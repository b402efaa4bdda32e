// handlers/referral_routes.go
package handlers

import (
	"errors"
	"strconv"

	"tarot-miniapp-backend/middleware"
	"tarot-miniapp-backend/models"
	"tarot-miniapp-backend/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupReferralRoutes wires referral info, code application and the leaderboard.
func SetupReferralRoutes(app *fiber.App, cfg middleware.AuthConfig, db *gorm.DB, referralService *services.ReferralService) {
	secured := app.Group("/", middleware.TelegramAuthMiddleware(cfg, db))

	secured.Get("/referrals", func(c *fiber.Ctx) error {
		user := c.Locals("user").(*models.User)
		info, err := referralService.Info(user.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load referral info",
				"cause": err.Error(),
			})
		}
		return c.JSON(info)
	})

	secured.Post("/referrals/apply", func(c *fiber.Ctx) error {
		user := c.Locals("user").(*models.User)
		var req struct {
			Code string `json:"code"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}

		referrer, err := referralService.ProcessReferral(user.ID, req.Code)
		switch {
		case errors.Is(err, services.ErrInvalidReferralCode):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, services.ErrCodeNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, services.ErrSelfReferral), errors.Is(err, services.ErrAlreadyReferred):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		case err != nil:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to apply referral code",
				"cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"message":  "referral applied",
			"referrer": referrer.DisplayName,
		})
	})

	// Public — identity optional, used only to flag the caller's own row.
	app.Get("/referrals/leaderboard", middleware.OptionalTelegramAuth(cfg, db), func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		entries, err := referralService.Leaderboard(limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load leaderboard",
				"cause": err.Error(),
			})
		}

		response := fiber.Map{"entries": entries}
		if user, ok := c.Locals("user").(*models.User); ok && user != nil {
			response["you"] = fiber.Map{
				"display_name":   user.DisplayName,
				"referral_count": user.ReferralCount,
			}
		}
		return c.JSON(response)
	})
}
