// handlers/admin_routes.go
package handlers

import (
	"errors"

	"tarot-miniapp-backend/middleware"
	"tarot-miniapp-backend/models"
	"tarot-miniapp-backend/services"
	"tarot-miniapp-backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupAdminRoutes wires privileged mutations. Every route sits behind the
// Telegram auth middleware plus the explicit admin allow-list.
func SetupAdminRoutes(app *fiber.App, cfg middleware.AuthConfig, db *gorm.DB, giftService *services.GiftService) {
	admin := app.Group("/admin", middleware.TelegramAuthMiddleware(cfg, db), middleware.RequireAdmin())

	admin.Post("/gifts/grant", func(c *fiber.Ctx) error {
		var req struct {
			TelegramID int64  `json:"telegram_id"`
			Type       string `json:"type"`
			Reason     string `json:"reason"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		if req.Reason == "" {
			req.Reason = models.ReasonAdminGrant
		}

		var target models.User
		if err := db.Where("telegram_id = ?", req.TelegramID).First(&target).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}

		gift, granted, err := giftService.Grant(target.ID, models.GiftType(req.Type), req.Reason)
		switch {
		case errors.Is(err, services.ErrInvalidGiftType):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case err != nil:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "grant failed",
				"cause": err.Error(),
			})
		case !granted:
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message": "already granted",
				"reason":  req.Reason,
			})
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "gift granted", "gift": gift})
	})

	admin.Post("/cards/:id/artwork", func(c *fiber.Ctx) error {
		cardID := c.Params("id")

		var card models.Card
		if err := db.Where("id = ?", cardID).First(&card).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "card not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}

		fileHeader, err := c.FormFile("artwork")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "artwork file is required"})
		}

		url, err := utils.UploadCardArtwork(fileHeader, card.Name)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "artwork upload failed",
				"cause": err.Error(),
			})
		}

		if err := db.Model(&card).Update("artwork_url", url).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save artwork URL"})
		}

		return c.JSON(fiber.Map{"message": "artwork uploaded", "artwork_url": url})
	})
}
