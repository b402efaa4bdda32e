// middleware/sse_auth.go
package middleware

import (
	"errors"
	"log"
	"strings"

	"tarot-miniapp-backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SSEAuthMiddleware authenticates EventSource connections. Browsers cannot
// attach headers to an EventSource, so the raw init data travels in the
// `init_data` query parameter instead.
//
// Usage:
//
//	app.Get("/gifts/stream", middleware.SSEAuthMiddleware(cfg, db), giftService.StreamUserGiftsSSE)
func SSEAuthMiddleware(cfg AuthConfig, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := strings.TrimSpace(c.Query("init_data"))
		if raw == "" {
			log.Printf("[SSEAuth] ❌ Missing init_data query param for %s", c.Path())
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing init_data in query",
			})
		}

		tgUser, err := verifyRequest(cfg, raw)
		if err != nil {
			log.Printf("[SSEAuth] ❌ Validation failed for %s: %v", c.Path(), err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		var user models.User
		if err := db.Where("telegram_id = ?", tgUser.ID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}

		c.Locals("tg_user", tgUser)
		c.Locals("user", &user)

		log.Printf("[SSEAuth] ✅ Authenticated user %s for stream", user.ID)
		return c.Next()
	}
}
