// middleware/auth.go
package middleware

import (
	"errors"
	"log"
	"strings"
	"time"

	"tarot-miniapp-backend/models"
	"tarot-miniapp-backend/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AuthConfig configures the Telegram auth middlewares.
type AuthConfig struct {
	BotToken string
	// MaxInitDataAge > 0 additionally rejects stale payloads.
	MaxInitDataAge time.Duration
}

// initDataFromRequest pulls the raw init data string out of the request.
// Clients send either the X-Telegram-Init-Data header or "Authorization: tma <raw>".
func initDataFromRequest(c *fiber.Ctx) string {
	if raw := c.Get("X-Telegram-Init-Data"); raw != "" {
		return raw
	}
	auth := c.Get("Authorization")
	if strings.HasPrefix(auth, "tma ") {
		return strings.TrimPrefix(auth, "tma ")
	}
	return ""
}

func verifyRequest(cfg AuthConfig, raw string) (*services.TelegramUser, error) {
	tgUser, err := services.ParseAndVerifyInitData(raw, cfg.BotToken)
	if err != nil {
		return nil, err
	}
	if cfg.MaxInitDataAge > 0 {
		if err := services.VerifyInitDataAge(raw, cfg.MaxInitDataAge, time.Now()); err != nil {
			return nil, err
		}
	}
	return tgUser, nil
}

// TelegramAuthMiddleware verifies the signed init data and loads the internal
// user. Requests without a valid signature, or from identities that never
// onboarded, don't reach the handler.
func TelegramAuthMiddleware(cfg AuthConfig, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := initDataFromRequest(c)
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing Telegram init data",
			})
		}

		tgUser, err := verifyRequest(cfg, raw)
		if err != nil {
			log.Printf("🚫 [TG_AUTH] Rejected init data for %s: %v", c.Path(), err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid Telegram init data",
			})
		}

		var user models.User
		if err := db.Where("telegram_id = ?", tgUser.ID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error":               "user not registered",
					"onboarding_required": true,
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error loading user"})
		}

		c.Locals("tg_user", tgUser)
		c.Locals("user", &user)
		return c.Next()
	}
}

// OptionalTelegramAuth resolves the identity when it can but never rejects:
// a missing or broken credential just leaves the request anonymous.
func OptionalTelegramAuth(cfg AuthConfig, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := initDataFromRequest(c)
		if raw == "" {
			return c.Next()
		}
		tgUser, err := verifyRequest(cfg, raw)
		if err != nil {
			return c.Next()
		}
		c.Locals("tg_user", tgUser)

		var user models.User
		if err := db.Where("telegram_id = ?", tgUser.ID).First(&user).Error; err == nil {
			c.Locals("user", &user)
		}
		return c.Next()
	}
}
