// middleware/admin.go
package middleware

import (
	"log"
	"os"
	"strconv"
	"strings"

	"tarot-miniapp-backend/services"

	"github.com/gofiber/fiber/v2"
)

// RequireAdmin gates privileged mutations behind an explicit allow-list of
// Telegram IDs (ADMIN_TELEGRAM_IDS, comma-separated). It must run after one
// of the Telegram auth middlewares.
func RequireAdmin() fiber.Handler {
	raw := os.Getenv("ADMIN_TELEGRAM_IDS")
	admins := map[int64]bool{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			log.Printf("⚠️  ADMIN_TELEGRAM_IDS contains a non-numeric entry %q — skipping", part)
			continue
		}
		admins[id] = true
	}

	return func(c *fiber.Ctx) error {
		tgUser, ok := c.Locals("tg_user").(*services.TelegramUser)
		if !ok || tgUser == nil || !admins[tgUser.ID] {
			log.Printf("🚫 [ADMIN] Rejected non-admin request to %s", c.Path())
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "admin privileges required",
			})
		}
		return c.Next()
	}
}
