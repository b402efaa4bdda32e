package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"tarot-miniapp-backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// StreamUserGiftsSSE streams newly granted gifts for the authenticated user
// so the client can pop a reward animation without polling.
func (s *GiftService) StreamUserGiftsSSE(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	userID := user.ID

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		var lastMaxCreatedAt time.Time

		// Initialize cursor
		var latest models.Gift
		if err := s.DB.
			Where("user_id = ?", userID).
			Order("created_at DESC").
			First(&latest).Error; err == nil {
			lastMaxCreatedAt = latest.CreatedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("SSE init error for user %s: %v", userID, err)
		}

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case <-ticker.C:
				var newGifts []models.Gift

				err := s.DB.
					Where("user_id = ? AND created_at > ?", userID, lastMaxCreatedAt).
					Order("created_at ASC").
					Find(&newGifts).Error
				if err != nil {
					log.Printf("SSE query error for user %s: %v", userID, err)
					continue
				}

				if len(newGifts) == 0 {
					continue
				}

				lastMaxCreatedAt = newGifts[len(newGifts)-1].CreatedAt

				for _, g := range newGifts {
					payload, _ := json.Marshal(g)
					fmt.Fprintf(w, "event: gift\ndata: %s\n\n", payload)
				}

				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-c.Context().Done():
				// Client closed connection
				return
			}
		}
	})

	return nil
}
