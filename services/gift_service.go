// services/gift_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"tarot-miniapp-backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GiftService is the reward ledger: every milestone-keyed gift in the system
// is issued through Grant/GrantMany so the (user, reason) exactly-once
// contract holds under concurrent and repeated calls.
type GiftService struct {
	DB *gorm.DB
}

func NewGiftService(db *gorm.DB) *GiftService {
	return &GiftService{DB: db}
}

// Grant creates one gift for (userID, reason) unless that reason was already
// rewarded. The returned bool is false on the no-op "already granted" path.
func (s *GiftService) Grant(userID string, giftType models.GiftType, reason string) (*models.Gift, bool, error) {
	gifts, granted, err := s.GrantMany(userID, []models.GiftType{giftType}, reason)
	if err != nil || !granted {
		return nil, granted, err
	}
	return &gifts[0], true, nil
}

// GrantMany applies the per-reason guard to a whole batch: either every gift
// for the reason existed already, or none did and all are created now. The
// unique (user_id, reason, reason_seq) index plus a single conflict-ignoring
// insert inside a transaction is what makes duplicate calls harmless.
//
// A reason must always be granted with the same batch shape; a partial
// conflict means two callers disagree on what the reason pays out, and the
// transaction rolls back instead of filling the gap.
func (s *GiftService) GrantMany(userID string, giftTypes []models.GiftType, reason string) ([]models.Gift, bool, error) {
	if reason == "" {
		return nil, false, fmt.Errorf("reason key is required for ledgered grants")
	}
	for _, t := range giftTypes {
		if !t.IsValid() {
			return nil, false, fmt.Errorf("%w: %q", ErrInvalidGiftType, t)
		}
	}

	gifts := make([]models.Gift, len(giftTypes))
	for i, t := range giftTypes {
		gifts[i] = models.Gift{
			ID:        uuid.NewString(),
			UserID:    userID,
			Type:      t,
			Reason:    &reason,
			ReasonSeq: i,
		}
	}

	var granted bool
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "reason"}, {Name: "reason_seq"}},
			DoNothing: true,
		}).Create(&gifts)
		if res.Error != nil {
			return fmt.Errorf("insert gifts for reason %s: %w", reason, res.Error)
		}
		switch res.RowsAffected {
		case int64(len(gifts)):
			granted = true
		case 0:
			granted = false
		default:
			return fmt.Errorf("reason %s was already granted to user %s with a different batch shape", reason, userID)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if !granted {
		return nil, false, nil
	}
	log.Printf("🎁 Gift granted: user=%s reason=%s count=%d", userID, reason, len(gifts))
	return gifts, true, nil
}

// GrantWelcome issues the three fixed signup gifts. They carry no reason key,
// so they sit outside the exactly-once ledger; callers only invoke this on
// user creation.
func (s *GiftService) GrantWelcome(userID string) ([]models.Gift, error) {
	welcome := []models.GiftType{
		models.GiftTypeLoveSpread,
		models.GiftTypeMoneySpread,
		models.GiftTypeFutureSpread,
	}
	gifts := make([]models.Gift, len(welcome))
	for i, t := range welcome {
		gifts[i] = models.Gift{ID: uuid.NewString(), UserID: userID, Type: t}
	}
	if err := s.DB.Create(&gifts).Error; err != nil {
		return nil, fmt.Errorf("create welcome gifts: %w", err)
	}
	return gifts, nil
}

// --- User Handlers ---

// GetUserGifts lists the authenticated user's gifts, optionally filtered by
// used=true/false.
func (s *GiftService) GetUserGifts(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	query := s.DB.Where("user_id = ?", user.ID)
	switch c.Query("used") {
	case "true":
		query = query.Where("used = ?", true)
	case "false":
		query = query.Where("used = ?", false)
	}

	var gifts []models.Gift
	if err := query.Order("created_at DESC").Find(&gifts).Error; err != nil {
		log.Printf("DB Error fetching user gifts: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch gifts"})
	}

	var unusedCount int64
	if err := s.DB.Model(&models.Gift{}).
		Where("user_id = ? AND used = ?", user.ID, false).
		Count(&unusedCount).Error; err != nil {
		log.Printf("DB Error counting unused gifts: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error counting gifts"})
	}

	return c.JSON(fiber.Map{
		"gifts":        gifts,
		"unused_count": unusedCount,
	})
}

// UseGift consumes a gift token. The flip happens in one conditional UPDATE,
// so a double-tap can only succeed once.
func (s *GiftService) UseGift(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	giftID := c.Params("id")

	if _, err := uuid.Parse(giftID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid gift ID"})
	}

	var gift models.Gift
	if err := s.DB.Where("id = ? AND user_id = ?", giftID, user.ID).First(&gift).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Gift not found or not owned by user"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	now := time.Now()
	res := s.DB.Model(&models.Gift{}).
		Where("id = ? AND used = ?", gift.ID, false).
		Updates(map[string]interface{}{"used": true, "used_at": now})
	if res.Error != nil {
		log.Printf("DB Error using gift: %v", res.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to use gift"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": ErrGiftAlreadyUsed.Error()})
	}

	gift.Used = true
	gift.UsedAt = &now
	return c.JSON(fiber.Map{"message": "Gift used", "gift": gift})
}
