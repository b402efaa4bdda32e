// services/reading_service.go
package services

import (
	"fmt"
	"math/rand"
	"strings"

	"tarot-miniapp-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReadingResult is what one recorded reading changed.
type ReadingResult struct {
	Reading         models.Reading       `json:"reading"`
	NewGifts        []models.Gift        `json:"new_gifts,omitempty"`
	NewAchievements []models.Achievement `json:"new_achievements,omitempty"`
}

// DailyCardResult combines the drawn card with the streak transition.
type DailyCardResult struct {
	Status          string               `json:"status"`
	Card            *models.Card         `json:"card,omitempty"`
	StreakCount     int                  `json:"streak_count"`
	NewGifts        []models.Gift        `json:"new_gifts,omitempty"`
	NewAchievements []models.Achievement `json:"new_achievements,omitempty"`
}

// ReadingService records completed draws, keeps the card collection current
// and feeds the metrics the achievement evaluator reads.
type ReadingService struct {
	DB           *gorm.DB
	Gifts        *GiftService
	Achievements *AchievementService
	Streaks      *StreakService
}

func NewReadingService(db *gorm.DB, gifts *GiftService, achievements *AchievementService, streaks *StreakService) *ReadingService {
	return &ReadingService{DB: db, Gifts: gifts, Achievements: achievements, Streaks: streaks}
}

// RecordReading stores one reading, collects its cards, grants the one-time
// first-reading gift and re-runs the achievement check.
func (s *ReadingService) RecordReading(userID string, spread models.ReadingSpread, cardIDs []string) (*ReadingResult, error) {
	if !spread.IsValid() {
		return nil, ErrInvalidSpread
	}
	if len(cardIDs) == 0 {
		return nil, fmt.Errorf("%w: reading has no cards", ErrUnknownCard)
	}

	var known int64
	if err := s.DB.Model(&models.Card{}).Where("id IN ?", cardIDs).Count(&known).Error; err != nil {
		return nil, fmt.Errorf("validate cards: %w", err)
	}
	if known != int64(len(cardIDs)) {
		return nil, ErrUnknownCard
	}

	reading := models.Reading{
		ID:      uuid.NewString(),
		UserID:  userID,
		Spread:  spread,
		CardIDs: strings.Join(cardIDs, ","),
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&reading).Error; err != nil {
			return fmt.Errorf("create reading: %w", err)
		}
		collected := make([]models.UserCard, len(cardIDs))
		for i, cardID := range cardIDs {
			collected[i] = models.UserCard{ID: uuid.NewString(), UserID: userID, CardID: cardID}
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "card_id"}},
			DoNothing: true,
		}).Create(&collected).Error; err != nil {
			return fmt.Errorf("collect cards: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := ReadingResult{Reading: reading}

	gift, granted, err := s.Gifts.Grant(userID, models.GiftTypeClarificationCard, models.ReasonFirstReading)
	if err != nil {
		return nil, err
	}
	if granted {
		result.NewGifts = append(result.NewGifts, *gift)
	}

	unlocked, err := s.Achievements.CheckAndUnlock(userID)
	if err != nil {
		return nil, err
	}
	result.NewAchievements = unlocked

	return &result, nil
}

// DrawDailyCard claims the daily streak and, on a new-day transition, draws a
// random card and records it as a daily_card reading. A repeat call on the
// same day reports already_claimed and draws nothing.
func (s *ReadingService) DrawDailyCard(userID string) (*DailyCardResult, error) {
	streak, err := s.Streaks.Claim(userID)
	if err != nil {
		return nil, err
	}

	result := DailyCardResult{
		Status:      streak.Status,
		StreakCount: streak.StreakCount,
		NewGifts:    streak.NewGifts,
	}
	if streak.Status == StreakAlreadyClaimed {
		return &result, nil
	}

	var count int64
	if err := s.DB.Model(&models.Card{}).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("count cards: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("card catalog is empty")
	}

	var card models.Card
	if err := s.DB.Offset(rand.Intn(int(count))).Limit(1).Find(&card).Error; err != nil {
		return nil, fmt.Errorf("draw card: %w", err)
	}

	reading, err := s.RecordReading(userID, models.SpreadDailyCard, []string{card.ID})
	if err != nil {
		return nil, err
	}

	result.Card = &card
	result.NewGifts = append(result.NewGifts, reading.NewGifts...)
	result.NewAchievements = reading.NewAchievements
	return &result, nil
}
