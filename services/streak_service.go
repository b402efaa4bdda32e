// services/streak_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"tarot-miniapp-backend/models"

	"gorm.io/gorm"
)

// Streak milestone table: day count → gifts granted, reason "STREAK_<day>".
var streakMilestones = []struct {
	Day   int
	Gifts []models.GiftType
}{
	{Day: 7, Gifts: []models.GiftType{models.GiftTypeLoveSpread}},
	{Day: 14, Gifts: []models.GiftType{models.GiftTypeMoneySpread}},
	{Day: 30, Gifts: []models.GiftType{models.GiftTypeFutureSpread, models.GiftTypeClarificationCard}},
	{Day: 100, Gifts: []models.GiftType{models.GiftTypeLoveSpread, models.GiftTypeMoneySpread, models.GiftTypeFutureSpread}},
}

// Claim outcomes.
const (
	StreakStarted        = "started"
	StreakIncremented    = "incremented"
	StreakReset          = "reset"
	StreakAlreadyClaimed = "already_claimed"
)

// StreakResult describes the state after one claim.
type StreakResult struct {
	Status      string        `json:"status"`
	StreakCount int           `json:"streak_count"`
	NewGifts    []models.Gift `json:"new_gifts,omitempty"`
}

// StreakStatus is the read-only streak report.
type StreakStatus struct {
	StreakCount   int        `json:"streak_count"`
	LastClaimDate *time.Time `json:"last_claim_date,omitempty"`
	IsActive      bool       `json:"is_active"`
	CanClaimToday bool       `json:"can_claim_today"`
	NextMilestone int        `json:"next_milestone,omitempty"`
	DaysRemaining int        `json:"days_remaining,omitempty"`
}

// StreakService runs the day-boundary streak state machine. Days are the
// server reference clock truncated to UTC midnight; user timezones are stored
// but not consulted here.
type StreakService struct {
	DB    *gorm.DB
	Gifts *GiftService

	// Now is swappable in tests.
	Now func() time.Time
}

func NewStreakService(db *gorm.DB, gifts *GiftService) *StreakService {
	return &StreakService{DB: db, Gifts: gifts, Now: time.Now}
}

// dateOnly truncates to the calendar day in UTC.
func dateOnly(value time.Time) time.Time {
	year, month, day := value.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts whole calendar days from earlier to later.
func daysBetween(earlier, later time.Time) int {
	return int(dateOnly(later).Sub(dateOnly(earlier)).Hours() / 24)
}

// Claim transitions the streak for one daily-card draw.
//
//	no prior claim        → count 1, "started"
//	same day              → unchanged, "already_claimed", no reward check
//	exactly one day later → count+1, "incremented"
//	gap of 2+ days        → count 1, "reset"
//
// Any new-day transition is followed by the milestone reward check.
func (s *StreakService) Claim(userID string) (*StreakResult, error) {
	today := dateOnly(s.Now())

	var result StreakResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			return err
		}

		switch {
		case user.StreakLastDate == nil:
			result = StreakResult{Status: StreakStarted, StreakCount: 1}
		case daysBetween(*user.StreakLastDate, today) == 0:
			result = StreakResult{Status: StreakAlreadyClaimed, StreakCount: user.StreakCount}
			return nil
		case daysBetween(*user.StreakLastDate, today) == 1:
			result = StreakResult{Status: StreakIncremented, StreakCount: user.StreakCount + 1}
		default:
			result = StreakResult{Status: StreakReset, StreakCount: 1}
		}

		return tx.Model(&user).Updates(map[string]interface{}{
			"streak_count":     result.StreakCount,
			"streak_last_date": today,
		}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("streak claim for %s: %w", userID, err)
	}

	if result.Status == StreakAlreadyClaimed {
		return &result, nil
	}

	for _, m := range streakMilestones {
		if m.Day != result.StreakCount {
			continue
		}
		reason := fmt.Sprintf("STREAK_%d", m.Day)
		gifts, granted, err := s.Gifts.GrantMany(userID, m.Gifts, reason)
		if err != nil {
			return nil, err
		}
		if granted {
			log.Printf("🔥 Streak milestone hit: user=%s day=%d", userID, m.Day)
			result.NewGifts = append(result.NewGifts, gifts...)
		}
	}

	return &result, nil
}

// Status reports the current streak without mutating it.
func (s *StreakService) Status(userID string) (*StreakStatus, error) {
	var user models.User
	if err := s.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}

	today := dateOnly(s.Now())
	status := StreakStatus{
		StreakCount:   user.StreakCount,
		LastClaimDate: user.StreakLastDate,
		CanClaimToday: true,
	}
	if user.StreakLastDate != nil {
		gap := daysBetween(*user.StreakLastDate, today)
		status.IsActive = gap <= 1
		status.CanClaimToday = gap >= 1
	}

	// Next milestone is measured against the streak that is still alive;
	// a lapsed streak restarts from zero.
	effective := 0
	if status.IsActive {
		effective = user.StreakCount
	}
	for _, m := range streakMilestones {
		if m.Day > effective {
			status.NextMilestone = m.Day
			status.DaysRemaining = m.Day - effective
			break
		}
	}

	return &status, nil
}
