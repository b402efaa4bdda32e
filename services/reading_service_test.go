// services/reading_service_test.go
package services

import (
	"testing"
	"time"

	"tarot-miniapp-backend/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newReadingHarness(t *testing.T) (*ReadingService, *StreakService, *gorm.DB) {
	db := newTestDB(t)
	gifts := NewGiftService(db)
	streaks := NewStreakService(db, gifts)
	achievements := NewAchievementService(db)
	return NewReadingService(db, gifts, achievements, streaks), streaks, db
}

func TestRecordReading_FirstReading(t *testing.T) {
	readings, _, db := newReadingHarness(t)
	user := createTestUser(t, db)
	ids := cardIDs(t, db, 3)

	result, err := readings.RecordReading(user.ID, models.SpreadLove, ids)
	require.NoError(t, err)
	require.Equal(t, models.SpreadLove, result.Reading.Spread)

	// First reading pays the one-time clarification gift and unlocks the
	// first-reading achievement.
	require.Len(t, result.NewGifts, 1)
	require.Equal(t, models.GiftTypeClarificationCard, result.NewGifts[0].Type)
	require.Len(t, result.NewAchievements, 1)
	require.Equal(t, "FIRST_READING", result.NewAchievements[0].Code)

	// All three drawn cards entered the collection.
	var collected int64
	require.NoError(t, db.Model(&models.UserCard{}).Where("user_id = ?", user.ID).Count(&collected).Error)
	require.EqualValues(t, 3, collected)
}

func TestRecordReading_SecondReadingNoRepeatRewards(t *testing.T) {
	readings, _, db := newReadingHarness(t)
	user := createTestUser(t, db)
	ids := cardIDs(t, db, 3)

	_, err := readings.RecordReading(user.ID, models.SpreadLove, ids)
	require.NoError(t, err)

	// Same cards again: no new gift, no new achievement, no duplicate
	// collection rows.
	result, err := readings.RecordReading(user.ID, models.SpreadMoney, ids)
	require.NoError(t, err)
	require.Empty(t, result.NewGifts)
	require.Empty(t, result.NewAchievements)

	var collected int64
	require.NoError(t, db.Model(&models.UserCard{}).Where("user_id = ?", user.ID).Count(&collected).Error)
	require.EqualValues(t, 3, collected)

	var count int64
	require.NoError(t, db.Model(&models.Reading{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestRecordReading_Rejections(t *testing.T) {
	readings, _, db := newReadingHarness(t)
	user := createTestUser(t, db)
	ids := cardIDs(t, db, 1)

	_, err := readings.RecordReading(user.ID, "pyramid", ids)
	require.ErrorIs(t, err, ErrInvalidSpread)

	_, err = readings.RecordReading(user.ID, models.SpreadLove, nil)
	require.ErrorIs(t, err, ErrUnknownCard)

	_, err = readings.RecordReading(user.ID, models.SpreadLove, []string{"not-a-card"})
	require.ErrorIs(t, err, ErrUnknownCard)
}

func TestDrawDailyCard(t *testing.T) {
	readings, streaks, db := newReadingHarness(t)
	user := createTestUser(t, db)

	day1 := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	streaks.Now = func() time.Time { return day1 }

	result, err := readings.DrawDailyCard(user.ID)
	require.NoError(t, err)
	require.Equal(t, StreakStarted, result.Status)
	require.Equal(t, 1, result.StreakCount)
	require.NotNil(t, result.Card)

	// The drawn card was recorded as a daily_card reading.
	var reading models.Reading
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&reading).Error)
	require.Equal(t, models.SpreadDailyCard, reading.Spread)
	require.Equal(t, result.Card.ID, reading.CardIDs)

	// A second draw the same day is a no-op without a card.
	repeat, err := readings.DrawDailyCard(user.ID)
	require.NoError(t, err)
	require.Equal(t, StreakAlreadyClaimed, repeat.Status)
	require.Nil(t, repeat.Card)

	var count int64
	require.NoError(t, db.Model(&models.Reading{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)

	// The next day draws again and grows the streak.
	streaks.Now = func() time.Time { return day1.AddDate(0, 0, 1) }
	next, err := readings.DrawDailyCard(user.ID)
	require.NoError(t, err)
	require.Equal(t, StreakIncremented, next.Status)
	require.Equal(t, 2, next.StreakCount)
	require.NotNil(t, next.Card)
}
