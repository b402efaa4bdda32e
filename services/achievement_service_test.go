// services/achievement_service_test.go
package services

import (
	"strings"
	"testing"

	"tarot-miniapp-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func insertReadings(t *testing.T, db *gorm.DB, userID string, n int) {
	t.Helper()
	ids := cardIDs(t, db, 1)
	for i := 0; i < n; i++ {
		require.NoError(t, db.Create(&models.Reading{
			ID:      uuid.NewString(),
			UserID:  userID,
			Spread:  models.SpreadDailyCard,
			CardIDs: strings.Join(ids, ","),
		}).Error)
	}
}

func TestCheckAndUnlock_Idempotent(t *testing.T) {
	db := newTestDB(t)
	achievements := NewAchievementService(db)
	user := createTestUser(t, db)

	insertReadings(t, db, user.ID, 1)

	unlocked, err := achievements.CheckAndUnlock(user.ID)
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	require.Equal(t, "FIRST_READING", unlocked[0].Code)

	// Nothing changed, so the second run reports nothing new.
	unlocked, err = achievements.CheckAndUnlock(user.ID)
	require.NoError(t, err)
	require.Empty(t, unlocked)

	var count int64
	require.NoError(t, db.Model(&models.UserAchievement{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestCheckAndUnlock_CrossesMultipleThresholds(t *testing.T) {
	db := newTestDB(t)
	achievements := NewAchievementService(db)
	user := createTestUser(t, db)

	insertReadings(t, db, user.ID, 10)

	unlocked, err := achievements.CheckAndUnlock(user.ID)
	require.NoError(t, err)

	codes := make([]string, len(unlocked))
	for i, a := range unlocked {
		codes[i] = a.Code
	}
	require.ElementsMatch(t, []string{"FIRST_READING", "READINGS_10"}, codes)
}

func TestCheckAndUnlock_StreakMetric(t *testing.T) {
	db := newTestDB(t)
	achievements := NewAchievementService(db)
	user := createTestUser(t, db)

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).
		Update("streak_count", 7).Error)

	unlocked, err := achievements.CheckAndUnlock(user.ID)
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	require.Equal(t, "STREAK_7", unlocked[0].Code)
}

func TestCheckAndUnlock_CollectionMetric(t *testing.T) {
	db := newTestDB(t)
	achievements := NewAchievementService(db)
	user := createTestUser(t, db)

	for _, id := range cardIDs(t, db, 22) {
		require.NoError(t, db.Create(&models.UserCard{
			ID:     uuid.NewString(),
			UserID: user.ID,
			CardID: id,
		}).Error)
	}

	unlocked, err := achievements.CheckAndUnlock(user.ID)
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	require.Equal(t, "COLLECTION_22", unlocked[0].Code)

	list, err := achievements.ListWithProgress(user.ID)
	require.NoError(t, err)
	for _, item := range list {
		switch item.Code {
		case "COLLECTION_22":
			require.True(t, item.Unlocked)
			require.Equal(t, 22, item.Progress)
			require.Equal(t, 100, item.Percent)
		case "COLLECTION_78":
			require.False(t, item.Unlocked)
			require.Equal(t, 22, item.Progress)
			require.Equal(t, 78, item.Target)
			require.Equal(t, 28, item.Percent)
		}
	}
}

func TestListWithProgress(t *testing.T) {
	db := newTestDB(t)
	achievements := NewAchievementService(db)
	user := createTestUser(t, db)

	insertReadings(t, db, user.ID, 3)
	_, err := achievements.CheckAndUnlock(user.ID)
	require.NoError(t, err)

	list, err := achievements.ListWithProgress(user.ID)
	require.NoError(t, err)
	require.Len(t, list, len(models.AchievementCatalog))

	byCode := make(map[string]AchievementProgress, len(list))
	for _, item := range list {
		byCode[item.Code] = item
	}

	first := byCode["FIRST_READING"]
	require.True(t, first.Unlocked)
	require.NotNil(t, first.UnlockedAt)
	require.Equal(t, 1, first.Progress)
	require.Equal(t, 1, first.Target)
	require.Equal(t, 100, first.Percent)

	ten := byCode["READINGS_10"]
	require.False(t, ten.Unlocked)
	require.Equal(t, 3, ten.Progress)
	require.Equal(t, 10, ten.Target)
	require.Equal(t, 30, ten.Percent)

	streak := byCode["STREAK_7"]
	require.Equal(t, 0, streak.Progress)
	require.Equal(t, 0, streak.Percent)
}

func TestListWithProgress_CapsAtTarget(t *testing.T) {
	db := newTestDB(t)
	achievements := NewAchievementService(db)
	user := createTestUser(t, db)

	insertReadings(t, db, user.ID, 14)

	list, err := achievements.ListWithProgress(user.ID)
	require.NoError(t, err)
	for _, item := range list {
		if item.Code == "READINGS_10" {
			require.Equal(t, 10, item.Progress)
			require.Equal(t, 100, item.Percent)
		}
	}
}

func TestParseCondition(t *testing.T) {
	cond, err := models.ParseCondition("READINGS_50")
	require.NoError(t, err)
	require.Equal(t, models.MetricReadings, cond.Metric)
	require.Equal(t, 50, cond.Target)

	cond, err = models.ParseCondition("STREAK_7")
	require.NoError(t, err)
	require.Equal(t, models.MetricStreak, cond.Metric)
	require.Equal(t, 7, cond.Target)

	cond, err = models.ParseCondition("COLLECTION_78")
	require.NoError(t, err)
	require.Equal(t, models.MetricCollection, cond.Metric)
	require.Equal(t, 78, cond.Target)

	cond, err = models.ParseCondition("FIRST_READING")
	require.NoError(t, err)
	require.Equal(t, models.MetricFlag, cond.Metric)
	require.Equal(t, 1, cond.Target)

	_, err = models.ParseCondition("STREAK_zero")
	require.Error(t, err)
}
