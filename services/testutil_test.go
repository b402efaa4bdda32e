// services/testutil_test.go
package services

import (
	"fmt"
	"path/filepath"
	"testing"

	"tarot-miniapp-backend/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a throwaway sqlite database with the full schema and the
// seeded catalogs.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_foreign_keys=on&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Gift{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.Card{},
		&models.UserCard{},
		&models.Reading{},
	))
	require.NoError(t, models.SeedAchievements(db))
	require.NoError(t, models.SeedCards(db))

	return db
}

var testUserSeq int

// createTestUser inserts a bare user row and returns it.
func createTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	testUserSeq++
	user := models.User{
		ID:           uuid.NewString(),
		TelegramID:   int64(100000 + testUserSeq),
		FirstName:    "Test",
		DisplayName:  fmt.Sprintf("Test User %d", testUserSeq),
		DeckTheme:    models.DeckThemeClassic,
		ReferralCode: GenerateCode(),
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

// cardIDs returns n card ids from the seeded deck, in catalog order.
func cardIDs(t *testing.T, db *gorm.DB, n int) []string {
	t.Helper()

	var cards []models.Card
	require.NoError(t, db.Order("created_at ASC, name ASC").Limit(n).Find(&cards).Error)
	require.Len(t, cards, n)

	ids := make([]string, n)
	for i, c := range cards {
		ids[i] = c.ID
	}
	return ids
}
