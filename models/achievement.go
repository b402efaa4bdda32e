package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Achievement: static catalog row (seeded at startup)
type Achievement struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Code        string `gorm:"uniqueIndex;not null" json:"code"` // e.g. "READINGS_50", "STREAK_30", "FIRST_READING"
	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`
	Emoji       string `gorm:"size:10" json:"emoji"`
	SortOrder   int    `gorm:"default:0" json:"sort_order"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// UserAchievement: unlock record, unique per (user, achievement), never removed
type UserAchievement struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        string    `gorm:"type:uuid;not null;uniqueIndex:uniq_user_achievement" json:"user_id"`
	AchievementID string    `gorm:"type:uuid;not null;uniqueIndex:uniq_user_achievement" json:"achievement_id"`
	UnlockedAt    time.Time `gorm:"autoCreateTime" json:"unlocked_at"`
}

// MetricKind names the counter an achievement condition reads.
type MetricKind string

const (
	MetricReadings   MetricKind = "readings"
	MetricStreak     MetricKind = "streak"
	MetricCollection MetricKind = "collection"
	MetricFlag       MetricKind = "flag"
)

// Condition is the resolved form of an achievement code: which metric to
// read and the target it must reach. Flag codes are binary with target 1.
type Condition struct {
	Metric MetricKind
	Target int
}

// ParseCondition resolves a catalog code once, at load time. Codes shaped
// READINGS_<N> / STREAK_<N> / COLLECTION_<N> become counted conditions;
// everything else is a flag.
func ParseCondition(code string) (Condition, error) {
	for prefix, metric := range map[string]MetricKind{
		"READINGS_":   MetricReadings,
		"STREAK_":     MetricStreak,
		"COLLECTION_": MetricCollection,
	} {
		if !strings.HasPrefix(code, prefix) {
			continue
		}
		target, err := strconv.Atoi(strings.TrimPrefix(code, prefix))
		if err != nil || target <= 0 {
			return Condition{}, fmt.Errorf("achievement code %q has a bad numeric target", code)
		}
		return Condition{Metric: metric, Target: target}, nil
	}
	return Condition{Metric: MetricFlag, Target: 1}, nil
}

// AchievementCatalog is the fixed set of unlockable achievements.
var AchievementCatalog = []Achievement{
	{Code: "FIRST_READING", Title: "First Steps", Description: "Complete your first reading", Emoji: "🔮", SortOrder: 1},
	{Code: "READINGS_10", Title: "Curious Mind", Description: "Complete 10 readings", Emoji: "✨", SortOrder: 2},
	{Code: "READINGS_50", Title: "Seeker", Description: "Complete 50 readings", Emoji: "🌙", SortOrder: 3},
	{Code: "READINGS_100", Title: "Oracle", Description: "Complete 100 readings", Emoji: "👁️", SortOrder: 4},
	{Code: "STREAK_7", Title: "Week of Wonder", Description: "Keep a 7-day streak", Emoji: "🔥", SortOrder: 5},
	{Code: "STREAK_30", Title: "Lunar Cycle", Description: "Keep a 30-day streak", Emoji: "🌕", SortOrder: 6},
	{Code: "STREAK_100", Title: "Devoted", Description: "Keep a 100-day streak", Emoji: "💫", SortOrder: 7},
	{Code: "COLLECTION_22", Title: "Major Arcana", Description: "Collect all 22 major arcana cards", Emoji: "🃏", SortOrder: 8},
	{Code: "COLLECTION_78", Title: "Full Deck", Description: "Collect all 78 cards", Emoji: "🎴", SortOrder: 9},
}

// SeedAchievements inserts the catalog rows that don't exist yet (idempotent).
func SeedAchievements(db *gorm.DB) error {
	for _, a := range AchievementCatalog {
		a.ID = uuid.NewString()
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).Create(&a).Error; err != nil {
			return fmt.Errorf("seed achievement %s: %w", a.Code, err)
		}
	}
	return nil
}
