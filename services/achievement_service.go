// services/achievement_service.go
package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"tarot-miniapp-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// resolvedAchievement pairs a catalog row with its condition, parsed once
// when the catalog is first loaded.
type resolvedAchievement struct {
	models.Achievement
	Condition models.Condition
}

// AchievementProgress annotates a catalog entry for the client.
type AchievementProgress struct {
	models.Achievement
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
	Progress   int        `json:"progress"`
	Target     int        `json:"target"`
	Percent    int        `json:"percent"`
}

// AchievementService evaluates the catalog against user metrics and records
// unlocks exactly once.
type AchievementService struct {
	DB *gorm.DB

	mu      sync.Mutex
	catalog []resolvedAchievement
}

func NewAchievementService(db *gorm.DB) *AchievementService {
	return &AchievementService{DB: db}
}

// loadCatalog reads the seeded achievement rows and resolves their codes.
// Cached after the first successful load; the catalog is static reference data.
func (s *AchievementService) loadCatalog() ([]resolvedAchievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.catalog != nil {
		return s.catalog, nil
	}

	var rows []models.Achievement
	if err := s.DB.Order("sort_order ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load achievement catalog: %w", err)
	}

	resolved := make([]resolvedAchievement, 0, len(rows))
	for _, row := range rows {
		cond, err := models.ParseCondition(row.Code)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, resolvedAchievement{Achievement: row, Condition: cond})
	}
	s.catalog = resolved
	return resolved, nil
}

// userMetrics is a snapshot of every counter the catalog can reference.
type userMetrics struct {
	Readings   int
	Streak     int
	Collection int
}

func (s *AchievementService) metrics(userID string) (*userMetrics, error) {
	var user models.User
	if err := s.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}

	var readings, collection int64
	if err := s.DB.Model(&models.Reading{}).Where("user_id = ?", userID).Count(&readings).Error; err != nil {
		return nil, fmt.Errorf("count readings: %w", err)
	}
	if err := s.DB.Model(&models.UserCard{}).Where("user_id = ?", userID).Count(&collection).Error; err != nil {
		return nil, fmt.Errorf("count collected cards: %w", err)
	}

	return &userMetrics{
		Readings:   int(readings),
		Streak:     user.StreakCount,
		Collection: int(collection),
	}, nil
}

// current returns the metric value a condition reads. Flag codes carry a
// fixed named requirement instead of a numeric suffix.
func (m *userMetrics) current(code string, cond models.Condition) int {
	switch cond.Metric {
	case models.MetricReadings:
		return m.Readings
	case models.MetricStreak:
		return m.Streak
	case models.MetricCollection:
		return m.Collection
	case models.MetricFlag:
		switch code {
		case "FIRST_READING":
			if m.Readings >= 1 {
				return 1
			}
		}
		return 0
	}
	return 0
}

// ListWithProgress returns every catalog achievement with unlocked state,
// progress, target and percentage for the given user.
func (s *AchievementService) ListWithProgress(userID string) ([]AchievementProgress, error) {
	catalog, err := s.loadCatalog()
	if err != nil {
		return nil, err
	}
	metrics, err := s.metrics(userID)
	if err != nil {
		return nil, err
	}

	var unlocks []models.UserAchievement
	if err := s.DB.Where("user_id = ?", userID).Find(&unlocks).Error; err != nil {
		return nil, fmt.Errorf("load unlocks: %w", err)
	}
	unlockedAt := make(map[string]time.Time, len(unlocks))
	for _, u := range unlocks {
		unlockedAt[u.AchievementID] = u.UnlockedAt
	}

	out := make([]AchievementProgress, 0, len(catalog))
	for _, entry := range catalog {
		progress := metrics.current(entry.Code, entry.Condition)
		if progress > entry.Condition.Target {
			progress = entry.Condition.Target
		}
		item := AchievementProgress{
			Achievement: entry.Achievement,
			Progress:    progress,
			Target:      entry.Condition.Target,
			Percent:     100 * progress / entry.Condition.Target,
		}
		if at, ok := unlockedAt[entry.ID]; ok {
			item.Unlocked = true
			item.UnlockedAt = &at
		}
		out = append(out, item)
	}
	return out, nil
}

// CheckAndUnlock re-evaluates every achievement the user has not unlocked yet
// and records each newly satisfied one. The unique (user, achievement) index
// plus conflict-ignoring inserts make re-runs produce an empty result instead
// of duplicates.
func (s *AchievementService) CheckAndUnlock(userID string) ([]models.Achievement, error) {
	catalog, err := s.loadCatalog()
	if err != nil {
		return nil, err
	}
	metrics, err := s.metrics(userID)
	if err != nil {
		return nil, err
	}

	var unlocks []models.UserAchievement
	if err := s.DB.Where("user_id = ?", userID).Find(&unlocks).Error; err != nil {
		return nil, fmt.Errorf("load unlocks: %w", err)
	}
	already := make(map[string]bool, len(unlocks))
	for _, u := range unlocks {
		already[u.AchievementID] = true
	}

	var newlyUnlocked []models.Achievement
	for _, entry := range catalog {
		if already[entry.ID] {
			continue
		}
		if metrics.current(entry.Code, entry.Condition) < entry.Condition.Target {
			continue
		}

		unlock := models.UserAchievement{
			ID:            uuid.NewString(),
			UserID:        userID,
			AchievementID: entry.ID,
		}
		res := s.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}},
			DoNothing: true,
		}).Create(&unlock)
		if res.Error != nil {
			return nil, fmt.Errorf("unlock %s: %w", entry.Code, res.Error)
		}
		if res.RowsAffected > 0 {
			log.Printf("🏆 Achievement unlocked: %s → %s", entry.Code, userID)
			newlyUnlocked = append(newlyUnlocked, entry.Achievement)
		}
	}
	return newlyUnlocked, nil
}
