package models

import (
	"time"

	"gorm.io/gorm"
)

// DeckTheme selects which card artwork set the client renders.
type DeckTheme string

const (
	DeckThemeClassic   DeckTheme = "classic"
	DeckThemeMarseille DeckTheme = "marseille"
	DeckThemeGilded    DeckTheme = "gilded"
)

// IsValid reports whether the theme is one of the supported decks.
func (d DeckTheme) IsValid() bool {
	switch d {
	case DeckThemeClassic, DeckThemeMarseille, DeckThemeGilded:
		return true
	default:
		return false
	}
}

// User is the internal record behind a verified Telegram identity.
type User struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	TelegramID int64  `gorm:"uniqueIndex;not null" json:"telegram_id"`

	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name,omitempty"`
	Username    string `json:"username,omitempty"`
	DisplayName string `gorm:"not null" json:"display_name"`

	DeckTheme DeckTheme  `gorm:"type:varchar(16);default:'classic'" json:"deck_theme"`
	Timezone  string     `gorm:"type:varchar(64)" json:"timezone,omitempty"`
	BirthDate *time.Time `json:"birth_date,omitempty"`

	// Daily streak bookkeeping. StreakLastDate is a calendar day (midnight UTC).
	StreakCount    int        `gorm:"default:0" json:"streak_count"`
	StreakLastDate *time.Time `json:"streak_last_date,omitempty"`

	// Referral graph. ReferredByID is set at most once, never cleared.
	ReferralCode  string  `gorm:"uniqueIndex;type:varchar(8);not null" json:"referral_code"`
	ReferralCount int     `gorm:"default:0" json:"referral_count"`
	ReferredByID  *string `gorm:"type:uuid;index" json:"referred_by_id,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
