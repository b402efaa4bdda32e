package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Arcana splits the deck into the 22 trumps and the 56 suit cards.
type Arcana string

const (
	ArcanaMajor Arcana = "major"
	ArcanaMinor Arcana = "minor"
)

// Card: static deck catalog (78 rows, seeded at startup)
type Card struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	Number     int    `gorm:"not null" json:"number"` // 0-21 for majors, 1-14 within a suit
	Name       string `gorm:"uniqueIndex;not null" json:"name"`
	Arcana     Arcana `gorm:"type:varchar(8);not null" json:"arcana"`
	Suit       string `gorm:"type:varchar(16)" json:"suit,omitempty"` // wands, cups, swords, pentacles
	ArtworkURL string `gorm:"type:text" json:"artwork_url,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// UserCard marks a card as collected by a user (distinct-cards metric).
type UserCard struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string    `gorm:"type:uuid;not null;uniqueIndex:uniq_user_card" json:"user_id"`
	CardID      string    `gorm:"type:uuid;not null;uniqueIndex:uniq_user_card" json:"card_id"`
	CollectedAt time.Time `gorm:"autoCreateTime" json:"collected_at"`
}

// ReadingSpread is the layout a reading was drawn with.
type ReadingSpread string

const (
	SpreadDailyCard         ReadingSpread = "daily_card"
	SpreadLove              ReadingSpread = "love_spread"
	SpreadMoney             ReadingSpread = "money_spread"
	SpreadFuture            ReadingSpread = "future_spread"
	SpreadClarificationCard ReadingSpread = "clarification_card"
)

// IsValid reports whether the spread is a known layout.
func (r ReadingSpread) IsValid() bool {
	switch r {
	case SpreadDailyCard, SpreadLove, SpreadMoney, SpreadFuture, SpreadClarificationCard:
		return true
	default:
		return false
	}
}

// Reading records one completed draw (readings-count metric).
type Reading struct {
	ID        string        `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string        `gorm:"type:uuid;not null;index" json:"user_id"`
	Spread    ReadingSpread `gorm:"type:varchar(32);not null" json:"spread"`
	CardIDs   string        `gorm:"type:text;not null" json:"card_ids"` // comma-joined card uuids, in drawn order
	CreatedAt time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

var majorArcanaNames = []string{
	"The Fool", "The Magician", "The High Priestess", "The Empress",
	"The Emperor", "The Hierophant", "The Lovers", "The Chariot",
	"Strength", "The Hermit", "Wheel of Fortune", "Justice",
	"The Hanged Man", "Death", "Temperance", "The Devil",
	"The Tower", "The Star", "The Moon", "The Sun",
	"Judgement", "The World",
}

var minorSuits = []string{"wands", "cups", "swords", "pentacles"}

var minorRanks = []string{
	"Ace", "Two", "Three", "Four", "Five", "Six", "Seven",
	"Eight", "Nine", "Ten", "Page", "Knight", "Queen", "King",
}

var suitTitles = map[string]string{
	"wands":     "Wands",
	"cups":      "Cups",
	"swords":    "Swords",
	"pentacles": "Pentacles",
}

// SeedCards inserts the 78-card deck, skipping rows that already exist.
func SeedCards(db *gorm.DB) error {
	deck := make([]Card, 0, 78)
	for i, name := range majorArcanaNames {
		deck = append(deck, Card{Number: i, Name: name, Arcana: ArcanaMajor})
	}
	for _, suit := range minorSuits {
		for i, rank := range minorRanks {
			deck = append(deck, Card{
				Number: i + 1,
				Name:   fmt.Sprintf("%s of %s", rank, suitTitles[suit]),
				Arcana: ArcanaMinor,
				Suit:   suit,
			})
		}
	}
	for _, card := range deck {
		card.ID = uuid.NewString()
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&card).Error; err != nil {
			return fmt.Errorf("seed card %s: %w", card.Name, err)
		}
	}
	return nil
}
