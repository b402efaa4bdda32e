package models

import (
	"time"

	"gorm.io/gorm"
)

// GiftType is the spread (or card) a gift token unlocks
type GiftType string

const (
	GiftTypeLoveSpread        GiftType = "love_spread"
	GiftTypeMoneySpread       GiftType = "money_spread"
	GiftTypeFutureSpread      GiftType = "future_spread"
	GiftTypeClarificationCard GiftType = "clarification_card"
)

// IsValid reports whether the gift type belongs to the fixed enumeration.
func (g GiftType) IsValid() bool {
	switch g {
	case GiftTypeLoveSpread, GiftTypeMoneySpread, GiftTypeFutureSpread, GiftTypeClarificationCard:
		return true
	default:
		return false
	}
}

// Well-known milestone reason keys. Streak and referral milestones build
// theirs with fmt.Sprintf ("STREAK_7", "REFERRAL_MILESTONE_5", ...).
const (
	ReasonFirstReading    = "FIRST_READING"
	ReasonReferralWelcome = "REFERRAL_WELCOME"
	ReasonAdminGrant      = "ADMIN_GRANT"
)

// Gift is a consumable reward token owned by exactly one user.
//
// Reason is nil for general (welcome) gifts and a milestone key otherwise.
// The (user_id, reason, reason_seq) unique index is the exactly-once backstop:
// NULL reasons never collide, a milestone reason can be granted a single time
// per user (ReasonSeq numbers the gifts of one multi-gift milestone batch).
type Gift struct {
	ID        string   `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string   `gorm:"type:uuid;not null;index;uniqueIndex:uniq_gift_user_reason" json:"user_id"`
	Type      GiftType `gorm:"type:varchar(32);not null" json:"type"`
	Reason    *string  `gorm:"type:varchar(64);uniqueIndex:uniq_gift_user_reason" json:"reason,omitempty"`
	ReasonSeq int      `gorm:"default:0;uniqueIndex:uniq_gift_user_reason" json:"-"`

	Used   bool       `gorm:"default:false;index" json:"used"`
	UsedAt *time.Time `json:"used_at,omitempty"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
