// services/referral_service.go
package services

import (
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"regexp"
	"strings"

	"tarot-miniapp-backend/models"

	"gorm.io/gorm"
)

const referralCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const referralCodeLength = 8

var referralCodePattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)

// Referral milestone table: crossing a threshold rewards the referrer once,
// reason "REFERRAL_MILESTONE_<n>".
var referralMilestones = []struct {
	Count int
	Gift  models.GiftType
}{
	{Count: 1, Gift: models.GiftTypeLoveSpread},
	{Count: 3, Gift: models.GiftTypeMoneySpread},
	{Count: 5, Gift: models.GiftTypeFutureSpread},
	{Count: 10, Gift: models.GiftTypeClarificationCard},
}

// LeaderboardEntry is one ranked referrer.
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	DisplayName   string `json:"display_name"`
	Username      string `json:"username,omitempty"`
	ReferralCount int    `json:"referral_count"`
}

// ReferralInfo summarizes a user's own referral standing.
type ReferralInfo struct {
	ReferralCode  string `json:"referral_code"`
	ReferralCount int    `json:"referral_count"`
	NextMilestone int    `json:"next_milestone,omitempty"`
}

// ReferralService links new users to referrers and pays milestone rewards
// through the gift ledger.
type ReferralService struct {
	DB    *gorm.DB
	Gifts *GiftService
}

func NewReferralService(db *gorm.DB, gifts *GiftService) *ReferralService {
	return &ReferralService{DB: db, Gifts: gifts}
}

// GenerateCode returns an 8-character uppercase alphanumeric referral code.
// Uniqueness is enforced by the store; callers retry on collision.
func GenerateCode() string {
	buf := make([]byte, referralCodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(referralCodeAlphabet))))
		if err != nil {
			panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
		}
		buf[i] = referralCodeAlphabet[n.Int64()]
	}
	return string(buf)
}

// ProcessReferral attributes newUserID's signup to the owner of code.
//
// Rejections: unknown code, self-referral, user already referred. On success
// the referrer's count goes up, every crossed milestone not yet rewarded is
// granted, and the new user receives the one-time referral welcome gift.
func (s *ReferralService) ProcessReferral(newUserID, code string) (*models.User, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !referralCodePattern.MatchString(code) {
		return nil, ErrInvalidReferralCode
	}

	var referrer models.User
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("referral_code = ?", code).First(&referrer).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrCodeNotFound
			}
			return fmt.Errorf("lookup referral code: %w", err)
		}
		if referrer.ID == newUserID {
			return ErrSelfReferral
		}

		var user models.User
		if err := tx.Where("id = ?", newUserID).First(&user).Error; err != nil {
			return err
		}
		if user.ReferredByID != nil {
			return ErrAlreadyReferred
		}

		// Conditional update: a concurrent duplicate call loses here instead
		// of double-linking.
		res := tx.Model(&models.User{}).
			Where("id = ? AND referred_by_id IS NULL", newUserID).
			Update("referred_by_id", referrer.ID)
		if res.Error != nil {
			return fmt.Errorf("link referrer: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyReferred
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", referrer.ID).
			UpdateColumn("referral_count", gorm.Expr("referral_count + 1")).Error; err != nil {
			return fmt.Errorf("bump referral count: %w", err)
		}
		return tx.Where("id = ?", referrer.ID).First(&referrer).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🤝 Referral linked: %s → referrer %s (count=%d)", newUserID, referrer.ID, referrer.ReferralCount)

	// Milestone grants are individually exactly-once, so re-evaluating every
	// threshold at or below the current count is safe and self-healing.
	for _, m := range referralMilestones {
		if referrer.ReferralCount < m.Count {
			break
		}
		reason := fmt.Sprintf("REFERRAL_MILESTONE_%d", m.Count)
		if _, _, err := s.Gifts.Grant(referrer.ID, m.Gift, reason); err != nil {
			return nil, err
		}
	}

	if _, _, err := s.Gifts.Grant(newUserID, models.GiftTypeLoveSpread, models.ReasonReferralWelcome); err != nil {
		return nil, err
	}

	return &referrer, nil
}

// Info reports the user's own code, count and the next unreached milestone.
func (s *ReferralService) Info(userID string) (*ReferralInfo, error) {
	var user models.User
	if err := s.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	info := ReferralInfo{
		ReferralCode:  user.ReferralCode,
		ReferralCount: user.ReferralCount,
	}
	for _, m := range referralMilestones {
		if m.Count > user.ReferralCount {
			info.NextMilestone = m.Count
			break
		}
	}
	return &info, nil
}

// Leaderboard ranks referrers by referral count, excluding users who have
// referred no one. Ties break on signup time for a stable order.
func (s *ReferralService) Leaderboard(limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var users []models.User
	if err := s.DB.
		Where("referral_count > 0").
		Order("referral_count DESC, created_at ASC").
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}

	entries := make([]LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = LeaderboardEntry{
			Rank:          i + 1,
			DisplayName:   u.DisplayName,
			Username:      u.Username,
			ReferralCount: u.ReferralCount,
		}
	}
	return entries, nil
}
