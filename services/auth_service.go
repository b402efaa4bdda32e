// services/auth_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"tarot-miniapp-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OnboardingData is what the client collects before a first-contact signup.
type OnboardingData struct {
	DisplayName  string     `json:"display_name"`
	BirthDate    *time.Time `json:"birth_date,omitempty"`
	DeckTheme    string     `json:"deck_theme,omitempty"`
	Timezone     string     `json:"timezone,omitempty"`
	ReferralCode string     `json:"referral_code,omitempty"`
}

// AuthService maps verified Telegram identities to internal users.
type AuthService struct {
	DB        *gorm.DB
	Gifts     *GiftService
	Referrals *ReferralService
}

func NewAuthService(db *gorm.DB, gifts *GiftService, referrals *ReferralService) *AuthService {
	return &AuthService{DB: db, Gifts: gifts, Referrals: referrals}
}

// ResolveSession returns the user behind a verified identity.
//
// Known identity → the existing user, onboarding payload ignored.
// Unknown identity without onboarding → ErrOnboardingRequired (a prompt for
// the client, not a failure). Unknown identity with onboarding → the user is
// created with a fresh referral code and the three welcome gifts, then any
// inbound referral code is applied.
func (s *AuthService) ResolveSession(tg *TelegramUser, onboarding *OnboardingData) (*models.User, error) {
	var user models.User
	err := s.DB.Where("telegram_id = ?", tg.ID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup user by telegram id: %w", err)
	}

	if onboarding == nil {
		return nil, ErrOnboardingRequired
	}

	theme := models.DeckTheme(onboarding.DeckTheme)
	if onboarding.DeckTheme == "" {
		theme = models.DeckThemeClassic
	}
	if !theme.IsValid() {
		return nil, ErrInvalidDeckTheme
	}

	displayName := strings.TrimSpace(onboarding.DisplayName)
	if displayName == "" {
		displayName = strings.TrimSpace(tg.FirstName + " " + tg.LastName)
	}

	created, err := s.createUser(tg, onboarding, theme, displayName)
	if err != nil {
		return nil, err
	}

	if _, err := s.Gifts.GrantWelcome(created.ID); err != nil {
		return nil, err
	}

	if code := strings.TrimSpace(onboarding.ReferralCode); code != "" {
		if _, err := s.Referrals.ProcessReferral(created.ID, code); err != nil {
			// A bad inbound code must not undo the signup.
			log.Printf("⚠️  Referral code %q not applied for user %s: %v", code, created.ID, err)
		}
	}

	log.Printf("✨ User created: telegram_id=%d id=%s", tg.ID, created.ID)
	return created, nil
}

// createUser inserts the new row, retrying referral-code collisions and
// yielding to a concurrent first-contact winner on the telegram_id constraint.
func (s *AuthService) createUser(tg *TelegramUser, onboarding *OnboardingData, theme models.DeckTheme, displayName string) (*models.User, error) {
	for attempt := 0; attempt < 5; attempt++ {
		user := models.User{
			ID:           uuid.NewString(),
			TelegramID:   tg.ID,
			FirstName:    tg.FirstName,
			LastName:     tg.LastName,
			Username:     tg.Username,
			DisplayName:  displayName,
			DeckTheme:    theme,
			Timezone:     onboarding.Timezone,
			BirthDate:    onboarding.BirthDate,
			ReferralCode: GenerateCode(),
		}

		err := s.DB.Create(&user).Error
		if err == nil {
			return &user, nil
		}
		if !isDuplicateKey(err) {
			return nil, fmt.Errorf("create user: %w", err)
		}

		// Did we lose the first-contact race? Then the winner's row is the
		// answer. Otherwise the generated referral code collided — retry.
		var winner models.User
		if lookupErr := s.DB.Where("telegram_id = ?", tg.ID).First(&winner).Error; lookupErr == nil {
			return &winner, nil
		}
	}
	return nil, fmt.Errorf("could not allocate a unique referral code for telegram_id=%d", tg.ID)
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
