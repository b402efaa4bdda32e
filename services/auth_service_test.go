// services/auth_service_test.go
package services

import (
	"testing"
	"time"

	"tarot-miniapp-backend/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAuthHarness(t *testing.T) (*AuthService, *gorm.DB) {
	db := newTestDB(t)
	gifts := NewGiftService(db)
	referrals := NewReferralService(db, gifts)
	return NewAuthService(db, gifts, referrals), db
}

func TestResolveSession_UnknownWithoutOnboarding(t *testing.T) {
	auth, _ := newAuthHarness(t)

	_, err := auth.ResolveSession(&TelegramUser{ID: 777, FirstName: "Nova"}, nil)
	require.ErrorIs(t, err, ErrOnboardingRequired)
}

func TestResolveSession_CreatesUserWithWelcomeGifts(t *testing.T) {
	auth, db := newAuthHarness(t)
	birth := time.Date(1994, 3, 21, 0, 0, 0, 0, time.UTC)

	user, err := auth.ResolveSession(
		&TelegramUser{ID: 777, FirstName: "Nova", LastName: "Reyes", Username: "novareyes"},
		&OnboardingData{
			DisplayName: "Nova",
			BirthDate:   &birth,
			DeckTheme:   "marseille",
			Timezone:    "Europe/Lisbon",
		},
	)
	require.NoError(t, err)
	require.Equal(t, int64(777), user.TelegramID)
	require.Equal(t, "Nova", user.DisplayName)
	require.Equal(t, models.DeckThemeMarseille, user.DeckTheme)
	require.Len(t, user.ReferralCode, 8)

	var gifts []models.Gift
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&gifts).Error)
	require.Len(t, gifts, 3)
}

func TestResolveSession_ExistingUserIgnoresOnboarding(t *testing.T) {
	auth, db := newAuthHarness(t)

	tg := &TelegramUser{ID: 777, FirstName: "Nova"}
	created, err := auth.ResolveSession(tg, &OnboardingData{DisplayName: "Nova"})
	require.NoError(t, err)

	// A repeat session with a different onboarding payload returns the
	// original row untouched.
	again, err := auth.ResolveSession(tg, &OnboardingData{DisplayName: "Someone Else", DeckTheme: "gilded"})
	require.NoError(t, err)
	require.Equal(t, created.ID, again.ID)
	require.Equal(t, "Nova", again.DisplayName)
	require.Equal(t, models.DeckThemeClassic, again.DeckTheme)

	var gifts int64
	require.NoError(t, db.Model(&models.Gift{}).Where("user_id = ?", created.ID).Count(&gifts).Error)
	require.EqualValues(t, 3, gifts)
}

func TestResolveSession_DefaultsAndValidation(t *testing.T) {
	auth, _ := newAuthHarness(t)

	// Empty theme falls back to classic; empty display name falls back to
	// the Telegram profile names.
	user, err := auth.ResolveSession(
		&TelegramUser{ID: 801, FirstName: "Iris", LastName: "Bloom"},
		&OnboardingData{},
	)
	require.NoError(t, err)
	require.Equal(t, models.DeckThemeClassic, user.DeckTheme)
	require.Equal(t, "Iris Bloom", user.DisplayName)

	_, err = auth.ResolveSession(
		&TelegramUser{ID: 802, FirstName: "Vex"},
		&OnboardingData{DeckTheme: "neon"},
	)
	require.ErrorIs(t, err, ErrInvalidDeckTheme)
}

func TestResolveSession_AppliesReferralCode(t *testing.T) {
	auth, db := newAuthHarness(t)
	referrer := createTestUser(t, db)

	user, err := auth.ResolveSession(
		&TelegramUser{ID: 803, FirstName: "Wren"},
		&OnboardingData{DisplayName: "Wren", ReferralCode: referrer.ReferralCode},
	)
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)

	var reloaded models.User
	require.NoError(t, db.Where("id = ?", user.ID).First(&reloaded).Error)
	require.NotNil(t, reloaded.ReferredByID)
	require.Equal(t, referrer.ID, *reloaded.ReferredByID)

	var referrerReloaded models.User
	require.NoError(t, db.Where("id = ?", referrer.ID).First(&referrerReloaded).Error)
	require.Equal(t, 1, referrerReloaded.ReferralCount)
}

func TestCreateUser_YieldsToFirstContactWinner(t *testing.T) {
	auth, db := newAuthHarness(t)

	tg := &TelegramUser{ID: 805, FirstName: "Faye"}
	winner, err := auth.ResolveSession(tg, &OnboardingData{DisplayName: "Faye"})
	require.NoError(t, err)

	// A concurrent first-contact request that lost the insert race reaches
	// createUser with the telegram id already taken; it must return the
	// winner's row instead of erroring.
	loser, err := auth.createUser(tg, &OnboardingData{}, models.DeckThemeClassic, "Faye")
	require.NoError(t, err)
	require.Equal(t, winner.ID, loser.ID)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Where("telegram_id = ?", tg.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestResolveSession_BadReferralCodeDoesNotFailSignup(t *testing.T) {
	auth, db := newAuthHarness(t)

	user, err := auth.ResolveSession(
		&TelegramUser{ID: 804, FirstName: "Sage"},
		&OnboardingData{DisplayName: "Sage", ReferralCode: "NOPE0000"},
	)
	require.NoError(t, err)

	var reloaded models.User
	require.NoError(t, db.Where("id = ?", user.ID).First(&reloaded).Error)
	require.Nil(t, reloaded.ReferredByID)
}
