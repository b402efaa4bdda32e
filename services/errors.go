package services

import "errors"

// Domain rejections and validation failures surfaced to handlers.
// Handlers map these to structured non-success responses; anything else
// coming out of a service is an infrastructure error.
var (
	// authentication
	ErrHashMissing   = errors.New("init data has no hash field")
	ErrHashMismatch  = errors.New("init data signature mismatch")
	ErrMalformedUser = errors.New("init data user payload is malformed")
	ErrInitDataStale = errors.New("init data is too old")

	// session resolution
	ErrOnboardingRequired = errors.New("onboarding required")
	ErrInvalidDeckTheme   = errors.New("invalid deck theme")

	// gifts
	ErrInvalidGiftType = errors.New("invalid gift type")
	ErrGiftAlreadyUsed = errors.New("gift already used")

	// referrals
	ErrInvalidReferralCode = errors.New("referral code must be 8 uppercase letters or digits")
	ErrCodeNotFound        = errors.New("referral code not found")
	ErrSelfReferral        = errors.New("cannot apply your own referral code")
	ErrAlreadyReferred     = errors.New("user already has a referrer")

	// readings
	ErrInvalidSpread = errors.New("invalid spread type")
	ErrUnknownCard   = errors.New("unknown card id")
)
