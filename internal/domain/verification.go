package domain

import "time"

const (
	OneTimeCodeTTL            = 10 * time.Minute
	VerificationCredentialTTL = 60 * time.Minute
)

// OneTimeCode is a 6-digit code proving control of an inbox. At most one is
// live per email; issuing a new one replaces the previous.
type OneTimeCode struct {
	Email    string        `json:"email"`
	Code     string        `json:"-"`
	IssuedAt time.Time     `json:"issuedAt"`
	TTL      time.Duration `json:"-"`
}

// VerificationCredential asserts that Email passed code verification.
type VerificationCredential struct {
	Email     string    `json:"email"`
	Token     string    `json:"verificationToken"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type RequestCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}
