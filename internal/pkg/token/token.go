package token

import (
	"fmt"

	"github.com/google/uuid"
)

// NewVerificationToken returns a random (v4) UUID string used as the opaque
// proof that an email passed code verification.
func NewVerificationToken() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate verification token: %w", err)
	}
	return u.String(), nil
}
