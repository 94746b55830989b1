package validate

import (
	"strings"
	"testing"

	"github.com/go-signup-nosql/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestStruct_ItemizesFailures(t *testing.T) {
	msgs := Struct(domain.VerifyCodeRequest{Email: "not-an-email", OTP: "12ab"})
	assert.ElementsMatch(t, []string{
		"Please provide a valid email address",
		"OTP must be a 6-digit number",
	}, msgs)
}

func TestStruct_RequiredUsesJSONName(t *testing.T) {
	msgs := Struct(domain.RegisterRequest{})
	assert.ElementsMatch(t, []string{"Email is required", "Credentials is required"}, msgs)
}

func TestStruct_Valid(t *testing.T) {
	assert.Nil(t, Struct(domain.VerifyCodeRequest{Email: "a@b.com", OTP: "123456"}))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "newuser1", Normalize("  NewUser1 "))
	assert.Equal(t, "a@b.com", Normalize("A@B.COM"))
}

func TestUsername(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains string
	}{
		{"empty", "   ", "Username is required"},
		{"too short", "abc", "at least 6"},
		{"too long", strings.Repeat("a", 21), "at most 20"},
		{"bad charset", "bad.name!", "only contain"},
		{"bad start", "_leading", "must start with"},
		{"reserved", "SUPPORT", "reserved"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Username(tt.input)
			assert.NotEmpty(t, errs)
			assert.Contains(t, strings.Join(errs, "|"), tt.contains)
		})
	}
	assert.Empty(t, Username("newuser1"))
	assert.Empty(t, Username("  new-user_1 "))
}

func TestCredentials(t *testing.T) {
	u, p, errs := Credentials(" newuser1 :password123")
	assert.Empty(t, errs)
	assert.Equal(t, "newuser1", u)
	assert.Equal(t, "password123", p)

	_, _, errs = Credentials("newuser1password123")
	assert.Equal(t, []string{`Credentials must be in format "username:password"`}, errs)

	_, _, errs = Credentials("a:b:c")
	assert.Equal(t, []string{"Credentials cannot contain multiple colons"}, errs)

	_, _, errs = Credentials("newuser1:short")
	assert.Equal(t, []string{"Password must be at least 8 characters long"}, errs)

	_, _, errs = Credentials("ab:")
	assert.Len(t, errs, 2)
}

func TestLoginCredentials(t *testing.T) {
	u, p, errs := LoginCredentials("legacy:pw")
	assert.Empty(t, errs)
	assert.Equal(t, "legacy", u)
	assert.Equal(t, "pw", p)

	_, _, errs = LoginCredentials(" :")
	assert.ElementsMatch(t, []string{"Username cannot be empty", "Password cannot be empty"}, errs)
}
