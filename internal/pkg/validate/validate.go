package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator. It is initialised once at
// package load time. Any custom type registrations must be made during init()
// before the first call to Struct.
var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return val
}

const (
	UsernameMinLen = 6
	UsernameMaxLen = 20
	PasswordMinLen = 8
)

var (
	usernameChars = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	usernameStart = regexp.MustCompile(`^[a-zA-Z0-9]`)
)

var reserved = map[string]struct{}{
	"admin": {}, "root": {}, "user": {}, "test": {},
	"api": {}, "www": {}, "mail": {}, "support": {},
}

// Struct validates the given struct using its validate tags and returns one
// human-readable message per failed field, or nil.
func Struct(s interface{}) []string {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, message(fe))
	}
	return msgs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label(fe.Field()))
	case "email":
		return "Please provide a valid email address"
	case "len", "numeric":
		if fe.Field() == "otp" {
			return "OTP must be a 6-digit number"
		}
	}
	return fmt.Sprintf("%s failed '%s'", label(fe.Field()), fe.Tag())
}

func label(field string) string {
	switch field {
	case "otp":
		return "OTP"
	case "":
		return field
	default:
		return strings.ToUpper(field[:1]) + field[1:]
	}
}

// Normalize lowercases and trims an email or username for storage and lookup.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Username checks the format rules for a new username and returns every
// violated rule.
func Username(username string) []string {
	if strings.TrimSpace(username) == "" {
		return []string{"Username is required"}
	}
	clean := strings.TrimSpace(username)
	var errs []string
	if len(clean) < UsernameMinLen {
		errs = append(errs, fmt.Sprintf("Username must be at least %d characters long", UsernameMinLen))
	}
	if len(clean) > UsernameMaxLen {
		errs = append(errs, fmt.Sprintf("Username must be at most %d characters long", UsernameMaxLen))
	}
	if !usernameChars.MatchString(clean) {
		errs = append(errs, "Username can only contain letters, numbers, underscores, and hyphens")
	}
	if !usernameStart.MatchString(clean) {
		errs = append(errs, "Username must start with a letter or number")
	}
	if _, ok := reserved[strings.ToLower(clean)]; ok {
		errs = append(errs, "This username is reserved and cannot be used")
	}
	return errs
}

// Credentials splits a registration "username:password" pair and validates
// both halves.
func Credentials(raw string) (username, password string, errs []string) {
	username, password, errs = splitCredentials(raw)
	if errs != nil {
		return "", "", errs
	}
	errs = append(errs, Username(username)...)
	if password == "" {
		errs = append(errs, "Password cannot be empty")
	} else if len(password) < PasswordMinLen {
		errs = append(errs, fmt.Sprintf("Password must be at least %d characters long", PasswordMinLen))
	}
	if len(errs) > 0 {
		return "", "", errs
	}
	return strings.TrimSpace(username), password, nil
}

// LoginCredentials splits a login pair. Only presence is checked so that
// legacy accounts are not locked out by newer format rules.
func LoginCredentials(raw string) (username, password string, errs []string) {
	username, password, errs = splitCredentials(raw)
	if errs != nil {
		return "", "", errs
	}
	if strings.TrimSpace(username) == "" {
		errs = append(errs, "Username cannot be empty")
	}
	if password == "" {
		errs = append(errs, "Password cannot be empty")
	}
	if len(errs) > 0 {
		return "", "", errs
	}
	return strings.TrimSpace(username), password, nil
}

func splitCredentials(raw string) (string, string, []string) {
	switch strings.Count(raw, ":") {
	case 0:
		return "", "", []string{`Credentials must be in format "username:password"`}
	case 1:
		u, p, _ := strings.Cut(raw, ":")
		return u, p, nil
	default:
		return "", "", []string{"Credentials cannot contain multiple colons"}
	}
}
