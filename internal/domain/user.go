package domain

import "time"

type User struct {
	UserID        string     `json:"id" dynamodbav:"user_id"`
	Email         string     `json:"email" dynamodbav:"email"`
	Username      string     `json:"username" dynamodbav:"username"`
	PasswordHash  string     `json:"-" dynamodbav:"password_hash"`
	IsActive      bool       `json:"isActive" dynamodbav:"is_active"`
	EmailVerified bool       `json:"emailVerified" dynamodbav:"email_verified"`
	LastLogin     *time.Time `json:"lastLogin,omitempty" dynamodbav:"last_login,omitempty"`
	CreatedAt     time.Time  `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" dynamodbav:"updated_at"`
}

// RegisterRequest carries the raw registration input. Credentials is the
// "username:password" pair.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Credentials string `json:"credentials" validate:"required"`
}

type LoginRequest struct {
	Credentials string `json:"credentials" validate:"required"`
}
