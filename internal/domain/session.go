package domain

import "time"

// SessionTTL is the validity of a signed session credential and of its
// mirrored cache entry.
const SessionTTL = 7 * 24 * time.Hour

// Session is the result of a successful registration or login.
type Session struct {
	UserID    string    `json:"userId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthResult pairs the public user view with its freshly issued session.
type AuthResult struct {
	User    *User    `json:"user"`
	Session *Session `json:"session"`
}
