package models

import "time"

// Session is the single live refresh token of a user.
type Session struct {
	UserID       string
	RefreshToken string
	CreatedAt    time.Time
}

// PasswordReset is the single pending reset of a user. It is deleted once
// the password has been changed.
type PasswordReset struct {
	UserID     string
	ResetToken string
	CreatedAt  time.Time
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthResult is returned by every operation that opens or renews a session.
type AuthResult struct {
	TokenPair
	User Profile `json:"user"`
}
