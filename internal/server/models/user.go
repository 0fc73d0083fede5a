// Package models defines server-side data models persisted in the database
// and returned by the services.
package models

import "time"

// User is a registered identity. PasswordHash never leaves the server; use
// Profile to expose a user to callers.
type User struct {
	ID             string
	Email          string
	PasswordHash   string
	FirstName      string
	LastName       string
	Avatar         string
	IsActivated    bool
	ActivationLink string
	CreatedAt      time.Time
}

// Profile is the public view of a User.
type Profile struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Avatar      string `json:"avatar"`
	IsActivated bool   `json:"isActivated"`
}

// Profile strips credentials from u.
func (u *User) Profile() Profile {
	return Profile{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Avatar:      u.Avatar,
		IsActivated: u.IsActivated,
	}
}
