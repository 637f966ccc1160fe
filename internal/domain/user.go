package domain

import "time"

// User is a credential-store record used by the portal to authenticate logins.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity projects the user into relay claims material.
func (u User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email, Name: u.DisplayName, Role: u.Role}.Normalize()
}
