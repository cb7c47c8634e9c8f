package domain

import "time"

// User is a resource owner who can log in and grant consent.
type User struct {
	Username     string
	PasswordHash string // encoded per the configured cryptox.PasswordHasher
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
