package models

import (
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/api"
)

// User is a row of the users table.
type User struct {
	ID           int64
	UserName     string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Profile strips the password hash so the user can be serialized.
func (u *User) Profile() api.Profile {
	return api.Profile{ID: u.ID, Username: u.UserName, Email: u.Email}
}
