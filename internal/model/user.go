package model

import (
	"time"

	"github.com/google/uuid"
)

// User can query rates and, with admin rights, import and purge reference data.
type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	IsAdmin      bool       `json:"is_admin" db:"is_admin"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty" db:"last_login"`
}
