// Package models contains domain types for ekaya-lakehouse.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account that owns projects.
// PasswordHash never leaves the service layer.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
