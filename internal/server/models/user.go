// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an account allowed to sign in to the admin API.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
