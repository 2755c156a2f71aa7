// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a registered account.
type User struct {
	// ID is a server-generated UUID; it never changes.
	ID string `json:"id" yaml:"id"`
	// Email is stored trimmed and lower-cased and is unique.
	Email     string `json:"email" yaml:"email"`
	FirstName string `json:"firstName" yaml:"first_name"`
	LastName  string `json:"lastName" yaml:"last_name"`
	// PasswordHash is the self-describing hasher output. Never serialized.
	PasswordHash string    `json:"-" yaml:"-"`
	Role         Role      `json:"role" yaml:"role"`
	CreatedAt    time.Time `json:"createdAt" yaml:"created_at"`
}
