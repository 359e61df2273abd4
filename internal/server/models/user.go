// Package models defines the server-side data model: user identities
// and the refresh-token records backing their sessions.
package models

import "time"

// User is an identity record. The password hash is opaque to the rest
// of the server; only the password package can produce or verify it.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	CreatedAt    time.Time
}
