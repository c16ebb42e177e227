// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a stored account. TokenKey, PasswordHash and ResetToken are
// secrets and never leave the server; Email is withheld from JSON too.
type User struct {
	ID           int64     `json:"id"`
	IsAdmin      bool      `json:"is_admin"`
	Username     string    `json:"username"`
	Email        string    `json:"-"`
	TokenKey     string    `json:"-"`
	PasswordHash string    `json:"-"`
	ResetToken   string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser carries the columns written on registration.
type NewUser struct {
	IsAdmin      bool
	Username     string
	Email        string
	TokenKey     string
	PasswordHash string
}

// UserFields is a partial update; nil fields are left untouched.
type UserFields struct {
	Username     *string
	Email        *string
	PasswordHash *string
	ResetToken   *string
}

// Empty reports whether no field is set.
func (f UserFields) Empty() bool {
	return f.Username == nil && f.Email == nil && f.PasswordHash == nil && f.ResetToken == nil
}
