// Package models holds the persisted domain records shared by repositories
// and services.
package models

// User is an identity record. PasswordHash always holds the bcrypt hash,
// never the plaintext.
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
}
