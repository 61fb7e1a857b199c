package models

import "time"

// Account is a registered identity. PasswordHash always holds an encoded
// one-way hash, never the plaintext.
type Account struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}
