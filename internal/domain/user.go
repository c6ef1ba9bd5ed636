package domain

import "time"

// User is an account that owns projects. GitHubToken holds the vault-encrypted
// credential blob; the plaintext token only ever exists transiently in memory.
type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	GitHubToken  string
	CreatedAt    time.Time
}
