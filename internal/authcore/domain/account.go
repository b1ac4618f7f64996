package domain

import "time"

type Account struct {
	ID           int64
	Email        string // lower-cased and trimmed at write time, unique
	PasswordData string // opaque formatted pbkdf2 hash string
	CreatedAt    time.Time
}
