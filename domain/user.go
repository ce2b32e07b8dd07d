package domain

import "time"

// User is a registered account. PasswordHash holds the encoded argon2id
// hash, never the plain password.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is the authenticated principal attached to a connection or
// request. A nil *Identity means anonymous.
type Identity struct {
	ID       int64
	Username string
}
