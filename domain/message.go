// Package domain contains the core concepts of the message board.
// Messages are the only durable entity; everything else in the system
// reacts to their mutations.
package domain

import "time"

// Message is the stored form of one board entry.
// ID, UserID, Username and CreatedAt are assigned by the store and
// immutable afterwards; only Text may change, and only through the
// author's own update.
type Message struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Payload is the public projection of a Message as it appears on the
// wire, both in direct replies and in broadcast events. It carries no
// storage-only fields.
type Payload struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	UserID    int64     `json:"user_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Public projects the message onto its wire representation.
func (m Message) Public() Payload {
	return Payload{
		ID:        m.ID,
		Username:  m.Username,
		UserID:    m.UserID,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}
